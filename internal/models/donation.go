package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DocTypeDonation = "donation"

// Product is a single line item inside a donation. It is embedded in the
// donation document and never stored on its own.
type Product struct {
	ID          string    `bson:"id" json:"id"` // generated at creation, unique within the donation
	Category    string    `bson:"category" json:"category"`
	Total       int       `bson:"total" json:"total"`         // offered quantity, can only shrink
	Remaining   int       `bson:"remaining" json:"remaining"` // decremented only by approved requests
	ExpiryDate  time.Time `bson:"expiry_date" json:"expiry_date"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
}

// Allocated returns how many units of this product have already been
// handed out to accepted requests.
func (p Product) Allocated() int {
	return p.Total - p.Remaining
}

// Donation is a donor's posted batch of products available for request.
// Donations are soft-deleted so existing requests and notifications keep
// a valid reference.
type Donation struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocType      string             `bson:"doc_type" json:"-"`
	DonorID      primitive.ObjectID `bson:"donor_id" json:"donor_id"`
	Products     []Product          `bson:"products" json:"products"`
	MeetingPoint string             `bson:"meeting_point" json:"meeting_point"`
	MeetingDate  string             `bson:"meeting_date,omitempty" json:"meeting_date,omitempty"` // "2006-01-02"
	MeetingTime  string             `bson:"meeting_time,omitempty" json:"meeting_time,omitempty"` // "15:04"
	Deleted      bool               `bson:"deleted" json:"-"`
	Rev          int64              `bson:"rev" json:"-"` // optimistic version token
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`

	// Donor is a public projection attached when listing available
	// donations. Never persisted.
	Donor *PublicUser `bson:"-" json:"donor,omitempty"`
}

// FindProduct returns the embedded product with the given id, or nil.
func (d *Donation) FindProduct(productID string) *Product {
	for i := range d.Products {
		if d.Products[i].ID == productID {
			return &d.Products[i]
		}
	}
	return nil
}

// HasStock reports whether any product still has units left.
func (d *Donation) HasStock() bool {
	for _, p := range d.Products {
		if p.Remaining > 0 {
			return true
		}
	}
	return false
}
