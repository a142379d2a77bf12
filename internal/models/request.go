package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DocTypeRequest = "request"

// Request statuses. Accepted and rejected are terminal.
const (
	RequestStatusSubmitted = "submitted"
	RequestStatusAccepted  = "accepted"
	RequestStatusRejected  = "rejected"
)

// RequestedItem names a product inside the donation and how many units
// the recipient is asking for.
type RequestedItem struct {
	ProductID string `bson:"product_id" json:"product_id"`
	Quantity  int    `bson:"quantity" json:"quantity"`
}

// Request is a recipient's ask for specific quantities from one donation.
// Stock is not checked at submission; it is checked only when the donor
// approves, so several requests may compete for the same shrinking pool.
type Request struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocType          string             `bson:"doc_type" json:"-"`
	DonationID       primitive.ObjectID `bson:"donation_id" json:"donation_id"`
	RecipientID      primitive.ObjectID `bson:"recipient_id" json:"recipient_id"`
	Items            []RequestedItem    `bson:"items" json:"items"`
	Status           string             `bson:"status" json:"status"`
	MeetingDate      string             `bson:"meeting_date,omitempty" json:"meeting_date,omitempty"` // "2006-01-02"
	MeetingTime      string             `bson:"meeting_time,omitempty" json:"meeting_time,omitempty"` // "15:04"
	Contact          string             `bson:"contact,omitempty" json:"contact,omitempty"`
	RejectionComment string             `bson:"rejection_comment,omitempty" json:"rejection_comment,omitempty"`
	Rev              int64              `bson:"rev" json:"-"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`

	// RecipientName is attached when the donor lists requests for a
	// donation. Never persisted.
	RecipientName string `bson:"-" json:"recipient_name,omitempty"`
}

// IsTerminal reports whether the request already reached a final state.
func (r *Request) IsTerminal() bool {
	return r.Status == RequestStatusAccepted || r.Status == RequestStatusRejected
}

// MeetingAt combines the meeting date and time fields into a single
// timestamp. Returns the zero time if either field is missing or malformed.
func (r *Request) MeetingAt() time.Time {
	if r.MeetingDate == "" || r.MeetingTime == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", r.MeetingDate+"T"+r.MeetingTime, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
