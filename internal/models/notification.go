package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification event types.
const (
	EventExpiry  = "EXPIRY"
	EventRequest = "REQUEST"
	EventMeeting = "MEETING"
	EventSystem  = "SYSTEM"
)

type Notification struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Title       string              `bson:"title" json:"title"`
	Message     string              `bson:"message" json:"message"`
	Read        bool                `bson:"read" json:"read"`
	ReferenceID *primitive.ObjectID `bson:"reference_id,omitempty" json:"reference_id,omitempty"` // donation or request
	EventType   string              `bson:"event_type" json:"event_type"`                         // EXPIRY, REQUEST, MEETING, SYSTEM
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}
