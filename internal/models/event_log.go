package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType tags an audit entry.
type EventType string

const (
	EventApplicationSubmitted    EventType = "application_submitted"
	EventApplicationApproved     EventType = "application_approved"
	EventApplicationRejected     EventType = "application_rejected"
	EventApplicationCancelled    EventType = "application_cancelled"
	EventPaymentSubmitted        EventType = "payment_submitted"
	EventPaymentVerified         EventType = "payment_verified"
	EventPaymentReleased         EventType = "payment_released"
	EventPaymentRejected         EventType = "payment_rejected"
	EventPaymentRefunded         EventType = "payment_refunded"
	EventPaymentNotesUpdated     EventType = "payment_notes_updated"
	EventPropertyMarkedAvailable EventType = "property_marked_available"
)

// TargetType is the kind of entity an event is about.
type TargetType string

const (
	TargetApplication TargetType = "application"
	TargetPayment     TargetType = "payment"
	TargetProperty    TargetType = "property"
)

// EventStatus is the outcome recorded with an event.
type EventStatus string

const (
	EventSuccess EventStatus = "success"
	EventFailure EventStatus = "failure"
	EventWarning EventStatus = "warning"
)

// EventLog is one audit record.
type EventLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventType   EventType          `bson:"event_type" json:"event_type"`
	User        primitive.ObjectID `bson:"user,omitempty" json:"user,omitempty"`
	UserEmail   string             `bson:"user_email,omitempty" json:"user_email,omitempty"`
	UserRole    Role               `bson:"user_role,omitempty" json:"user_role,omitempty"`
	TargetType  TargetType         `bson:"target_type" json:"target_type"`
	TargetID    primitive.ObjectID `bson:"target_id,omitempty" json:"target_id,omitempty"`
	Description string             `bson:"description" json:"description"`
	Metadata    map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	IPAddress   string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent   string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	Status      EventStatus        `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// EventCount is a grouped count used by event log statistics.
type EventCount struct {
	Key   string `bson:"_id" json:"key"`
	Count int64  `bson:"count" json:"count"`
}

// EventLogStats summarises the audit trail.
type EventLogStats struct {
	TotalEvents    int64        `json:"total_events"`
	EventsByType   []EventCount `json:"events_by_type"`
	EventsByStatus []EventCount `json:"events_by_status"`
	EventsByRole   []EventCount `json:"events_by_role"`
	RecentEvents   []EventLog   `json:"recent_events"`
}
