package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplicationStatus is the state of a rental application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationCancelled ApplicationStatus = "cancelled"
)

// EmergencyContact of the applying tenant.
type EmergencyContact struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
}

// TenantInfo is free-form applicant detail. It is never inspected by the status transitions.
type TenantInfo struct {
	NumberOfOccupants int               `bson:"number_of_occupants,omitempty" json:"number_of_occupants,omitempty"`
	HasPets           bool              `bson:"has_pets" json:"has_pets"`
	PetDetails        string            `bson:"pet_details,omitempty" json:"pet_details,omitempty"`
	EmergencyContact  *EmergencyContact `bson:"emergency_contact,omitempty" json:"emergency_contact,omitempty"`
	AdditionalNotes   string            `bson:"additional_notes,omitempty" json:"additional_notes,omitempty"`
	Extra             map[string]any    `bson:"extra,omitempty" json:"extra,omitempty"`
}

// RentalApplication is a tenant's request to rent a property.
type RentalApplication struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Property      primitive.ObjectID `bson:"property" json:"property"`
	Tenant        primitive.ObjectID `bson:"tenant" json:"tenant"`
	Landlord      primitive.ObjectID `bson:"landlord" json:"landlord"` // Denormalized from property owner at submit time
	Status        ApplicationStatus  `bson:"status" json:"status"`
	MoveInDate    time.Time          `bson:"move_in_date" json:"move_in_date"`
	LeaseDuration int                `bson:"lease_duration" json:"lease_duration"` // months
	Message       string             `bson:"message,omitempty" json:"message,omitempty"`
	TenantInfo    TenantInfo         `bson:"tenant_info" json:"tenant_info"`
	ClosedOutAt   *time.Time         `bson:"closed_out_at,omitempty" json:"closed_out_at,omitempty"` // set once the tenant relists after review
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}
