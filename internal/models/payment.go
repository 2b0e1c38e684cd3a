package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the escrow state of a payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentHeld     PaymentStatus = "held"
	PaymentReleased PaymentStatus = "released"
	PaymentRejected PaymentStatus = "rejected"
	PaymentRefunded PaymentStatus = "refunded"
)

// PaymentType is what the money is for.
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "deposit"
	PaymentTypeRent    PaymentType = "rent"
	PaymentTypeOther   PaymentType = "other"
)

// PaymentMethod is how the tenant says they paid.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPaynow       PaymentMethod = "paynow"
	PaymentMethodEcocash      PaymentMethod = "ecocash"
	PaymentMethodOnemoney     PaymentMethod = "onemoney"
	PaymentMethodCash         PaymentMethod = "cash"
)

// Valid reports whether t is a known payment type.
func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeDeposit, PaymentTypeRent, PaymentTypeOther:
		return true
	}
	return false
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodPaynow, PaymentMethodEcocash, PaymentMethodOnemoney, PaymentMethodCash:
		return true
	}
	return false
}

// PaymentProof points at the uploaded proof object in storage.
type PaymentProof struct {
	Key         string `bson:"key" json:"key"`
	Filename    string `bson:"filename" json:"filename"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	Size        int64  `bson:"size,omitempty" json:"size,omitempty"`
}

// Payment is a manually asserted payment moving through escrow.
type Payment struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Tenant           primitive.ObjectID  `bson:"tenant" json:"tenant"`
	Landlord         primitive.ObjectID  `bson:"landlord" json:"landlord"`
	Property         primitive.ObjectID  `bson:"property" json:"property"`
	Application      primitive.ObjectID  `bson:"application" json:"application"`
	Amount           float64             `bson:"amount" json:"amount"`
	PaymentType      PaymentType         `bson:"payment_type" json:"payment_type"`
	PaymentMethod    PaymentMethod       `bson:"payment_method" json:"payment_method"`
	PaymentReference string              `bson:"payment_reference,omitempty" json:"payment_reference,omitempty"`
	PaymentProof     *PaymentProof       `bson:"payment_proof,omitempty" json:"payment_proof,omitempty"`
	Status           PaymentStatus       `bson:"status" json:"status"`
	TenantNotes      string              `bson:"tenant_notes,omitempty" json:"tenant_notes,omitempty"`
	AdminNotes       string              `bson:"admin_notes,omitempty" json:"admin_notes,omitempty"`
	RefundReason     string              `bson:"refund_reason,omitempty" json:"refund_reason,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
	VerifiedAt       *time.Time          `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	VerifiedBy       *primitive.ObjectID `bson:"verified_by,omitempty" json:"verified_by,omitempty"`
	ReleasedAt       *time.Time          `bson:"released_at,omitempty" json:"released_at,omitempty"`
	ReleasedBy       *primitive.ObjectID `bson:"released_by,omitempty" json:"released_by,omitempty"`
	RefundedAt       *time.Time          `bson:"refunded_at,omitempty" json:"refunded_at,omitempty"`
	RefundedBy       *primitive.ObjectID `bson:"refunded_by,omitempty" json:"refunded_by,omitempty"`
}

// PaymentStatusStats is one row of the per-status payment summary.
type PaymentStatusStats struct {
	Status      PaymentStatus `bson:"_id" json:"status"`
	Count       int64         `bson:"count" json:"count"`
	TotalAmount float64       `bson:"total_amount" json:"total_amount"`
}
