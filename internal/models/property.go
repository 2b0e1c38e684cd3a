package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RentPeriod is the unit the listed price is quoted in.
type RentPeriod string

const (
	RentPeriodDay   RentPeriod = "day"
	RentPeriodMonth RentPeriod = "month"
)

// PropertyPricing holds optional per-property pricing overrides. Nil means "use the default".
type PropertyPricing struct {
	DailyRate       *float64 `bson:"daily_rate,omitempty" json:"daily_rate,omitempty"`
	WeeklyDiscount  *float64 `bson:"weekly_discount,omitempty" json:"weekly_discount,omitempty"`   // percent
	MonthlyDiscount *float64 `bson:"monthly_discount,omitempty" json:"monthly_discount,omitempty"` // percent
	CleaningFee     *float64 `bson:"cleaning_fee,omitempty" json:"cleaning_fee,omitempty"`
	SecurityDeposit *float64 `bson:"security_deposit,omitempty" json:"security_deposit,omitempty"`
	MinimumStay     *int     `bson:"minimum_stay,omitempty" json:"minimum_stay,omitempty"` // days
	MaximumStay     *int     `bson:"maximum_stay,omitempty" json:"maximum_stay,omitempty"` // days
}

// Property is the listing record. Listing CRUD lives elsewhere; this service reads pricing
// and writes only Available, guarded by Version.
type Property struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner      primitive.ObjectID `bson:"owner" json:"owner"`
	Title      string             `bson:"title" json:"title"`
	Price      float64            `bson:"price" json:"price"`
	RentPeriod RentPeriod         `bson:"rent_period" json:"rent_period"`
	Pricing    PropertyPricing    `bson:"pricing" json:"pricing"`
	Available  bool               `bson:"available" json:"available"`
	Version    int64              `bson:"version" json:"version"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
