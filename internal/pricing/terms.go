package pricing

import (
	"github.com/shopspring/decimal"

	"renthub/internal/models"
)

const (
	DefaultWeeklyDiscount  = 10 // percent
	DefaultMonthlyDiscount = 20 // percent
	DefaultCleaningFee     = 50
	DefaultMinimumStay     = 1   // days
	DefaultMaximumStay     = 365 // days

	daysPerMonth = 30
	daysPerWeek  = 7
)

var hundred = decimal.NewFromInt(100)

// Terms is a property's effective pricing after defaults are applied. All amounts are USD.
type Terms struct {
	RentPeriod      models.RentPeriod `json:"rent_period"`
	Price           decimal.Decimal   `json:"price"`
	DailyRate       decimal.Decimal   `json:"daily_rate"`
	WeeklyDiscount  decimal.Decimal   `json:"weekly_discount"`
	MonthlyDiscount decimal.Decimal   `json:"monthly_discount"`
	CleaningFee     decimal.Decimal   `json:"cleaning_fee"`
	SecurityDeposit decimal.Decimal   `json:"security_deposit"`
	MinimumStay     int               `json:"minimum_stay"`
	MaximumStay     int               `json:"maximum_stay"`
	WeeklyRate      decimal.Decimal   `json:"weekly_rate"`
	MonthlyRate     decimal.Decimal   `json:"monthly_rate"`
}

// ResolveTerms applies defaults to the property's pricing block.
// An explicit zero discount, fee or deposit is honoured; a non-positive daily rate or stay bound falls back.
func ResolveTerms(p *models.Property) Terms {
	price := decimal.NewFromFloat(p.Price)
	pr := p.Pricing

	t := Terms{
		RentPeriod:      p.RentPeriod,
		Price:           price,
		WeeklyDiscount:  floatOr(pr.WeeklyDiscount, DefaultWeeklyDiscount),
		MonthlyDiscount: floatOr(pr.MonthlyDiscount, DefaultMonthlyDiscount),
		CleaningFee:     floatOr(pr.CleaningFee, DefaultCleaningFee),
		SecurityDeposit: price,
		MinimumStay:     DefaultMinimumStay,
		MaximumStay:     DefaultMaximumStay,
	}
	if t.RentPeriod == "" {
		t.RentPeriod = models.RentPeriodMonth
	}
	if pr.SecurityDeposit != nil {
		t.SecurityDeposit = decimal.NewFromFloat(*pr.SecurityDeposit)
	}
	if pr.MinimumStay != nil && *pr.MinimumStay > 0 {
		t.MinimumStay = *pr.MinimumStay
	}
	if pr.MaximumStay != nil && *pr.MaximumStay > 0 {
		t.MaximumStay = *pr.MaximumStay
	}

	switch {
	case t.RentPeriod == models.RentPeriodDay:
		t.DailyRate = price
	case pr.DailyRate != nil && *pr.DailyRate > 0:
		t.DailyRate = decimal.NewFromFloat(*pr.DailyRate)
	default:
		t.DailyRate = price.Div(decimal.NewFromInt(daysPerMonth))
	}

	t.WeeklyRate = discounted(t.DailyRate.Mul(decimal.NewFromInt(daysPerWeek)), t.WeeklyDiscount)
	t.MonthlyRate = discounted(t.DailyRate.Mul(decimal.NewFromInt(daysPerMonth)), t.MonthlyDiscount)
	return t
}

func discounted(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Sub(percentOf(amount, percent))
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// floatOr falls back to def only when v is unset; an explicit zero is kept.
func floatOr(v *float64, def float64) decimal.Decimal {
	if v == nil {
		return decimal.NewFromFloat(def)
	}
	return decimal.NewFromFloat(*v)
}
