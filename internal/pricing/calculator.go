// Package pricing computes rental cost breakdowns. Everything here is pure: the same inputs always
// produce the same breakdown.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"renthub/internal/apperr"
	"renthub/internal/models"
)

const (
	ServiceFeePercent = 5
	TaxPercent        = 15
)

// Discount tiers.
const (
	DiscountNone    = "none"
	DiscountWeekly  = "weekly"
	DiscountMonthly = "monthly"
)

// Duration describes the booked span.
type Duration struct {
	Days     int       `json:"days"`
	Weeks    int       `json:"weeks"`
	Months   int       `json:"months"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Discount is the tier applied to the base rent.
type Discount struct {
	Type       string          `json:"type"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
}

// Amounts are the monetary figures of a breakdown in one currency.
type Amounts struct {
	DailyRate         decimal.Decimal `json:"daily_rate"`
	BaseRent          decimal.Decimal `json:"base_rent"`
	Discount          decimal.Decimal `json:"discount"`
	RentAfterDiscount decimal.Decimal `json:"rent_after_discount"`
	CleaningFee       decimal.Decimal `json:"cleaning_fee"`
	ServiceFee        decimal.Decimal `json:"service_fee"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Total             decimal.Decimal `json:"total"`
	SecurityDeposit   decimal.Decimal `json:"security_deposit"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
}

func (a Amounts) convert(c Currency) Amounts {
	return Amounts{
		DailyRate:         c.Convert(a.DailyRate),
		BaseRent:          c.Convert(a.BaseRent),
		Discount:          c.Convert(a.Discount),
		RentAfterDiscount: c.Convert(a.RentAfterDiscount),
		CleaningFee:       c.Convert(a.CleaningFee),
		ServiceFee:        c.Convert(a.ServiceFee),
		Subtotal:          c.Convert(a.Subtotal),
		Tax:               c.Convert(a.Tax),
		Total:             c.Convert(a.Total),
		SecurityDeposit:   c.Convert(a.SecurityDeposit),
		GrandTotal:        c.Convert(a.GrandTotal),
	}
}

// LineItem is one displayable row of the breakdown.
type LineItem struct {
	Label        string          `json:"label"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	IsTotal      bool            `json:"is_total,omitempty"`
	IsDeposit    bool            `json:"is_deposit,omitempty"`
	IsFinalTotal bool            `json:"is_final_total,omitempty"`
}

// Summary repeats the headline figures in the target currency.
type Summary struct {
	DurationDays    int             `json:"duration_days"`
	DailyRate       decimal.Decimal `json:"daily_rate"`
	TotalRent       decimal.Decimal `json:"total_rent"`
	SecurityDeposit decimal.Decimal `json:"security_deposit"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	DiscountSaved   decimal.Decimal `json:"discount_saved"`
}

// Breakdown is the itemised cost of a stay.
type Breakdown struct {
	Currency            string          `json:"currency"`
	CurrencySymbol      string          `json:"currency_symbol"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"`
	Duration            Duration        `json:"duration"`
	Discount            Discount        `json:"discount"`
	ServiceFeeRate      decimal.Decimal `json:"service_fee_rate"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	Amounts             Amounts         `json:"amounts"`
	BaseAmounts         Amounts         `json:"base_amounts"` // USD, before conversion
	LineItems           []LineItem      `json:"line_items"`
	Summary             Summary         `json:"summary"`
	AvailableCurrencies []Currency      `json:"available_currencies"`
}

// DurationDays is the whole-day ceiling of the span between checkIn and checkOut.
func DurationDays(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	days := d / (24 * time.Hour)
	if d%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}

// Calculate prices a stay at p from checkIn to checkOut in the requested currency.
func Calculate(p *models.Property, checkIn, checkOut time.Time, currency string) (*Breakdown, error) {
	if !checkOut.After(checkIn) {
		return nil, apperr.ErrInvalidDateRange
	}
	days := DurationDays(checkIn, checkOut)
	terms := ResolveTerms(p)
	if err := checkStay(days, terms); err != nil {
		return nil, err
	}
	cur, ok := LookupCurrency(currency)
	if !ok {
		return nil, apperr.New(apperr.KindUnsupportedCurrency, "unsupported currency %q", currency)
	}

	tier, pct := discountTier(days, terms)

	var usd Amounts
	usd.DailyRate = terms.DailyRate
	usd.BaseRent = terms.DailyRate.Mul(decimal.NewFromInt(int64(days)))
	usd.Discount = percentOf(usd.BaseRent, pct)
	usd.RentAfterDiscount = usd.BaseRent.Sub(usd.Discount)
	usd.CleaningFee = terms.CleaningFee
	usd.ServiceFee = percentOf(usd.RentAfterDiscount, decimal.NewFromInt(ServiceFeePercent))
	usd.Subtotal = usd.RentAfterDiscount.Add(usd.CleaningFee).Add(usd.ServiceFee)
	usd.Tax = percentOf(usd.Subtotal, decimal.NewFromInt(TaxPercent))
	usd.Total = usd.Subtotal.Add(usd.Tax)
	usd.SecurityDeposit = terms.SecurityDeposit
	usd.GrandTotal = usd.Total.Add(usd.SecurityDeposit)

	out := usd.convert(cur)

	b := &Breakdown{
		Currency:       cur.Code,
		CurrencySymbol: cur.Symbol,
		ExchangeRate:   cur.Rate,
		Duration: Duration{
			Days:     days,
			Weeks:    days / daysPerWeek,
			Months:   days / daysPerMonth,
			CheckIn:  checkIn,
			CheckOut: checkOut,
		},
		Discount: Discount{
			Type:       tier,
			Percentage: pct,
			Amount:     out.Discount,
		},
		ServiceFeeRate:      decimal.NewFromInt(ServiceFeePercent),
		TaxRate:             decimal.NewFromInt(TaxPercent),
		Amounts:             out,
		BaseAmounts:         usd,
		LineItems:           lineItems(days, tier, pct, out, cur),
		AvailableCurrencies: Currencies(),
		Summary: Summary{
			DurationDays:    days,
			DailyRate:       out.DailyRate,
			TotalRent:       out.Total,
			SecurityDeposit: out.SecurityDeposit,
			GrandTotal:      out.GrandTotal,
			DiscountSaved:   out.Discount,
		},
	}
	return b, nil
}

func checkStay(days int, t Terms) error {
	if days < t.MinimumStay {
		return &apperr.Error{Kind: apperr.KindStayTooShort, Message: fmt.Sprintf("minimum stay is %d day(s)", t.MinimumStay)}
	}
	if days > t.MaximumStay {
		return &apperr.Error{Kind: apperr.KindStayTooLong, Message: fmt.Sprintf("maximum stay is %d day(s)", t.MaximumStay)}
	}
	return nil
}

// discountTier picks the single tier for the stay. The monthly check runs first.
func discountTier(days int, t Terms) (string, decimal.Decimal) {
	switch {
	case days >= daysPerMonth:
		return DiscountMonthly, t.MonthlyDiscount
	case days >= daysPerWeek:
		return DiscountWeekly, t.WeeklyDiscount
	default:
		return DiscountNone, decimal.Zero
	}
}

func lineItems(days int, tier string, pct decimal.Decimal, a Amounts, cur Currency) []LineItem {
	items := []LineItem{{
		Label:       "Base Rent",
		Description: fmt.Sprintf("%d days × %s/day", days, FormatMoney(a.DailyRate, cur)),
		Amount:      a.BaseRent,
	}}
	if a.Discount.IsPositive() {
		label := "Weekly Discount"
		if tier == DiscountMonthly {
			label = "Monthly Discount"
		}
		items = append(items, LineItem{
			Label:       label,
			Description: pct.String() + "% off",
			Amount:      a.Discount.Neg(),
		})
	}
	items = append(items,
		LineItem{Label: "Cleaning Fee", Description: "One-time fee", Amount: a.CleaningFee},
		LineItem{Label: "Service Fee", Description: fmt.Sprintf("%d%% platform fee", ServiceFeePercent), Amount: a.ServiceFee},
		LineItem{Label: "Tax (VAT)", Description: fmt.Sprintf("%d%% tax", TaxPercent), Amount: a.Tax},
		LineItem{Label: "Total Rent", Description: "Amount due at booking", Amount: a.Total, IsTotal: true},
		LineItem{Label: "Security Deposit", Description: "Refundable (held in escrow)", Amount: a.SecurityDeposit, IsDeposit: true},
		LineItem{Label: "Total Amount", Description: "Rent + Deposit", Amount: a.GrandTotal, IsFinalTotal: true},
	)
	return items
}

// ValidationResult lists every rule a date range breaks.
type ValidationResult struct {
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors"`
	DurationDays int      `json:"duration_days"`
}

// ValidateDates checks a prospective stay without pricing it. now is truncated to the start of its day,
// so a same-day check-in is accepted.
func ValidateDates(p *models.Property, checkIn, checkOut, now time.Time) ValidationResult {
	terms := ResolveTerms(p)
	res := ValidationResult{Errors: []string{}}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if checkIn.Before(today) {
		res.Errors = append(res.Errors, "Check-in date cannot be in the past")
	}
	if !checkOut.After(checkIn) {
		res.Errors = append(res.Errors, apperr.ErrInvalidDateRange.Message)
	} else {
		res.DurationDays = DurationDays(checkIn, checkOut)
		if err := checkStay(res.DurationDays, terms); err != nil {
			res.Errors = append(res.Errors, err.Error())
		}
	}
	res.Valid = len(res.Errors) == 0
	return res
}
