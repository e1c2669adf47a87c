// Package pricing computes what a booking costs.  All amounts are
// decimals rounded to two places; the caller stores the result on the
// booking so later catalog edits never change an existing amount.
package pricing

import (
    "errors"
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/bookable/internal/model"
)

var (
    hundred = decimal.NewFromInt(100)

    ErrNegativePrice     = errors.New("price must not be negative")
    ErrNegativeCapacity  = errors.New("capacity must not be negative")
    ErrDiscountRange     = errors.New("discount percentage must be between 0 and 100")
    ErrEarlyBirdPrice    = errors.New("early bird price must be lower than the regular price")
    ErrEarlyBirdDeadline = errors.New("early bird deadline must be before the start date")
    ErrEndBeforeStart    = errors.New("end date must be after the start date")
    ErrEarlyBirdNoDate   = errors.New("early bird price requires a deadline")
)

// Quote is a price breakdown for a quantity of an item on a given date.
type Quote struct {
    BasePrice        decimal.Decimal `json:"base_price"`
    UnitPrice        decimal.Decimal `json:"unit_price"`
    Quantity         int             `json:"quantity"`
    Subtotal         decimal.Decimal `json:"subtotal"`
    Currency         string          `json:"currency"`
    EarlyBirdApplied bool            `json:"early_bird_applied"`
    Discount         decimal.Decimal `json:"discount_percentage"`
}

// earlyBird reports whether the early-bird price applies on date.
func earlyBird(item *model.CatalogItem, date time.Time) bool {
    if item.EarlyBirdPrice == nil || !item.EarlyBirdPrice.IsPositive() {
        return false
    }
    if item.EarlyBirdDeadline == nil {
        return false
    }
    return !date.After(*item.EarlyBirdDeadline)
}

// BasePrice returns the price before the discount: the early-bird price
// when it applies on date, the regular price otherwise.
func BasePrice(item *model.CatalogItem, date time.Time) decimal.Decimal {
    if earlyBird(item, date) {
        return *item.EarlyBirdPrice
    }
    return item.Price
}

// UnitPrice returns the final price of one unit booked on date.
func UnitPrice(item *model.CatalogItem, date time.Time) decimal.Decimal {
    base := BasePrice(item, date)
    if item.DiscountPercentage.IsPositive() {
        base = base.Mul(hundred.Sub(item.DiscountPercentage)).Div(hundred)
    }
    return base.Round(2)
}

// Amount multiplies a unit price by a quantity.
func Amount(unit decimal.Decimal, qty int) decimal.Decimal {
    return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// Subtotal returns the amount for qty units of item booked on date.
func Subtotal(item *model.CatalogItem, date time.Time, qty int) decimal.Decimal {
    return Amount(UnitPrice(item, date), qty)
}

// NewQuote builds the full price breakdown.
func NewQuote(item *model.CatalogItem, date time.Time, qty int) Quote {
    unit := UnitPrice(item, date)
    return Quote{
        BasePrice:        item.Price,
        UnitPrice:        unit,
        Quantity:         qty,
        Subtotal:         Amount(unit, qty),
        Currency:         item.Currency,
        EarlyBirdApplied: earlyBird(item, date),
        Discount:         item.DiscountPercentage,
    }
}

// ValidateItem checks the price, capacity and schedule consistency of an
// item.  It returns the first rule violated.
func ValidateItem(item *model.CatalogItem) error {
    if item.Price.IsNegative() {
        return ErrNegativePrice
    }
    if item.Capacity < 0 {
        return ErrNegativeCapacity
    }
    if item.DiscountPercentage.IsNegative() || item.DiscountPercentage.GreaterThan(hundred) {
        return ErrDiscountRange
    }
    if item.EarlyBirdPrice != nil && item.EarlyBirdPrice.IsPositive() {
        if !item.EarlyBirdPrice.LessThan(item.Price) {
            return ErrEarlyBirdPrice
        }
        if item.EarlyBirdDeadline == nil {
            return ErrEarlyBirdNoDate
        }
    }
    if item.EarlyBirdPrice != nil && item.EarlyBirdPrice.IsNegative() {
        return ErrNegativePrice
    }
    if item.EarlyBirdDeadline != nil && item.StartAt != nil && !item.EarlyBirdDeadline.Before(*item.StartAt) {
        return ErrEarlyBirdDeadline
    }
    if item.StartAt != nil && item.EndAt != nil && !item.EndAt.After(*item.StartAt) {
        return ErrEndBeforeStart
    }
    return nil
}
