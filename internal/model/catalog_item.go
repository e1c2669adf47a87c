package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// CatalogItem is a bookable event or service.  Items are archived through
// Active=false rather than deleted, and only published items can be
// booked from the public API.
//
// Fields:
//  ID                 – primary key identifier.
//  Name               – required display name.
//  Price              – regular unit price (>= 0).
//  Currency           – ISO 4217 code, USD unless configured otherwise.
//  CategoryID         – optional category.
//  TagIDs             – many-to-many tags (item_tags).
//  Capacity           – maximum reserved seats; 0 means unlimited.
//  CompanyID          – owning tenant.
//  StartAt / EndAt    – optional schedule; EndAt must follow StartAt.
//  EarlyBirdPrice     – optional reduced price, strictly below Price.
//  EarlyBirdDeadline  – last instant the early-bird price applies.
//  DiscountPercentage – percentage applied on top of the unit price, 0..100.
type CatalogItem struct {
    ID                 uint64           `json:"id"`
    Name               string           `json:"name"`
    Description        string           `json:"description,omitempty"`
    Price              decimal.Decimal  `json:"price"`
    Currency           string           `json:"currency"`
    Active             bool             `json:"active"`
    Published          bool             `json:"published"`
    CategoryID         *uint64          `json:"category_id,omitempty"`
    TagIDs             []uint64         `json:"tag_ids"`
    Capacity           int              `json:"capacity"`
    CompanyID          uint64           `json:"company_id"`
    StartAt            *time.Time       `json:"start_at,omitempty"`
    EndAt              *time.Time       `json:"end_at,omitempty"`
    EarlyBirdPrice     *decimal.Decimal `json:"early_bird_price,omitempty"`
    EarlyBirdDeadline  *time.Time       `json:"early_bird_deadline,omitempty"`
    DiscountPercentage decimal.Decimal  `json:"discount_percentage"`
    Audit
}

// Bookable reports whether new bookings may be confirmed against the item.
func (i *CatalogItem) Bookable() bool {
    return i.Active && i.Published
}

// Unlimited reports whether the item has no capacity limit.
func (i *CatalogItem) Unlimited() bool {
    return i.Capacity == 0
}

// ItemStats aggregates the bookings of one catalog item.  ReservedSeats is
// the quantity held by confirmed and done bookings; it is what capacity is
// measured against.
type ItemStats struct {
    BookingCount   int             `json:"booking_count"`   // every booking except cancelled ones
    ConfirmedCount int             `json:"confirmed_count"` // confirmed + done bookings
    ReservedSeats  int             `json:"reserved_seats"`  // SUM(quantity) of confirmed + done
    WaitlistCount  int             `json:"waitlist_count"`  // waitlisted bookings
    Revenue        decimal.Decimal `json:"total_revenue"`   // SUM(amount) of confirmed + done
}

// AvailableSeats returns the remaining capacity for the item.  It returns
// -1 for unlimited items and never a negative number otherwise, even when
// an administrator overbooked through a manual promotion.
func AvailableSeats(item *CatalogItem, stats ItemStats) int {
    if item.Unlimited() {
        return -1
    }
    left := item.Capacity - stats.ReservedSeats
    if left < 0 {
        return 0
    }
    return left
}

// FillRate returns the reserved share of the capacity as a percentage
// rounded to two decimals.  Unlimited items always report 0.
func FillRate(item *CatalogItem, stats ItemStats) float64 {
    if item.Unlimited() {
        return 0
    }
    rate := decimal.NewFromInt(int64(stats.ReservedSeats)).
        Mul(decimal.NewFromInt(100)).
        Div(decimal.NewFromInt(int64(item.Capacity))).
        Round(2)
    f, _ := rate.Float64()
    return f
}

// ItemDetail is the read model returned by the detail endpoint.
type ItemDetail struct {
    CatalogItem
    ItemStats
    AvailableSeats int     `json:"available_seats"`
    FillRate       float64 `json:"fill_rate"`
}

// NewItemDetail derives the computed fields of an item at read time.
func NewItemDetail(item CatalogItem, stats ItemStats) ItemDetail {
    return ItemDetail{
        CatalogItem:    item,
        ItemStats:      stats,
        AvailableSeats: AvailableSeats(&item, stats),
        FillRate:       FillRate(&item, stats),
    }
}

// ItemFilter narrows catalog listings.  Nil pointers mean "no filter".
type ItemFilter struct {
    Active     *bool
    Published  *bool
    CategoryID *uint64
    TagID      *uint64
    CompanyID  *uint64
    Query      string     // substring match on name/description
    StartFrom  *time.Time // StartAt >= StartFrom
    StartTo    *time.Time // StartAt <  StartTo
    Page       int
    PageSize   int
}

// Offset returns the row offset of the filter's page (pages start at 1).
func (f ItemFilter) Offset() int {
    if f.Page <= 1 {
        return 0
    }
    return (f.Page - 1) * f.PageSize
}
