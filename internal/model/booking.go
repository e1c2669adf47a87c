package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// BookingState is the lifecycle state of a booking.
type BookingState string

const (
    BookingDraft      BookingState = "draft"
    BookingWaitlisted BookingState = "waitlisted"
    BookingConfirmed  BookingState = "confirmed"
    BookingDone       BookingState = "done"
    BookingCancelled  BookingState = "cancelled"
)

// allowedTransitions lists, for each state, the states it may move to.
// done and cancelled are terminal.
var allowedTransitions = map[BookingState]map[BookingState]bool{
    BookingDraft: {
        BookingConfirmed:  true,
        BookingWaitlisted: true,
        BookingCancelled:  true,
    },
    BookingWaitlisted: {
        BookingConfirmed: true,
        BookingCancelled: true,
    },
    BookingConfirmed: {
        BookingDone:      true,
        BookingCancelled: true,
    },
    BookingDone:      {},
    BookingCancelled: {},
}

// Valid reports whether s is one of the known states.
func (s BookingState) Valid() bool {
    _, ok := allowedTransitions[s]
    return ok
}

// CanTransition reports whether a booking in state from may move to state to.
func CanTransition(from, to BookingState) bool {
    return allowedTransitions[from][to]
}

// IsTerminal reports whether no further transition is possible from s.
func (s BookingState) IsTerminal() bool {
    return s == BookingDone || s == BookingCancelled
}

// HoldsSeats reports whether a booking in state s counts against capacity.
func (s BookingState) HoldsSeats() bool {
    return s == BookingConfirmed || s == BookingDone
}

// Finalized reports whether the booking's commercial fields are frozen.
func (s BookingState) Finalized() bool {
    return s == BookingConfirmed || s == BookingDone || s == BookingCancelled
}

// Editable field names accepted by booking updates.
const (
    FieldQuantity      = "quantity"
    FieldBookingDate   = "booking_date"
    FieldNotes         = "notes"
    FieldReviewRating  = "review_rating"
    FieldReviewComment = "review_comment"
)

// postConfirmationFields may still be written once a booking is
// confirmed or done.
var postConfirmationFields = map[string]bool{
    FieldReviewRating:  true,
    FieldReviewComment: true,
}

// EditableAfterConfirmation reports whether field may be changed on a
// confirmed or done booking.
func EditableAfterConfirmation(field string) bool {
    return postConfirmationFields[field]
}

// Review rating bounds.
const (
    MinReviewRating = 1
    MaxReviewRating = 5
)

// Booking links a customer to a catalog item.  Reference is issued once at
// creation and never changes.  UnitPrice and Amount are computed when the
// booking is written and are not affected by later catalog price changes.
type Booking struct {
    ID            uint64          `json:"id"`
    Reference     string          `json:"reference"`
    CustomerID    uint64          `json:"customer_id"`
    ItemID        uint64          `json:"item_id"`
    Quantity      int             `json:"quantity"`
    BookingDate   time.Time       `json:"booking_date"`
    UnitPrice     decimal.Decimal `json:"unit_price"`
    Amount        decimal.Decimal `json:"amount"`
    Currency      string          `json:"currency"`
    State         BookingState    `json:"state"`
    Notes         string          `json:"notes,omitempty"`
    ReviewRating  *int            `json:"review_rating,omitempty"`
    ReviewComment string          `json:"review_comment,omitempty"`
    CompanyID     uint64          `json:"company_id"`
    Audit
}

// BookingFilter narrows booking listings.  Zero values mean "no filter".
type BookingFilter struct {
    States     []BookingState
    ItemID     uint64
    CustomerID uint64
    From       *time.Time // BookingDate >= From
    To         *time.Time // BookingDate <  To
    Page       int
    PageSize   int
}

// Offset returns the row offset of the filter's page (pages start at 1).
func (f BookingFilter) Offset() int {
    if f.Page <= 1 {
        return 0
    }
    return (f.Page - 1) * f.PageSize
}

// BookingView is a booking decorated with read-time information.
type BookingView struct {
    Booking
    ItemName         string `json:"item_name,omitempty"`
    WaitlistPosition int    `json:"waitlist_position,omitempty"` // 1-based; 0 unless waitlisted
}
