package model

import (
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "pgregory.net/rapid"
)

var allStates = []BookingState{
    BookingDraft, BookingWaitlisted, BookingConfirmed, BookingDone, BookingCancelled,
}

func TestCanTransition(t *testing.T) {
    cases := []struct {
        from, to BookingState
        want     bool
    }{
        {BookingDraft, BookingConfirmed, true},
        {BookingDraft, BookingWaitlisted, true},
        {BookingDraft, BookingCancelled, true},
        {BookingDraft, BookingDone, false},
        {BookingWaitlisted, BookingConfirmed, true},
        {BookingWaitlisted, BookingCancelled, true},
        {BookingWaitlisted, BookingDone, false},
        {BookingConfirmed, BookingDone, true},
        {BookingConfirmed, BookingCancelled, true},
        {BookingConfirmed, BookingWaitlisted, false},
        {BookingDone, BookingCancelled, false},
        {BookingCancelled, BookingDraft, false},
        {BookingCancelled, BookingConfirmed, false},
    }
    for _, tc := range cases {
        assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
    }
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
    rapid.Check(t, func(t *rapid.T) {
        from := rapid.SampledFrom(allStates).Draw(t, "from")
        to := rapid.SampledFrom(allStates).Draw(t, "to")
        if from.IsTerminal() && CanTransition(from, to) {
            t.Fatalf("terminal state %s allows transition to %s", from, to)
        }
        if from == to && CanTransition(from, to) {
            t.Fatalf("self transition allowed for %s", from)
        }
    })
}

func TestUnknownStateIsInvalid(t *testing.T) {
    assert.False(t, BookingState("pending").Valid())
    assert.False(t, CanTransition("pending", BookingConfirmed))
    for _, s := range allStates {
        assert.True(t, s.Valid())
    }
}

func TestEditableAfterConfirmation(t *testing.T) {
    assert.True(t, EditableAfterConfirmation(FieldReviewRating))
    assert.True(t, EditableAfterConfirmation(FieldReviewComment))
    assert.False(t, EditableAfterConfirmation(FieldQuantity))
    assert.False(t, EditableAfterConfirmation(FieldBookingDate))
    assert.False(t, EditableAfterConfirmation(FieldNotes))
}

func TestAvailableSeats(t *testing.T) {
    item := &CatalogItem{Capacity: 10}
    assert.Equal(t, 7, AvailableSeats(item, ItemStats{ReservedSeats: 3}))
    assert.Equal(t, 0, AvailableSeats(item, ItemStats{ReservedSeats: 12}), "overbooked items never report negative seats")

    unlimited := &CatalogItem{Capacity: 0}
    assert.Equal(t, -1, AvailableSeats(unlimited, ItemStats{ReservedSeats: 50}))
    assert.Zero(t, FillRate(unlimited, ItemStats{ReservedSeats: 50}))
}

func TestFillRate(t *testing.T) {
    item := &CatalogItem{Capacity: 3}
    assert.Equal(t, 33.33, FillRate(item, ItemStats{ReservedSeats: 1}))
    assert.Equal(t, 100.0, FillRate(item, ItemStats{ReservedSeats: 3}))
}

func TestNewItemDetail(t *testing.T) {
    item := CatalogItem{ID: 1, Capacity: 4, Price: decimal.NewFromInt(10)}
    d := NewItemDetail(item, ItemStats{ReservedSeats: 1, ConfirmedCount: 1})
    assert.Equal(t, 3, d.AvailableSeats)
    assert.Equal(t, 25.0, d.FillRate)
    assert.Equal(t, uint64(1), d.ID)
}

func TestFilterOffset(t *testing.T) {
    assert.Equal(t, 0, ItemFilter{Page: 0, PageSize: 20}.Offset())
    assert.Equal(t, 0, ItemFilter{Page: 1, PageSize: 20}.Offset())
    assert.Equal(t, 40, BookingFilter{Page: 3, PageSize: 20}.Offset())
}
