package testutil

import (
    "time"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/bookable/internal/model"
)

// SeedItem stores a bookable item with the given capacity and price and
// returns it.
func (s *Store) SeedItem(name string, capacity int, price string) model.CatalogItem {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
    it := model.CatalogItem{
        ID:                 s.nextID(),
        Name:               name,
        Price:              decimal.RequireFromString(price),
        Currency:           "USD",
        Active:             true,
        Published:          true,
        TagIDs:             []uint64{},
        Capacity:           capacity,
        CompanyID:          1,
        DiscountPercentage: decimal.Zero,
        Audit:              model.Audit{CreatedAt: now, UpdatedAt: now},
    }
    s.data.items[it.ID] = it
    return it
}

// SeedUser stores a user and returns it.
func (s *Store) SeedUser(email, role string) model.User {
    s.mu.Lock()
    defer s.mu.Unlock()
    u := model.User{ID: s.nextID(), Email: email, Name: email, Role: role, CompanyID: 1, IsActive: true}
    s.data.users[u.ID] = u
    return u
}

// Booking returns the stored booking id, or the zero value.
func (s *Store) Booking(id uint64) model.Booking {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.data.bookings[id]
}
