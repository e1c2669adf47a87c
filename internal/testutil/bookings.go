package testutil

import (
    "context"
    "sort"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/repository"
)

type Bookings struct{ s *Store }

func (r *Bookings) Create(_ context.Context, b *model.Booking) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    for _, other := range r.s.data.bookings {
        if other.Reference == b.Reference {
            return repository.ErrDuplicate
        }
    }
    if _, ok := r.s.data.items[b.ItemID]; !ok {
        return repository.ErrNotFound
    }
    b.ID = r.s.nextID()
    r.s.data.bookings[b.ID] = *b
    return nil
}

func (r *Bookings) Update(_ context.Context, b *model.Booking) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    cur, ok := r.s.data.bookings[b.ID]
    if !ok {
        return repository.ErrNotFound
    }
    // immutable columns are not written, as in the SQL UPDATE
    next := *b
    next.Reference, next.CustomerID, next.ItemID, next.CompanyID = cur.Reference, cur.CustomerID, cur.ItemID, cur.CompanyID
    next.CreatedAt, next.CreatedBy, next.Currency = cur.CreatedAt, cur.CreatedBy, cur.Currency
    r.s.data.bookings[b.ID] = next
    return nil
}

func (r *Bookings) Delete(_ context.Context, id uint64) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.bookings[id]; !ok {
        return repository.ErrNotFound
    }
    delete(r.s.data.bookings, id)
    return nil
}

func (r *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    b, ok := r.s.data.bookings[id]
    if !ok {
        return model.Booking{}, repository.ErrNotFound
    }
    return b, nil
}

func (r *Bookings) GetForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
    return r.GetByID(ctx, id)
}

func (r *Bookings) ExistsForCustomer(_ context.Context, customerID, itemID uint64, states []model.BookingState, excludeID uint64) (bool, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    for _, b := range r.s.data.bookings {
        if b.ID == excludeID || b.CustomerID != customerID || b.ItemID != itemID {
            continue
        }
        for _, st := range states {
            if b.State == st {
                return true, nil
            }
        }
    }
    return false, nil
}

func (r *Bookings) CountForItem(_ context.Context, itemID uint64) (int, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    n := 0
    for _, b := range r.s.data.bookings {
        if b.ItemID == itemID {
            n++
        }
    }
    return n, nil
}

func byCreation(list []model.Booking) {
    sort.Slice(list, func(i, j int) bool {
        if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
            return list[i].CreatedAt.Before(list[j].CreatedAt)
        }
        return list[i].ID < list[j].ID
    })
}

func (r *Bookings) Waitlist(_ context.Context, itemID uint64) ([]model.Booking, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := []model.Booking{}
    for _, b := range r.s.data.bookings {
        if b.ItemID == itemID && b.State == model.BookingWaitlisted {
            out = append(out, b)
        }
    }
    byCreation(out)
    return out, nil
}

func (r *Bookings) WaitlistPosition(ctx context.Context, b model.Booking) (int, error) {
    list, err := r.Waitlist(ctx, b.ItemID)
    if err != nil {
        return 0, err
    }
    for i, w := range list {
        if w.ID == b.ID {
            return i + 1, nil
        }
    }
    return 0, nil
}

func (r *Bookings) List(_ context.Context, f model.BookingFilter) ([]model.BookingView, int, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    matched := []model.Booking{}
    for _, b := range r.s.data.bookings {
        if f.ItemID != 0 && b.ItemID != f.ItemID {
            continue
        }
        if f.CustomerID != 0 && b.CustomerID != f.CustomerID {
            continue
        }
        if f.From != nil && b.BookingDate.Before(*f.From) {
            continue
        }
        if f.To != nil && !b.BookingDate.Before(*f.To) {
            continue
        }
        if len(f.States) > 0 {
            ok := false
            for _, st := range f.States {
                ok = ok || b.State == st
            }
            if !ok {
                continue
            }
        }
        matched = append(matched, b)
    }
    byCreation(matched)
    // newest first
    for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
        matched[i], matched[j] = matched[j], matched[i]
    }
    page := paginate(matched, f.Offset(), f.PageSize)
    out := make([]model.BookingView, 0, len(page))
    for _, b := range page {
        out = append(out, model.BookingView{Booking: b, ItemName: r.s.data.items[b.ItemID].Name})
    }
    return out, len(matched), nil
}
