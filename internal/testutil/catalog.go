package testutil

import (
    "context"
    "sort"
    "strings"

    "github.com/shopspring/decimal"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/repository"
)

type Items struct{ s *Store }

func copyItem(it model.CatalogItem) model.CatalogItem {
    it.TagIDs = append([]uint64{}, it.TagIDs...)
    return it
}

func (r *Items) Create(_ context.Context, it *model.CatalogItem) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if it.CategoryID != nil {
        if _, ok := r.s.data.categories[*it.CategoryID]; !ok {
            return repository.ErrNotFound
        }
    }
    it.ID = r.s.nextID()
    r.s.data.items[it.ID] = copyItem(*it)
    return nil
}

func (r *Items) Update(_ context.Context, it *model.CatalogItem) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.items[it.ID]; !ok {
        return repository.ErrNotFound
    }
    r.s.data.items[it.ID] = copyItem(*it)
    return nil
}

func (r *Items) Delete(_ context.Context, id uint64) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.items[id]; !ok {
        return repository.ErrNotFound
    }
    for _, b := range r.s.data.bookings {
        if b.ItemID == id {
            return repository.ErrConflict
        }
    }
    delete(r.s.data.items, id)
    return nil
}

func (r *Items) GetByID(_ context.Context, id uint64) (model.CatalogItem, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    it, ok := r.s.data.items[id]
    if !ok {
        return model.CatalogItem{}, repository.ErrNotFound
    }
    return copyItem(it), nil
}

// GetForUpdate behaves like GetByID; Store.WithTx already serialises
// transactions.
func (r *Items) GetForUpdate(ctx context.Context, id uint64) (model.CatalogItem, error) {
    return r.GetByID(ctx, id)
}

func (r *Items) List(_ context.Context, f model.ItemFilter) ([]model.CatalogItem, int, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    q := strings.ToLower(strings.TrimSpace(f.Query))
    matched := []model.CatalogItem{}
    for _, it := range r.s.data.items {
        switch {
        case f.Active != nil && it.Active != *f.Active:
            continue
        case f.Published != nil && it.Published != *f.Published:
            continue
        case f.CategoryID != nil && (it.CategoryID == nil || *it.CategoryID != *f.CategoryID):
            continue
        case f.CompanyID != nil && it.CompanyID != *f.CompanyID:
            continue
        case q != "" && !strings.Contains(strings.ToLower(it.Name), q) && !strings.Contains(strings.ToLower(it.Description), q):
            continue
        case f.StartFrom != nil && (it.StartAt == nil || it.StartAt.Before(*f.StartFrom)):
            continue
        case f.StartTo != nil && (it.StartAt == nil || !it.StartAt.Before(*f.StartTo)):
            continue
        }
        if f.TagID != nil {
            found := false
            for _, tid := range it.TagIDs {
                if tid == *f.TagID {
                    found = true
                }
            }
            if !found {
                continue
            }
        }
        matched = append(matched, copyItem(it))
    }
    sort.Slice(matched, func(i, j int) bool {
        a, b := matched[i], matched[j]
        if (a.StartAt == nil) != (b.StartAt == nil) {
            return a.StartAt != nil
        }
        if a.StartAt != nil && !a.StartAt.Equal(*b.StartAt) {
            return a.StartAt.Before(*b.StartAt)
        }
        return a.ID < b.ID
    })
    return paginate(matched, f.Offset(), f.PageSize), len(matched), nil
}

func paginate[T any](all []T, offset, size int) []T {
    if offset >= len(all) {
        return []T{}
    }
    end := len(all)
    if size > 0 && offset+size < end {
        end = offset + size
    }
    return all[offset:end]
}

func (r *Items) statsLocked(itemID uint64) model.ItemStats {
    st := model.ItemStats{Revenue: decimal.Zero}
    for _, b := range r.s.data.bookings {
        if b.ItemID != itemID {
            continue
        }
        if b.State != model.BookingCancelled {
            st.BookingCount++
        }
        if b.State.HoldsSeats() {
            st.ConfirmedCount++
            st.ReservedSeats += b.Quantity
            st.Revenue = st.Revenue.Add(b.Amount)
        }
        if b.State == model.BookingWaitlisted {
            st.WaitlistCount++
        }
    }
    return st
}

func (r *Items) Stats(_ context.Context, itemID uint64) (model.ItemStats, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    return r.statsLocked(itemID), nil
}

func (r *Items) StatsFor(_ context.Context, ids []uint64) (map[uint64]model.ItemStats, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := map[uint64]model.ItemStats{}
    for _, id := range ids {
        out[id] = r.statsLocked(id)
    }
    return out, nil
}
