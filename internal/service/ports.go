package service

import (
    "context"
    "time"

    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/queue"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
    UserID uint64
    Role   string
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Owns reports whether the actor may act on a booking of customerID.
func (a Actor) Owns(customerID uint64) bool {
    return a.IsAdmin() || (a.UserID != 0 && a.UserID == customerID)
}

// Transactor runs fn in a transaction carried by the context it receives.
type Transactor interface {
    WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CategoryStore interface {
    Create(ctx context.Context, c *model.Category) error
    GetByID(ctx context.Context, id uint64) (model.Category, error)
    List(ctx context.Context, activeOnly bool) ([]model.Category, error)
    Update(ctx context.Context, c *model.Category) error
    Delete(ctx context.Context, id uint64) error
}

type TagStore interface {
    Create(ctx context.Context, t *model.Tag) error
    GetByID(ctx context.Context, id uint64) (model.Tag, error)
    List(ctx context.Context, activeOnly bool) ([]model.Tag, error)
    Update(ctx context.Context, t *model.Tag) error
    Delete(ctx context.Context, id uint64) error
}

type ItemStore interface {
    Create(ctx context.Context, it *model.CatalogItem) error
    Update(ctx context.Context, it *model.CatalogItem) error
    Delete(ctx context.Context, id uint64) error
    GetByID(ctx context.Context, id uint64) (model.CatalogItem, error)
    GetForUpdate(ctx context.Context, id uint64) (model.CatalogItem, error)
    List(ctx context.Context, f model.ItemFilter) ([]model.CatalogItem, int, error)
    Stats(ctx context.Context, itemID uint64) (model.ItemStats, error)
    StatsFor(ctx context.Context, itemIDs []uint64) (map[uint64]model.ItemStats, error)
}

type BookingStore interface {
    Create(ctx context.Context, b *model.Booking) error
    Update(ctx context.Context, b *model.Booking) error
    Delete(ctx context.Context, id uint64) error
    GetByID(ctx context.Context, id uint64) (model.Booking, error)
    GetForUpdate(ctx context.Context, id uint64) (model.Booking, error)
    ExistsForCustomer(ctx context.Context, customerID, itemID uint64, states []model.BookingState, excludeID uint64) (bool, error)
    CountForItem(ctx context.Context, itemID uint64) (int, error)
    Waitlist(ctx context.Context, itemID uint64) ([]model.Booking, error)
    WaitlistPosition(ctx context.Context, b model.Booking) (int, error)
    List(ctx context.Context, f model.BookingFilter) ([]model.BookingView, int, error)
}

// References issues booking references.
type References interface {
    Next(ctx context.Context, at time.Time) (string, error)
}

// EventPublisher delivers booking events after commit.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.BookingEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, queue.BookingEvent) error { return nil }

// CacheInvalidator drops cached public catalog reads.  Services call it
// after a committed write that changes what guests see.
type CacheInvalidator interface {
    Invalidate(ctx context.Context) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) error { return nil }

// invalidate never fails the write that triggered it; stale entries still
// expire on their TTL.
func invalidate(ctx context.Context, inv CacheInvalidator) {
    if err := inv.Invalidate(ctx); err != nil {
        logging.FromContext(ctx).WithError(err).Warn("catalog cache invalidation failed")
    }
}

// Page is one page of a listing.
type Page[T any] struct {
    Items    []T `json:"items"`
    Total    int `json:"total"`
    Page     int `json:"page"`
    PageSize int `json:"page_size"`
}

// Paging holds the page size limits applied to listings.
type Paging struct {
    Default int
    Max     int
}

// normalize clamps page and size to sane values.
func (p Paging) normalize(page, size int) (int, int) {
    def, max := p.Default, p.Max
    if def <= 0 {
        def = 20
    }
    if max <= 0 {
        max = 100
    }
    if page < 1 {
        page = 1
    }
    if size <= 0 {
        size = def
    }
    if size > max {
        size = max
    }
    return page, size
}
