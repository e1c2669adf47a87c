package service

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/samber/lo"
    "github.com/shopspring/decimal"
    "go.opentelemetry.io/otel/attribute"

    "github.com/iliyamo/bookable/internal/clock"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/pricing"
    "github.com/iliyamo/bookable/internal/repository"
    "github.com/iliyamo/bookable/internal/tracing"
)

// CatalogService manages categories, tags and catalog items and answers
// the public price and availability queries.  Writes require ADMIN.
type CatalogService struct {
    tx         Transactor
    categories CategoryStore
    tags       TagStore
    items      ItemStore
    bookings   BookingStore
    clock      clock.Clock
    paging     Paging
    companyID  uint64
    currency   string
    cache      CacheInvalidator
}

// CatalogOption customises a CatalogService.
type CatalogOption func(*CatalogService)

// WithCatalogPaging sets the listing page size limits.
func WithCatalogPaging(p Paging) CatalogOption {
    return func(s *CatalogService) { s.paging = p }
}

// WithDefaultCompany sets the company assigned to new items.
func WithDefaultCompany(id uint64) CatalogOption {
    return func(s *CatalogService) {
        if id != 0 {
            s.companyID = id
        }
    }
}

// WithCatalogCache sets the cache dropped after catalog writes.
func WithCatalogCache(c CacheInvalidator) CatalogOption {
    return func(s *CatalogService) {
        if c != nil {
            s.cache = c
        }
    }
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(tx Transactor, categories CategoryStore, tags TagStore, items ItemStore, bookings BookingStore, clk clock.Clock, opts ...CatalogOption) *CatalogService {
    s := &CatalogService{
        tx:         tx,
        categories: categories,
        tags:       tags,
        items:      items,
        bookings:   bookings,
        clock:      clk,
        companyID:  1,
        currency:   "USD",
        cache:      noopInvalidator{},
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// write runs fn in a transaction and drops cached public reads once it
// has committed.
func (s *CatalogService) write(ctx context.Context, fn func(ctx context.Context) error) error {
    if err := s.tx.WithTx(ctx, fn); err != nil {
        return err
    }
    invalidate(ctx, s.cache)
    return nil
}

func requireAdmin(a Actor) error {
    if !a.IsAdmin() {
        return Forbidden(CodeForbidden, "administrator role required")
    }
    return nil
}

// ----- categories -----

// CategoryInput carries category fields.  Nil pointers leave the current
// value unchanged on update.
type CategoryInput struct {
    Name        *string `json:"name"`
    Code        *string `json:"code"`
    Description *string `json:"description"`
    ParentID    *uint64 `json:"parent_id"`
    Active      *bool   `json:"active"`
}

func (in CategoryInput) apply(c *model.Category) {
    if in.Name != nil {
        c.Name = strings.TrimSpace(*in.Name)
    }
    if in.Code != nil {
        code := strings.ToUpper(strings.TrimSpace(*in.Code))
        if code == "" {
            c.Code = nil
        } else {
            c.Code = &code
        }
    }
    if in.Description != nil {
        c.Description = *in.Description
    }
    if in.ParentID != nil {
        if *in.ParentID == 0 {
            c.ParentID = nil
        } else {
            pid := *in.ParentID
            c.ParentID = &pid
        }
    }
    if in.Active != nil {
        c.Active = *in.Active
    }
}

// checkParent rejects unknown parents and parent chains leading back to id.
func (s *CatalogService) checkParent(ctx context.Context, id uint64, parentID *uint64) error {
    seen := map[uint64]bool{}
    for cur := parentID; cur != nil; {
        if *cur == id && id != 0 {
            return Validation(CodeCategoryCycle, "a category cannot be its own ancestor")
        }
        if seen[*cur] {
            return Validation(CodeCategoryCycle, "category hierarchy contains a cycle")
        }
        seen[*cur] = true
        parent, err := s.categories.GetByID(ctx, *cur)
        if err != nil {
            return translate(err, "parent category")
        }
        cur = parent.ParentID
    }
    return nil
}

// CreateCategory adds a category.
func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (model.Category, error) {
    if err := requireAdmin(actor); err != nil {
        return model.Category{}, err
    }
    c := model.Category{Active: true}
    in.apply(&c)
    if c.Name == "" {
        return model.Category{}, Validation(CodeNameRequired, "name is required")
    }
    err := s.write(ctx, func(ctx context.Context) error {
        if err := s.checkParent(ctx, 0, c.ParentID); err != nil {
            return err
        }
        c.Touch(s.clock.Now(), actor.UserID)
        return translate(s.categories.Create(ctx, &c), "category")
    })
    return c, err
}

// UpdateCategory patches a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, actor Actor, id uint64, in CategoryInput) (model.Category, error) {
    if err := requireAdmin(actor); err != nil {
        return model.Category{}, err
    }
    var c model.Category
    err := s.write(ctx, func(ctx context.Context) error {
        var err error
        if c, err = s.categories.GetByID(ctx, id); err != nil {
            return translate(err, "category")
        }
        in.apply(&c)
        if c.Name == "" {
            return Validation(CodeNameRequired, "name is required")
        }
        if err := s.checkParent(ctx, c.ID, c.ParentID); err != nil {
            return err
        }
        c.Touch(s.clock.Now(), actor.UserID)
        return translate(s.categories.Update(ctx, &c), "category")
    })
    return c, err
}

// DeleteCategory removes a category that no item and no child references.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor Actor, id uint64) error {
    if err := requireAdmin(actor); err != nil {
        return err
    }
    return s.write(ctx, func(ctx context.Context) error {
        if _, err := s.categories.GetByID(ctx, id); err != nil {
            return translate(err, "category")
        }
        _, used, err := s.items.List(ctx, model.ItemFilter{CategoryID: &id, Page: 1, PageSize: 1})
        if err != nil {
            return Internal(err)
        }
        if used > 0 {
            return Conflict(CodeInUse, "category is still used by catalog items")
        }
        all, err := s.categories.List(ctx, false)
        if err != nil {
            return Internal(err)
        }
        if lo.ContainsBy(all, func(c model.Category) bool { return c.ParentID != nil && *c.ParentID == id }) {
            return Conflict(CodeInUse, "category still has sub-categories")
        }
        return translate(s.categories.Delete(ctx, id), "category")
    })
}

// GetCategory returns one category.
func (s *CatalogService) GetCategory(ctx context.Context, id uint64) (model.Category, error) {
    c, err := s.categories.GetByID(ctx, id)
    return c, translate(err, "category")
}

// ListCategories returns categories; archived ones only when includeArchived.
func (s *CatalogService) ListCategories(ctx context.Context, includeArchived bool) ([]model.Category, error) {
    out, err := s.categories.List(ctx, !includeArchived)
    return out, translate(err, "category")
}

// ----- tags -----

// TagInput carries tag fields; nil pointers are left unchanged.
type TagInput struct {
    Name   *string `json:"name"`
    Color  *int    `json:"color"`
    Active *bool   `json:"active"`
}

func (in TagInput) apply(t *model.Tag) {
    if in.Name != nil {
        t.Name = strings.TrimSpace(*in.Name)
    }
    if in.Color != nil {
        t.Color = *in.Color
    }
    if in.Active != nil {
        t.Active = *in.Active
    }
}

func validateTag(t model.Tag) error {
    if t.Name == "" {
        return Validation(CodeNameRequired, "name is required")
    }
    if t.Color < 0 || t.Color > model.MaxTagColor {
        return Validation(CodeInvalidColor, "color must be between 0 and 11")
    }
    return nil
}

// CreateTag adds a tag.
func (s *CatalogService) CreateTag(ctx context.Context, actor Actor, in TagInput) (model.Tag, error) {
    if err := requireAdmin(actor); err != nil {
        return model.Tag{}, err
    }
    t := model.Tag{Active: true}
    in.apply(&t)
    if err := validateTag(t); err != nil {
        return model.Tag{}, err
    }
    t.Touch(s.clock.Now(), actor.UserID)
    err := s.write(ctx, func(ctx context.Context) error {
        return translate(s.tags.Create(ctx, &t), "tag")
    })
    return t, err
}

// UpdateTag patches a tag.
func (s *CatalogService) UpdateTag(ctx context.Context, actor Actor, id uint64, in TagInput) (model.Tag, error) {
    if err := requireAdmin(actor); err != nil {
        return model.Tag{}, err
    }
    t, err := s.tags.GetByID(ctx, id)
    if err != nil {
        return model.Tag{}, translate(err, "tag")
    }
    in.apply(&t)
    if err := validateTag(t); err != nil {
        return model.Tag{}, err
    }
    t.Touch(s.clock.Now(), actor.UserID)
    err = s.write(ctx, func(ctx context.Context) error {
        return translate(s.tags.Update(ctx, &t), "tag")
    })
    return t, err
}

// DeleteTag removes a tag and detaches it from items.
func (s *CatalogService) DeleteTag(ctx context.Context, actor Actor, id uint64) error {
    if err := requireAdmin(actor); err != nil {
        return err
    }
    return s.write(ctx, func(ctx context.Context) error {
        return translate(s.tags.Delete(ctx, id), "tag")
    })
}

// ListTags returns tags; archived ones only when includeArchived.
func (s *CatalogService) ListTags(ctx context.Context, includeArchived bool) ([]model.Tag, error) {
    out, err := s.tags.List(ctx, !includeArchived)
    return out, translate(err, "tag")
}

// ----- items -----

// ItemInput carries catalog item fields.  Nil pointers leave the current
// value unchanged on update.  ClearEarlyBird removes the early-bird offer.
type ItemInput struct {
    Name               *string          `json:"name"`
    Description        *string          `json:"description"`
    Price              *decimal.Decimal `json:"price"`
    Currency           *string          `json:"currency"`
    Active             *bool            `json:"active"`
    Published          *bool            `json:"published"`
    CategoryID         *uint64          `json:"category_id"`
    TagIDs             *[]uint64        `json:"tag_ids"`
    Capacity           *int             `json:"capacity"`
    StartAt            *time.Time       `json:"start_at"`
    EndAt              *time.Time       `json:"end_at"`
    EarlyBirdPrice     *decimal.Decimal `json:"early_bird_price"`
    EarlyBirdDeadline  *time.Time       `json:"early_bird_deadline"`
    DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
    ClearEarlyBird     bool             `json:"clear_early_bird"`
}

func (in ItemInput) apply(it *model.CatalogItem) {
    if in.Name != nil {
        it.Name = strings.TrimSpace(*in.Name)
    }
    if in.Description != nil {
        it.Description = *in.Description
    }
    if in.Price != nil {
        it.Price = in.Price.Round(2)
    }
    if in.Currency != nil {
        it.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
    }
    if in.Active != nil {
        it.Active = *in.Active
    }
    if in.Published != nil {
        it.Published = *in.Published
    }
    if in.CategoryID != nil {
        if *in.CategoryID == 0 {
            it.CategoryID = nil
        } else {
            cid := *in.CategoryID
            it.CategoryID = &cid
        }
    }
    if in.TagIDs != nil {
        it.TagIDs = lo.Uniq(*in.TagIDs)
    }
    if in.Capacity != nil {
        it.Capacity = *in.Capacity
    }
    if in.StartAt != nil {
        t := in.StartAt.UTC()
        it.StartAt = &t
    }
    if in.EndAt != nil {
        t := in.EndAt.UTC()
        it.EndAt = &t
    }
    if in.EarlyBirdPrice != nil {
        p := in.EarlyBirdPrice.Round(2)
        it.EarlyBirdPrice = &p
    }
    if in.EarlyBirdDeadline != nil {
        t := in.EarlyBirdDeadline.UTC()
        it.EarlyBirdDeadline = &t
    }
    if in.DiscountPercentage != nil {
        it.DiscountPercentage = in.DiscountPercentage.Round(2)
    }
    if in.ClearEarlyBird {
        it.EarlyBirdPrice = nil
        it.EarlyBirdDeadline = nil
    }
}

// validateItem checks field rules and that referenced rows exist.
func (s *CatalogService) validateItem(ctx context.Context, it *model.CatalogItem) error {
    if it.Name == "" {
        return Validation(CodeNameRequired, "name is required")
    }
    if len(it.Currency) != 3 {
        return Validation(CodeInvalidInput, "currency must be a 3 letter ISO code")
    }
    if err := pricing.ValidateItem(it); err != nil {
        return &Error{Kind: KindValidation, Code: CodeInvalidPricing, Message: err.Error(), Err: err}
    }
    if it.CategoryID != nil {
        if _, err := s.categories.GetByID(ctx, *it.CategoryID); err != nil {
            return translate(err, "category")
        }
    }
    for _, tid := range it.TagIDs {
        if _, err := s.tags.GetByID(ctx, tid); err != nil {
            return translate(err, "tag")
        }
    }
    return nil
}

// CreateItem adds a catalog item.  New items are active and unpublished
// unless the input says otherwise.
func (s *CatalogService) CreateItem(ctx context.Context, actor Actor, in ItemInput) (model.CatalogItem, error) {
    if err := requireAdmin(actor); err != nil {
        return model.CatalogItem{}, err
    }
    it := model.CatalogItem{
        Active:             true,
        Currency:           s.currency,
        CompanyID:          s.companyID,
        TagIDs:             []uint64{},
        DiscountPercentage: decimal.Zero,
    }
    in.apply(&it)
    err := s.write(ctx, func(ctx context.Context) error {
        if err := s.validateItem(ctx, &it); err != nil {
            return err
        }
        it.Touch(s.clock.Now(), actor.UserID)
        return translate(s.items.Create(ctx, &it), "catalog item")
    })
    return it, err
}

// UpdateItem patches a catalog item.  Existing bookings keep the amount
// they were created with.
func (s *CatalogService) UpdateItem(ctx context.Context, actor Actor, id uint64, in ItemInput) (model.CatalogItem, error) {
    if err := requireAdmin(actor); err != nil {
        return model.CatalogItem{}, err
    }
    var it model.CatalogItem
    err := s.write(ctx, func(ctx context.Context) error {
        var err error
        if it, err = s.items.GetForUpdate(ctx, id); err != nil {
            return translate(err, "catalog item")
        }
        in.apply(&it)
        if err := s.validateItem(ctx, &it); err != nil {
            return err
        }
        if in.Capacity != nil && !it.Unlimited() {
            stats, err := s.items.Stats(ctx, id)
            if err != nil {
                return Internal(err)
            }
            if stats.ReservedSeats > it.Capacity {
                return Validation(CodeExceedsCapacity, fmt.Sprintf("capacity %d is below the %d seats already reserved", it.Capacity, stats.ReservedSeats))
            }
        }
        it.Touch(s.clock.Now(), actor.UserID)
        return translate(s.items.Update(ctx, &it), "catalog item")
    })
    return it, err
}

// SetItemActive archives (false) or restores (true) an item.
func (s *CatalogService) SetItemActive(ctx context.Context, actor Actor, id uint64, active bool) (model.CatalogItem, error) {
    return s.UpdateItem(ctx, actor, id, ItemInput{Active: &active})
}

// SetItemPublished publishes or unpublishes an item.
func (s *CatalogService) SetItemPublished(ctx context.Context, actor Actor, id uint64, published bool) (model.CatalogItem, error) {
    return s.UpdateItem(ctx, actor, id, ItemInput{Published: &published})
}

// DeleteItem removes an item that no booking references.  Items with
// history are archived instead.
func (s *CatalogService) DeleteItem(ctx context.Context, actor Actor, id uint64) error {
    if err := requireAdmin(actor); err != nil {
        return err
    }
    return s.write(ctx, func(ctx context.Context) error {
        if _, err := s.items.GetForUpdate(ctx, id); err != nil {
            return translate(err, "catalog item")
        }
        n, err := s.bookings.CountForItem(ctx, id)
        if err != nil {
            return Internal(err)
        }
        if n > 0 {
            return Conflict(CodeInUse, "catalog item has bookings; archive it instead")
        }
        err = s.items.Delete(ctx, id)
        if errors.Is(err, repository.ErrConflict) {
            return Conflict(CodeInUse, "catalog item has bookings; archive it instead")
        }
        return translate(err, "catalog item")
    })
}

// visible reports whether guests may see the item.
func visible(it model.CatalogItem) bool { return it.Active && it.Published }

// GetItem returns an item with its computed seat figures.  With
// publicOnly set, archived or unpublished items read as not found.
func (s *CatalogService) GetItem(ctx context.Context, id uint64, publicOnly bool) (model.ItemDetail, error) {
    ctx, span := tracing.Tracer().Start(ctx, "CatalogService.GetItem")
    defer span.End()
    span.SetAttributes(attribute.Int64("item.id", int64(id)))

    it, err := s.items.GetByID(ctx, id)
    if err != nil {
        return model.ItemDetail{}, translate(err, "catalog item")
    }
    if publicOnly && !visible(it) {
        return model.ItemDetail{}, NotFound("catalog item")
    }
    stats, err := s.items.Stats(ctx, id)
    if err != nil {
        return model.ItemDetail{}, Internal(err)
    }
    return model.NewItemDetail(it, stats), nil
}

// ListItems returns one page of items.  With publicOnly set the filter is
// forced to active and published items.
func (s *CatalogService) ListItems(ctx context.Context, f model.ItemFilter, publicOnly bool) (Page[model.ItemDetail], error) {
    ctx, span := tracing.Tracer().Start(ctx, "CatalogService.ListItems")
    defer span.End()

    if publicOnly {
        yes := true
        f.Active, f.Published = &yes, &yes
    }
    f.Page, f.PageSize = s.paging.normalize(f.Page, f.PageSize)

    items, total, err := s.items.List(ctx, f)
    if err != nil {
        return Page[model.ItemDetail]{}, Internal(err)
    }
    stats, err := s.items.StatsFor(ctx, lo.Map(items, func(it model.CatalogItem, _ int) uint64 { return it.ID }))
    if err != nil {
        return Page[model.ItemDetail]{}, Internal(err)
    }
    out := make([]model.ItemDetail, 0, len(items))
    for _, it := range items {
        out = append(out, model.NewItemDetail(it, stats[it.ID]))
    }
    return Page[model.ItemDetail]{Items: out, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

// Quote prices qty units of a visible item booked on date.  A nil date
// means now.
func (s *CatalogService) Quote(ctx context.Context, id uint64, qty int, date *time.Time) (pricing.Quote, error) {
    if qty < 1 {
        return pricing.Quote{}, Validation(CodeInvalidQuantity, "quantity must be at least 1")
    }
    it, err := s.items.GetByID(ctx, id)
    if err != nil {
        return pricing.Quote{}, translate(err, "catalog item")
    }
    if !visible(it) {
        return pricing.Quote{}, NotFound("catalog item")
    }
    at := s.clock.Now()
    if date != nil {
        at = date.UTC()
    }
    return pricing.NewQuote(&it, at, qty), nil
}

// Availability answers whether qty seats can be confirmed right now.
type Availability struct {
    ItemID         uint64 `json:"item_id"`
    Capacity       int    `json:"capacity"`
    Unlimited      bool   `json:"unlimited"`
    ReservedSeats  int    `json:"reserved_seats"`
    AvailableSeats int    `json:"available_seats"`
    WaitlistCount  int    `json:"waitlist_count"`
    Requested      int    `json:"requested"`
    Available      bool   `json:"available"`
    Bookable       bool   `json:"bookable"`
}

// CheckAvailability reports the seat situation of a visible item.
func (s *CatalogService) CheckAvailability(ctx context.Context, id uint64, qty int) (Availability, error) {
    if qty < 1 {
        return Availability{}, Validation(CodeInvalidQuantity, "quantity must be at least 1")
    }
    d, err := s.GetItem(ctx, id, true)
    if err != nil {
        return Availability{}, err
    }
    return Availability{
        ItemID:         d.ID,
        Capacity:       d.Capacity,
        Unlimited:      d.Unlimited(),
        ReservedSeats:  d.ReservedSeats,
        AvailableSeats: d.AvailableSeats,
        WaitlistCount:  d.WaitlistCount,
        Requested:      qty,
        Available:      d.Unlimited() || qty <= d.AvailableSeats,
        Bookable:       d.Bookable(),
    }, nil
}
