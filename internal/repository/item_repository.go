package repository

import (
    "context"
    "strings"
    "time"

    "github.com/jmoiron/sqlx"
    "github.com/samber/lo"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/bookable/internal/model"
)

// ItemRepo provides CRUD and listing for catalog items and their tags.
type ItemRepo struct{ *Store }

// NewItemRepo constructs an ItemRepo on the shared store.
func NewItemRepo(s *Store) *ItemRepo { return &ItemRepo{Store: s} }

// itemRow mirrors the catalog_items table for sqlx struct scanning.
type itemRow struct {
    ID                 uint64              `db:"id"`
    Name               string              `db:"name"`
    Description        string              `db:"description"`
    Price              decimal.Decimal     `db:"price"`
    Currency           string              `db:"currency"`
    Active             bool                `db:"active"`
    Published          bool                `db:"published"`
    CategoryID         *uint64             `db:"category_id"`
    Capacity           int                 `db:"capacity"`
    CompanyID          uint64              `db:"company_id"`
    StartAt            *time.Time          `db:"start_at"`
    EndAt              *time.Time          `db:"end_at"`
    EarlyBirdPrice     decimal.NullDecimal `db:"early_bird_price"`
    EarlyBirdDeadline  *time.Time          `db:"early_bird_deadline"`
    DiscountPercentage decimal.Decimal     `db:"discount_percentage"`
    CreatedAt          time.Time           `db:"created_at"`
    UpdatedAt          time.Time           `db:"updated_at"`
    CreatedBy          *uint64             `db:"created_by"`
    UpdatedBy          *uint64             `db:"updated_by"`
}

func (r itemRow) model() model.CatalogItem {
    it := model.CatalogItem{
        ID:                 r.ID,
        Name:               r.Name,
        Description:        r.Description,
        Price:              r.Price,
        Currency:           r.Currency,
        Active:             r.Active,
        Published:          r.Published,
        CategoryID:         r.CategoryID,
        TagIDs:             []uint64{},
        Capacity:           r.Capacity,
        CompanyID:          r.CompanyID,
        StartAt:            r.StartAt,
        EndAt:              r.EndAt,
        EarlyBirdDeadline:  r.EarlyBirdDeadline,
        DiscountPercentage: r.DiscountPercentage,
        Audit: model.Audit{
            CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
            CreatedBy: r.CreatedBy, UpdatedBy: r.UpdatedBy,
        },
    }
    if r.EarlyBirdPrice.Valid {
        p := r.EarlyBirdPrice.Decimal
        it.EarlyBirdPrice = &p
    }
    return it
}

const itemColumns = `ci.id, ci.name, ci.description, ci.price, ci.currency, ci.active, ci.published,
    ci.category_id, ci.capacity, ci.company_id, ci.start_at, ci.end_at, ci.early_bird_price,
    ci.early_bird_deadline, ci.discount_percentage, ci.created_at, ci.updated_at, ci.created_by, ci.updated_by`

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
    if d == nil {
        return decimal.NullDecimal{}
    }
    return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// Create inserts the item and its tag links.
func (r *ItemRepo) Create(ctx context.Context, it *model.CatalogItem) error {
    const q = `INSERT INTO catalog_items
        (name, description, price, currency, active, published, category_id, capacity, company_id,
         start_at, end_at, early_bird_price, early_bird_deadline, discount_percentage,
         created_at, updated_at, created_by, updated_by)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.q(ctx).ExecContext(ctx, q,
        it.Name, it.Description, it.Price, it.Currency, it.Active, it.Published, it.CategoryID,
        it.Capacity, it.CompanyID, it.StartAt, it.EndAt, nullDecimal(it.EarlyBirdPrice),
        it.EarlyBirdDeadline, it.DiscountPercentage, it.CreatedAt, it.UpdatedAt, it.CreatedBy, it.UpdatedBy)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    it.ID = uint64(id)
    return r.SetTags(ctx, it.ID, it.TagIDs)
}

// Update writes every mutable column and replaces the tag links.
func (r *ItemRepo) Update(ctx context.Context, it *model.CatalogItem) error {
    const q = `UPDATE catalog_items SET
        name = ?, description = ?, price = ?, currency = ?, active = ?, published = ?, category_id = ?,
        capacity = ?, start_at = ?, end_at = ?, early_bird_price = ?, early_bird_deadline = ?,
        discount_percentage = ?, updated_at = ?, updated_by = ?
        WHERE id = ?`
    res, err := r.q(ctx).ExecContext(ctx, q,
        it.Name, it.Description, it.Price, it.Currency, it.Active, it.Published, it.CategoryID,
        it.Capacity, it.StartAt, it.EndAt, nullDecimal(it.EarlyBirdPrice), it.EarlyBirdDeadline,
        it.DiscountPercentage, it.UpdatedAt, it.UpdatedBy, it.ID)
    if err != nil {
        return mapErr(err)
    }
    if err := requireAffected(res); err != nil {
        return err
    }
    return r.SetTags(ctx, it.ID, it.TagIDs)
}

// SetTags replaces the tag links of an item.
func (r *ItemRepo) SetTags(ctx context.Context, itemID uint64, tagIDs []uint64) error {
    if _, err := r.q(ctx).ExecContext(ctx, "DELETE FROM item_tags WHERE item_id = ?", itemID); err != nil {
        return err
    }
    tagIDs = lo.Uniq(tagIDs)
    if len(tagIDs) == 0 {
        return nil
    }
    query := "INSERT INTO item_tags (item_id, tag_id) VALUES " +
        strings.TrimSuffix(strings.Repeat("(?, ?),", len(tagIDs)), ",")
    args := make([]any, 0, len(tagIDs)*2)
    for _, tid := range tagIDs {
        args = append(args, itemID, tid)
    }
    _, err := r.q(ctx).ExecContext(ctx, query, args...)
    return mapErr(err)
}

// GetByID returns an item with its tags, or ErrNotFound.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.CatalogItem, error) {
    return r.get(ctx, id, false)
}

// GetForUpdate reads the item and locks its row until the surrounding
// transaction ends.  Every booking operation that reads capacity takes
// this lock first, which serialises them per item.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id uint64) (model.CatalogItem, error) {
    return r.get(ctx, id, true)
}

func (r *ItemRepo) get(ctx context.Context, id uint64, lock bool) (model.CatalogItem, error) {
    q := "SELECT " + itemColumns + " FROM catalog_items ci WHERE ci.id = ?"
    if lock {
        q += " FOR UPDATE"
    }
    var row itemRow
    if err := r.q(ctx).GetContext(ctx, &row, q, id); err != nil {
        return model.CatalogItem{}, mapErr(err)
    }
    it := row.model()
    tags, err := r.tagsFor(ctx, []uint64{id})
    if err != nil {
        return model.CatalogItem{}, err
    }
    if t, ok := tags[id]; ok {
        it.TagIDs = t
    }
    return it, nil
}

// tagsFor loads the tag ids of several items at once.
func (r *ItemRepo) tagsFor(ctx context.Context, ids []uint64) (map[uint64][]uint64, error) {
    out := map[uint64][]uint64{}
    if len(ids) == 0 {
        return out, nil
    }
    q, args, err := sqlx.In("SELECT item_id, tag_id FROM item_tags WHERE item_id IN (?) ORDER BY tag_id", ids)
    if err != nil {
        return nil, err
    }
    var links []struct {
        ItemID uint64 `db:"item_id"`
        TagID  uint64 `db:"tag_id"`
    }
    if err := r.q(ctx).SelectContext(ctx, &links, q, args...); err != nil {
        return nil, err
    }
    for _, l := range links {
        out[l.ItemID] = append(out[l.ItemID], l.TagID)
    }
    return out, nil
}

// Delete removes an item.  Items still referenced by bookings yield
// ErrConflict.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.q(ctx).ExecContext(ctx, "DELETE FROM catalog_items WHERE id = ?", id)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// List returns one page of items matching f plus the total match count.
func (r *ItemRepo) List(ctx context.Context, f model.ItemFilter) ([]model.CatalogItem, int, error) {
    where := []string{}
    args := []any{}

    if f.Active != nil {
        where = append(where, "ci.active = ?")
        args = append(args, *f.Active)
    }
    if f.Published != nil {
        where = append(where, "ci.published = ?")
        args = append(args, *f.Published)
    }
    if f.CategoryID != nil {
        where = append(where, "ci.category_id = ?")
        args = append(args, *f.CategoryID)
    }
    if f.CompanyID != nil {
        where = append(where, "ci.company_id = ?")
        args = append(args, *f.CompanyID)
    }
    if f.TagID != nil {
        where = append(where, "EXISTS (SELECT 1 FROM item_tags it WHERE it.item_id = ci.id AND it.tag_id = ?)")
        args = append(args, *f.TagID)
    }
    if q := strings.TrimSpace(f.Query); q != "" {
        where = append(where, "(LOWER(ci.name) LIKE ? OR LOWER(ci.description) LIKE ?)")
        like := "%" + strings.ToLower(q) + "%"
        args = append(args, like, like)
    }
    if f.StartFrom != nil {
        where = append(where, "ci.start_at >= ?")
        args = append(args, *f.StartFrom)
    }
    if f.StartTo != nil {
        where = append(where, "ci.start_at < ?")
        args = append(args, *f.StartTo)
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int
    if err := r.q(ctx).GetContext(ctx, &total, "SELECT COUNT(*) FROM catalog_items ci WHERE "+cond, args...); err != nil {
        return nil, 0, err
    }

    dataSQL := "SELECT " + itemColumns + ` FROM catalog_items ci WHERE ` + cond + `
        ORDER BY (ci.start_at IS NULL), ci.start_at ASC, ci.id ASC
        LIMIT ? OFFSET ?`
    var rows []itemRow
    if err := r.q(ctx).SelectContext(ctx, &rows, dataSQL, append(args, f.PageSize, f.Offset())...); err != nil {
        return nil, 0, err
    }

    ids := lo.Map(rows, func(row itemRow, _ int) uint64 { return row.ID })
    tags, err := r.tagsFor(ctx, ids)
    if err != nil {
        return nil, 0, err
    }
    out := make([]model.CatalogItem, 0, len(rows))
    for _, row := range rows {
        it := row.model()
        if t, ok := tags[it.ID]; ok {
            it.TagIDs = t
        }
        out = append(out, it)
    }
    return out, total, nil
}

const statsSelect = `SELECT b.item_id,
        COALESCE(SUM(b.state <> 'cancelled'), 0) AS booking_count,
        COALESCE(SUM(b.state IN ('confirmed','done')), 0) AS confirmed_count,
        COALESCE(SUM(CASE WHEN b.state IN ('confirmed','done') THEN b.quantity ELSE 0 END), 0) AS reserved_seats,
        COALESCE(SUM(b.state = 'waitlisted'), 0) AS waitlist_count,
        COALESCE(SUM(CASE WHEN b.state IN ('confirmed','done') THEN b.amount ELSE 0 END), 0) AS revenue
    FROM bookings b`

type statsRow struct {
    ItemID         uint64          `db:"item_id"`
    BookingCount   int             `db:"booking_count"`
    ConfirmedCount int             `db:"confirmed_count"`
    ReservedSeats  int             `db:"reserved_seats"`
    WaitlistCount  int             `db:"waitlist_count"`
    Revenue        decimal.Decimal `db:"revenue"`
}

func (s statsRow) model() model.ItemStats {
    return model.ItemStats{
        BookingCount:   s.BookingCount,
        ConfirmedCount: s.ConfirmedCount,
        ReservedSeats:  s.ReservedSeats,
        WaitlistCount:  s.WaitlistCount,
        Revenue:        s.Revenue,
    }
}

// Stats aggregates the bookings of one item.  Inside a transaction that
// holds the item lock the numbers are stable until commit.
func (r *ItemRepo) Stats(ctx context.Context, itemID uint64) (model.ItemStats, error) {
    all, err := r.StatsFor(ctx, []uint64{itemID})
    if err != nil {
        return model.ItemStats{}, err
    }
    return all[itemID], nil
}

// StatsFor aggregates the bookings of several items.  Items without
// bookings are absent from the map and read as zero stats.
func (r *ItemRepo) StatsFor(ctx context.Context, itemIDs []uint64) (map[uint64]model.ItemStats, error) {
    out := map[uint64]model.ItemStats{}
    if len(itemIDs) == 0 {
        return out, nil
    }
    q, args, err := sqlx.In(statsSelect+" WHERE b.item_id IN (?) GROUP BY b.item_id", lo.Uniq(itemIDs))
    if err != nil {
        return nil, err
    }
    var rows []statsRow
    if err := r.q(ctx).SelectContext(ctx, &rows, q, args...); err != nil {
        return nil, err
    }
    for _, row := range rows {
        out[row.ItemID] = row.model()
    }
    return out, nil
}
