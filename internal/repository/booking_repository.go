package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/jmoiron/sqlx"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/bookable/internal/model"
)

// BookingRepo provides CRUD and queue queries for bookings.  Capacity
// decisions are made by the service while it holds the catalog item lock;
// this repository only reads and writes rows.
type BookingRepo struct{ *Store }

// NewBookingRepo constructs a BookingRepo on the shared store.
func NewBookingRepo(s *Store) *BookingRepo { return &BookingRepo{Store: s} }

type bookingRow struct {
    ID            uint64          `db:"id"`             // auto increment
    Reference     string          `db:"reference"`      // BOOK/2026/0001, unique
    CustomerID    uint64          `db:"customer_id"`    // users.id
    ItemID        uint64          `db:"item_id"`        // catalog_items.id
    Quantity      int             `db:"quantity"`       // seats held
    BookingDate   time.Time       `db:"booking_date"`   // defaults to the creation time
    UnitPrice     decimal.Decimal `db:"unit_price"`     // frozen at creation
    Amount        decimal.Decimal `db:"amount"`         // UnitPrice * Quantity
    Currency      string          `db:"currency"`       // copied from the item
    State         string          `db:"state"`          // draft, waitlisted, confirmed, done or cancelled
    Notes         string          `db:"notes"`          // free text from the customer
    ReviewRating  sql.NullInt64   `db:"review_rating"`  // 1-5, NULL until reviewed
    ReviewComment string          `db:"review_comment"`
    CompanyID     uint64          `db:"company_id"`     // owning company
    CreatedAt     time.Time       `db:"created_at"`
    UpdatedAt     time.Time       `db:"updated_at"`     // bumped on every write
    CreatedBy     *uint64         `db:"created_by"`     // NULL for system writes
    UpdatedBy     *uint64         `db:"updated_by"`
    ItemName      string          `db:"item_name"`      // joined from catalog_items, read only
}

func (r bookingRow) model() model.Booking {
    b := model.Booking{
        ID:            r.ID,
        Reference:     r.Reference,
        CustomerID:    r.CustomerID,
        ItemID:        r.ItemID,
        Quantity:      r.Quantity,
        BookingDate:   r.BookingDate,
        UnitPrice:     r.UnitPrice,
        Amount:        r.Amount,
        Currency:      r.Currency,
        State:         model.BookingState(r.State),
        Notes:         r.Notes,
        ReviewComment: r.ReviewComment,
        CompanyID:     r.CompanyID,
        Audit: model.Audit{
            CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
            CreatedBy: r.CreatedBy, UpdatedBy: r.UpdatedBy,
        },
    }
    if r.ReviewRating.Valid {
        v := int(r.ReviewRating.Int64)
        b.ReviewRating = &v
    }
    return b
}

const bookingColumns = `b.id, b.reference, b.customer_id, b.item_id, b.quantity, b.booking_date,
    b.unit_price, b.amount, b.currency, b.state, b.notes, b.review_rating, b.review_comment,
    b.company_id, b.created_at, b.updated_at, b.created_by, b.updated_by`

// Create inserts b and populates its ID.  A reused reference yields
// ErrDuplicate; an unknown customer or item yields ErrNotFound.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings
        (reference, customer_id, item_id, quantity, booking_date, unit_price, amount, currency, state,
         notes, review_rating, review_comment, company_id, created_at, updated_at, created_by, updated_by)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.q(ctx).ExecContext(ctx, q,
        b.Reference, b.CustomerID, b.ItemID, b.Quantity, b.BookingDate, b.UnitPrice, b.Amount,
        b.Currency, string(b.State), b.Notes, b.ReviewRating, b.ReviewComment, b.CompanyID,
        b.CreatedAt, b.UpdatedAt, b.CreatedBy, b.UpdatedBy)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

// Update writes the mutable columns of b.  Reference, customer, item and
// company never change after creation and are not written.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
    const q = `UPDATE bookings SET
        quantity = ?, booking_date = ?, unit_price = ?, amount = ?, state = ?, notes = ?,
        review_rating = ?, review_comment = ?, updated_at = ?, updated_by = ?
        WHERE id = ?`
    res, err := r.q(ctx).ExecContext(ctx, q,
        b.Quantity, b.BookingDate, b.UnitPrice, b.Amount, string(b.State), b.Notes,
        b.ReviewRating, b.ReviewComment, b.UpdatedAt, b.UpdatedBy, b.ID)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// Delete removes a booking row.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.q(ctx).ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// GetByID returns one booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    return r.get(ctx, id, false)
}

// GetForUpdate reads and locks one booking row.  Callers lock the
// catalog item first.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
    return r.get(ctx, id, true)
}

func (r *BookingRepo) get(ctx context.Context, id uint64, lock bool) (model.Booking, error) {
    q := "SELECT " + bookingColumns + ", '' AS item_name FROM bookings b WHERE b.id = ?"
    if lock {
        q += " FOR UPDATE"
    }
    var row bookingRow
    if err := r.q(ctx).GetContext(ctx, &row, q, id); err != nil {
        return model.Booking{}, mapErr(err)
    }
    return row.model(), nil
}

// ExistsForCustomer reports whether the customer already holds a booking
// for item in one of states, ignoring excludeID.
func (r *BookingRepo) ExistsForCustomer(ctx context.Context, customerID, itemID uint64, states []model.BookingState, excludeID uint64) (bool, error) {
    q, args, err := sqlx.In(`SELECT COUNT(*) FROM bookings
        WHERE customer_id = ? AND item_id = ? AND id <> ? AND state IN (?)`,
        customerID, itemID, excludeID, stateStrings(states))
    if err != nil {
        return false, err
    }
    var n int
    if err := r.q(ctx).GetContext(ctx, &n, q, args...); err != nil {
        return false, err
    }
    return n > 0, nil
}

// CountForItem returns how many bookings, in any state, reference item.
func (r *BookingRepo) CountForItem(ctx context.Context, itemID uint64) (int, error) {
    var n int
    err := r.q(ctx).GetContext(ctx, &n, "SELECT COUNT(*) FROM bookings WHERE item_id = ?", itemID)
    return n, err
}

// Waitlist returns the waitlisted bookings of an item, oldest first.
func (r *BookingRepo) Waitlist(ctx context.Context, itemID uint64) ([]model.Booking, error) {
    q := "SELECT " + bookingColumns + `, '' AS item_name FROM bookings b
        WHERE b.item_id = ? AND b.state = 'waitlisted'
        ORDER BY b.created_at ASC, b.id ASC`
    var rows []bookingRow
    if err := r.q(ctx).SelectContext(ctx, &rows, q, itemID); err != nil {
        return nil, err
    }
    out := make([]model.Booking, 0, len(rows))
    for _, row := range rows {
        out = append(out, row.model())
    }
    return out, nil
}

// WaitlistPosition returns the 1-based position of a waitlisted booking
// in its item's queue.
func (r *BookingRepo) WaitlistPosition(ctx context.Context, b model.Booking) (int, error) {
    const q = `SELECT COUNT(*) FROM bookings
        WHERE item_id = ? AND state = 'waitlisted'
          AND (created_at < ? OR (created_at = ? AND id < ?))`
    var ahead int
    if err := r.q(ctx).GetContext(ctx, &ahead, q, b.ItemID, b.CreatedAt, b.CreatedAt, b.ID); err != nil {
        return 0, err
    }
    return ahead + 1, nil
}

// List returns one page of bookings matching f plus the total count.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingView, int, error) {
    where := []string{}
    args := []any{}
    if len(f.States) > 0 {
        where = append(where, "b.state IN (?)")
        args = append(args, stateStrings(f.States))
    }
    if f.ItemID != 0 {
        where = append(where, "b.item_id = ?")
        args = append(args, f.ItemID)
    }
    if f.CustomerID != 0 {
        where = append(where, "b.customer_id = ?")
        args = append(args, f.CustomerID)
    }
    if f.From != nil {
        where = append(where, "b.booking_date >= ?")
        args = append(args, *f.From)
    }
    if f.To != nil {
        where = append(where, "b.booking_date < ?")
        args = append(args, *f.To)
    }
    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    countSQL, countArgs, err := sqlx.In("SELECT COUNT(*) FROM bookings b WHERE "+cond, args...)
    if err != nil {
        return nil, 0, err
    }
    var total int
    if err := r.q(ctx).GetContext(ctx, &total, countSQL, countArgs...); err != nil {
        return nil, 0, err
    }

    dataSQL, dataArgs, err := sqlx.In("SELECT "+bookingColumns+`, ci.name AS item_name
        FROM bookings b JOIN catalog_items ci ON ci.id = b.item_id
        WHERE `+cond+`
        ORDER BY b.created_at DESC, b.id DESC
        LIMIT ? OFFSET ?`, append(args, f.PageSize, f.Offset())...)
    if err != nil {
        return nil, 0, err
    }
    var rows []bookingRow
    if err := r.q(ctx).SelectContext(ctx, &rows, dataSQL, dataArgs...); err != nil {
        return nil, 0, err
    }
    out := make([]model.BookingView, 0, len(rows))
    for _, row := range rows {
        out = append(out, model.BookingView{Booking: row.model(), ItemName: row.ItemName})
    }
    return out, total, nil
}

func stateStrings(states []model.BookingState) []string {
    out := make([]string, len(states))
    for i, s := range states {
        out[i] = string(s)
    }
    return out
}
