package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/bookable/internal/model"
)

// CategoryRepo encapsulates queries on the categories table.  Deleting a
// category that still has children or catalog items fails with
// ErrConflict because of the RESTRICT foreign keys.
type CategoryRepo struct{ *Store }

// NewCategoryRepo constructs a CategoryRepo on the shared store.
func NewCategoryRepo(s *Store) *CategoryRepo { return &CategoryRepo{Store: s} }

const categoryColumns = "id, name, code, description, parent_id, active, created_at, updated_at, created_by, updated_by"

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
    var (
        c    model.Category
        code sql.NullString
    )
    err := row.Scan(&c.ID, &c.Name, &code, &c.Description, &c.ParentID, &c.Active,
        &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
    if code.Valid {
        s := code.String
        c.Code = &s
    }
    return c, err
}

// Create inserts c and populates its ID.  A duplicate code yields
// ErrDuplicate; an unknown parent yields ErrNotFound.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
    const q = `INSERT INTO categories (name, code, description, parent_id, active, created_at, updated_at, created_by, updated_by)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := r.q(ctx).ExecContext(ctx, q, c.Name, c.Code, c.Description, c.ParentID, c.Active,
        c.CreatedAt, c.UpdatedAt, c.CreatedBy, c.UpdatedBy)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// GetByID returns one category or ErrNotFound.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
    c, err := scanCategory(r.q(ctx).QueryRowContext(ctx,
        "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id))
    return c, mapErr(err)
}

// List returns categories ordered by name.  When activeOnly is set
// archived categories are skipped.
func (r *CategoryRepo) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
    q := "SELECT " + categoryColumns + " FROM categories"
    if activeOnly {
        q += " WHERE active = TRUE"
    }
    q += " ORDER BY name ASC, id ASC"
    rows, err := r.q(ctx).QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Category{}
    for rows.Next() {
        c, err := scanCategory(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// Update writes every mutable column of c.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
    const q = `UPDATE categories SET name = ?, code = ?, description = ?, parent_id = ?, active = ?,
        updated_at = ?, updated_by = ? WHERE id = ?`
    res, err := r.q(ctx).ExecContext(ctx, q, c.Name, c.Code, c.Description, c.ParentID, c.Active,
        c.UpdatedAt, c.UpdatedBy, c.ID)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// Delete removes a category.  Referenced categories yield ErrConflict.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.q(ctx).ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// requireAffected turns an UPDATE or DELETE that matched nothing into
// ErrNotFound.  The DSN sets clientFoundRows so that an UPDATE writing
// identical values still reports the matched row.
func requireAffected(res sql.Result) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
