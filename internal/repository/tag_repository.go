package repository

import (
    "context"
    "time"

    "github.com/iliyamo/bookable/internal/model"
)

// TagRepo encapsulates queries on the tags table.  Deleting a tag detaches
// it from every catalog item (item_tags cascades).
type TagRepo struct{ *Store }

// NewTagRepo constructs a TagRepo on the shared store.
func NewTagRepo(s *Store) *TagRepo { return &TagRepo{Store: s} }

type tagRow struct {
    ID        uint64  `db:"id"`
    Name      string  `db:"name"`
    Color     int     `db:"color"`
    Active    bool    `db:"active"`
    CreatedAt time.Time `db:"created_at"`
    UpdatedAt time.Time `db:"updated_at"`
    CreatedBy *uint64 `db:"created_by"`
    UpdatedBy *uint64 `db:"updated_by"`
}

func (t tagRow) model() model.Tag {
    return model.Tag{
        ID: t.ID, Name: t.Name, Color: t.Color, Active: t.Active,
        Audit: model.Audit{CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt, CreatedBy: t.CreatedBy, UpdatedBy: t.UpdatedBy},
    }
}

const tagColumns = "id, name, color, active, created_at, updated_at, created_by, updated_by"

// Create inserts t and populates its ID.  A duplicate name yields ErrDuplicate.
func (r *TagRepo) Create(ctx context.Context, t *model.Tag) error {
    res, err := r.q(ctx).ExecContext(ctx,
        `INSERT INTO tags (name, color, active, created_at, updated_at, created_by, updated_by) VALUES (?, ?, ?, ?, ?, ?, ?)`,
        t.Name, t.Color, t.Active, t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// GetByID returns one tag or ErrNotFound.
func (r *TagRepo) GetByID(ctx context.Context, id uint64) (model.Tag, error) {
    var row tagRow
    if err := r.q(ctx).GetContext(ctx, &row, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id); err != nil {
        return model.Tag{}, mapErr(err)
    }
    return row.model(), nil
}

// List returns tags ordered by name.
func (r *TagRepo) List(ctx context.Context, activeOnly bool) ([]model.Tag, error) {
    q := "SELECT " + tagColumns + " FROM tags"
    if activeOnly {
        q += " WHERE active = TRUE"
    }
    q += " ORDER BY name ASC"
    var rows []tagRow
    if err := r.q(ctx).SelectContext(ctx, &rows, q); err != nil {
        return nil, err
    }
    out := make([]model.Tag, 0, len(rows))
    for _, row := range rows {
        out = append(out, row.model())
    }
    return out, nil
}

// Update writes every mutable column of t.
func (r *TagRepo) Update(ctx context.Context, t *model.Tag) error {
    res, err := r.q(ctx).ExecContext(ctx,
        `UPDATE tags SET name = ?, color = ?, active = ?, updated_at = ?, updated_by = ? WHERE id = ?`,
        t.Name, t.Color, t.Active, t.UpdatedAt, t.UpdatedBy, t.ID)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}

// Delete removes a tag.
func (r *TagRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.q(ctx).ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
    if err != nil {
        return mapErr(err)
    }
    return requireAffected(res)
}
