package sequence

import (
    "context"
    "database/sql"
)

// MySQL keeps counters in the sequences table.  The upsert and the read of
// LAST_INSERT_ID happen on the same connection inside one statement, so
// concurrent callers always see distinct values.
type MySQL struct {
    db *sql.DB
}

// NewMySQL returns a generator over db.
func NewMySQL(db *sql.DB) *MySQL { return &MySQL{db: db} }

// Next increments the counter, creating it at 1.
func (m *MySQL) Next(ctx context.Context, key string) (int64, error) {
    res, err := m.db.ExecContext(ctx,
        `INSERT INTO sequences (name, value) VALUES (?, LAST_INSERT_ID(1))
         ON DUPLICATE KEY UPDATE value = LAST_INSERT_ID(value + 1)`, key)
    if err != nil {
        return 0, err
    }
    return res.LastInsertId()
}
