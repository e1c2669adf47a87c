package model

import "time"

// Category groups catalog items.  Categories may be nested through
// ParentID; the code, when set, is unique across all categories.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name (required).
//  Code        – optional short unique code (e.g. WORKSHOP).
//  Description – optional free text.
//  ParentID    – parent category (nil for a root category).
//  Active      – archived categories are hidden from public listings.
type Category struct {
    ID          uint64    `json:"id"`                    // categories.id
    Name        string    `json:"name"`                  // categories.name
    Code        *string   `json:"code,omitempty"`        // categories.code (nullable, unique)
    Description string    `json:"description,omitempty"` // categories.description
    ParentID    *uint64   `json:"parent_id,omitempty"`   // categories.parent_id (nullable)
    Active      bool      `json:"active"`                // categories.active
    Audit
}

// Tag is a flat label attached to catalog items.  Color is an index into
// the front-end palette (0..11), matching the convention of the admin UI.
type Tag struct {
    ID     uint64 `json:"id"`     // tags.id
    Name   string `json:"name"`   // tags.name (unique)
    Color  int    `json:"color"`  // tags.color
    Active bool   `json:"active"` // tags.active
    Audit
}

// MaxTagColor is the highest palette index accepted for a tag.
const MaxTagColor = 11

// Audit carries the bookkeeping columns every persisted entity owns.
// CreatedAt/CreatedBy are set on insert, UpdatedAt/UpdatedBy on every write.
type Audit struct {
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
    CreatedBy *uint64   `json:"created_by,omitempty"`
    UpdatedBy *uint64   `json:"updated_by,omitempty"`
}

// Touch stamps the audit columns for a write performed by actor at now.
// A zero CreatedAt is treated as an insert.
func (a *Audit) Touch(now time.Time, actor uint64) {
    var by *uint64
    if actor != 0 {
        id := actor
        by = &id
    }
    if a.CreatedAt.IsZero() {
        a.CreatedAt = now
        a.CreatedBy = by
    }
    a.UpdatedAt = now
    a.UpdatedBy = by
}
