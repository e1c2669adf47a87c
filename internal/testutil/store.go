// Package testutil provides in-memory stand-ins for the MySQL
// repositories.  They honour the same sentinel errors and ordering rules
// so service and handler tests can run without a database.
package testutil

import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/queue"
    "github.com/iliyamo/bookable/internal/repository"
)

type txMarker struct{}

type state struct {
    users      map[uint64]model.User
    tokens     map[string]model.RefreshToken
    categories map[uint64]model.Category
    tags       map[uint64]model.Tag
    items      map[uint64]model.CatalogItem
    bookings   map[uint64]model.Booking
}

func (s state) clone() state {
    c := state{
        users:      make(map[uint64]model.User, len(s.users)),
        tokens:     make(map[string]model.RefreshToken, len(s.tokens)),
        categories: make(map[uint64]model.Category, len(s.categories)),
        tags:       make(map[uint64]model.Tag, len(s.tags)),
        items:      make(map[uint64]model.CatalogItem, len(s.items)),
        bookings:   make(map[uint64]model.Booking, len(s.bookings)),
    }
    for k, v := range s.users {
        c.users[k] = v
    }
    for k, v := range s.tokens {
        c.tokens[k] = v
    }
    for k, v := range s.categories {
        c.categories[k] = v
    }
    for k, v := range s.tags {
        c.tags[k] = v
    }
    for k, v := range s.items {
        v.TagIDs = append([]uint64{}, v.TagIDs...)
        c.items[k] = v
    }
    for k, v := range s.bookings {
        c.bookings[k] = v
    }
    return c
}

// Store is an in-memory database.  Transactions are serialised and roll
// back by restoring a snapshot taken when they began.
type Store struct {
    txMu sync.Mutex
    mu   sync.Mutex
    data state
    seq  uint64

    // Commits counts successful top level transactions.
    Commits int
    // Rollbacks counts failed top level transactions.
    Rollbacks int

    Users      *Users
    Tokens     *Tokens
    Categories *Categories
    Tags       *Tags
    Items      *Items
    Bookings   *Bookings
}

// NewStore returns an empty store.
func NewStore() *Store {
    s := &Store{data: state{}.clone()}
    s.Users = &Users{s}
    s.Tokens = &Tokens{s}
    s.Categories = &Categories{s}
    s.Tags = &Tags{s}
    s.Items = &Items{s}
    s.Bookings = &Bookings{s}
    return s
}

// WithTx runs fn serialised with every other transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
    if ctx.Value(txMarker{}) != nil {
        return fn(ctx)
    }
    s.txMu.Lock()
    defer s.txMu.Unlock()

    s.mu.Lock()
    snap := s.data.clone()
    s.mu.Unlock()

    if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
        s.mu.Lock()
        s.data = snap
        s.Rollbacks++
        s.mu.Unlock()
        return err
    }
    s.mu.Lock()
    s.Commits++
    s.mu.Unlock()
    return nil
}

func (s *Store) nextID() uint64 {
    s.seq++
    return s.seq
}

// ----- users & tokens -----

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    for _, other := range r.s.data.users {
        if other.Email == u.Email {
            return repository.ErrDuplicate
        }
    }
    u.ID = r.s.nextID()
    now := time.Now().UTC()
    u.CreatedAt, u.UpdatedAt = now, now
    r.s.data.users[u.ID] = *u
    return nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    email = strings.ToLower(strings.TrimSpace(email))
    for _, u := range r.s.data.users {
        if u.Email == email {
            return u, nil
        }
    }
    return model.User{}, repository.ErrNotFound
}

func (r *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    u, ok := r.s.data.users[id]
    if !ok {
        return model.User{}, repository.ErrNotFound
    }
    return u, nil
}

type Tokens struct{ s *Store }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.tokens[hash]; ok {
        return repository.ErrDuplicate
    }
    r.s.data.tokens[hash] = model.RefreshToken{ID: r.s.nextID(), UserID: userID, TokenHash: hash, ExpiresAt: exp, CreatedAt: time.Now().UTC()}
    return nil
}

func (r *Tokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    t, ok := r.s.data.tokens[hash]
    if !ok || t.RevokedAt != nil || now.After(t.ExpiresAt) {
        return 0, repository.ErrNotFound
    }
    return t.UserID, nil
}

func (r *Tokens) RevokeByHash(_ context.Context, hash string) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if t, ok := r.s.data.tokens[hash]; ok && t.RevokedAt == nil {
        now := time.Now().UTC()
        t.RevokedAt = &now
        r.s.data.tokens[hash] = t
    }
    return nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    now := time.Now().UTC()
    for h, t := range r.s.data.tokens {
        if t.UserID == userID && t.RevokedAt == nil {
            t.RevokedAt = &now
            r.s.data.tokens[h] = t
        }
    }
    return nil
}

// ----- categories & tags -----

type Categories struct{ s *Store }

func (r *Categories) codeTaken(code *string, exclude uint64) bool {
    if code == nil {
        return false
    }
    for _, c := range r.s.data.categories {
        if c.ID != exclude && c.Code != nil && *c.Code == *code {
            return true
        }
    }
    return false
}

func (r *Categories) Create(_ context.Context, c *model.Category) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if r.codeTaken(c.Code, 0) {
        return repository.ErrDuplicate
    }
    if c.ParentID != nil {
        if _, ok := r.s.data.categories[*c.ParentID]; !ok {
            return repository.ErrNotFound
        }
    }
    c.ID = r.s.nextID()
    r.s.data.categories[c.ID] = *c
    return nil
}

func (r *Categories) GetByID(_ context.Context, id uint64) (model.Category, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    c, ok := r.s.data.categories[id]
    if !ok {
        return model.Category{}, repository.ErrNotFound
    }
    return c, nil
}

func (r *Categories) List(_ context.Context, activeOnly bool) ([]model.Category, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := []model.Category{}
    for _, c := range r.s.data.categories {
        if activeOnly && !c.Active {
            continue
        }
        out = append(out, c)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Name != out[j].Name {
            return out[i].Name < out[j].Name
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (r *Categories) Update(_ context.Context, c *model.Category) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.categories[c.ID]; !ok {
        return repository.ErrNotFound
    }
    if r.codeTaken(c.Code, c.ID) {
        return repository.ErrDuplicate
    }
    r.s.data.categories[c.ID] = *c
    return nil
}

func (r *Categories) Delete(_ context.Context, id uint64) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.categories[id]; !ok {
        return repository.ErrNotFound
    }
    for _, it := range r.s.data.items {
        if it.CategoryID != nil && *it.CategoryID == id {
            return repository.ErrConflict
        }
    }
    for _, c := range r.s.data.categories {
        if c.ParentID != nil && *c.ParentID == id {
            return repository.ErrConflict
        }
    }
    delete(r.s.data.categories, id)
    return nil
}

type Tags struct{ s *Store }

func (r *Tags) nameTaken(name string, exclude uint64) bool {
    for _, t := range r.s.data.tags {
        if t.ID != exclude && t.Name == name {
            return true
        }
    }
    return false
}

func (r *Tags) Create(_ context.Context, t *model.Tag) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if r.nameTaken(t.Name, 0) {
        return repository.ErrDuplicate
    }
    t.ID = r.s.nextID()
    r.s.data.tags[t.ID] = *t
    return nil
}

func (r *Tags) GetByID(_ context.Context, id uint64) (model.Tag, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    t, ok := r.s.data.tags[id]
    if !ok {
        return model.Tag{}, repository.ErrNotFound
    }
    return t, nil
}

func (r *Tags) List(_ context.Context, activeOnly bool) ([]model.Tag, error) {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    out := []model.Tag{}
    for _, t := range r.s.data.tags {
        if activeOnly && !t.Active {
            continue
        }
        out = append(out, t)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
    return out, nil
}

func (r *Tags) Update(_ context.Context, t *model.Tag) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.tags[t.ID]; !ok {
        return repository.ErrNotFound
    }
    if r.nameTaken(t.Name, t.ID) {
        return repository.ErrDuplicate
    }
    r.s.data.tags[t.ID] = *t
    return nil
}

func (r *Tags) Delete(_ context.Context, id uint64) error {
    r.s.mu.Lock()
    defer r.s.mu.Unlock()
    if _, ok := r.s.data.tags[id]; !ok {
        return repository.ErrNotFound
    }
    delete(r.s.data.tags, id)
    for k, it := range r.s.data.items {
        kept := make([]uint64, 0, len(it.TagIDs))
        for _, tid := range it.TagIDs {
            if tid != id {
                kept = append(kept, tid)
            }
        }
        it.TagIDs = kept
        r.s.data.items[k] = it
    }
    return nil
}

// ----- events -----

// Events records published booking events.
type Events struct {
    mu     sync.Mutex
    events []queue.BookingEvent
    // Err, when set, is returned by Publish after recording the event.
    Err error
}

func (e *Events) Publish(_ context.Context, ev queue.BookingEvent) error {
    e.mu.Lock()
    defer e.mu.Unlock()
    e.events = append(e.events, ev)
    return e.Err
}

// Types returns the recorded event types in order.
func (e *Events) Types() []queue.EventType {
    e.mu.Lock()
    defer e.mu.Unlock()
    out := make([]queue.EventType, len(e.events))
    for i, ev := range e.events {
        out[i] = ev.Type
    }
    return out
}

// All returns a copy of the recorded events.
func (e *Events) All() []queue.BookingEvent {
    e.mu.Lock()
    defer e.mu.Unlock()
    return append([]queue.BookingEvent{}, e.events...)
}
