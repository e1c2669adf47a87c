package repository

import (
    "context"
    "strings"

    "github.com/iliyamo/bookable/internal/model"
)

// UserRepo reads and writes the 'users' table.
type UserRepo struct{ *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{Store: s} }

const userColumns = "id,email,name,phone,password_hash,role,company_id,is_active,created_at,updated_at"

// Create inserts user and sets its ID.  The email is normalised to lower
// case; a taken email yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
    u.Email = strings.ToLower(strings.TrimSpace(u.Email))
    res, err := r.q(ctx).ExecContext(ctx,
        "INSERT INTO users (email, name, phone, password_hash, role, company_id, is_active) VALUES (?,?,?,?,?,?,?)",
        u.Email, u.Name, u.Phone, u.PasswordHash, u.Role, u.CompanyID, u.IsActive)
    if err != nil {
        return mapErr(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    u.ID = uint64(id)
    return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.q(ctx).QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
        email).Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.Role, &u.CompanyID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, mapErr(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.q(ctx).QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.Role, &u.CompanyID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, mapErr(err)
}
