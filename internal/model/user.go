package model

import "time"

// Role names stored in users.role.  Administrators manage the catalog and
// may act on any booking; customers act on their own bookings only.
const (
    RoleAdmin    = "ADMIN"
    RoleCustomer = "CUSTOMER"
)

// User represents an application user record as stored in the `users`
// table.  Customers book catalog items; administrators maintain the
// catalog.  The password hash never leaves the repository layer: handlers
// render users through their own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – display name, required on registration.
//  Phone        – optional contact number.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or CUSTOMER.
//  CompanyID    – tenant the user belongs to.
//  IsActive     – whether the account is active.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    Name         string    // users.name
    Phone        string    // users.phone
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CompanyID    uint64    // users.company_id
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
