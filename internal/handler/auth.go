package handler

import (
    "context" // provides context with cancellation for DB calls
    "errors"
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/bookable/internal/config"
    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/repository"
    "github.com/iliyamo/bookable/internal/service"
    "github.com/iliyamo/bookable/internal/utils"
)

// UserStore is the user persistence AuthHandler needs.
type UserStore interface {
    Create(ctx context.Context, u *model.User) error
    GetByEmail(ctx context.Context, email string) (model.User, error)
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
    RevokeByHash(ctx context.Context, tokenHash string) error
    RevokeAllForUser(ctx context.Context, userID uint64) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  UserStore
    Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    Name     string `json:"name"`
    Phone    string `json:"phone"`
}
type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
    Name  string `json:"name"`
    Phone string `json:"phone,omitempty"`
    Role  string `json:"role"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
    return userPart{ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone, Role: u.Role}
}

const minPasswordLen = 8

// Register creates a customer account and returns a token pair.  Contact
// data goes through the same checks as the public validate endpoint.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if err := service.ValidateCustomer(service.CustomerData{Name: req.Name, Email: req.Email, Phone: req.Phone}); err != nil {
        return fail(c, err)
    }
    if len(req.Password) < minPasswordLen {
        return badRequest(c, "password must be at least 8 characters")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return fail(c, service.Internal(err))
    }
    u := model.User{
        Email:        req.Email,
        Name:         strings.TrimSpace(req.Name),
        Phone:        strings.TrimSpace(req.Phone),
        PasswordHash: hash,
        Role:         model.RoleCustomer,
        CompanyID:    1,
        IsActive:     true,
    }
    if err := h.Users.Create(ctx, &u); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return fail(c, service.Conflict(service.CodeAlreadyExists, "email already exists"))
        }
        return fail(c, service.Internal(err))
    }
    logging.FromContext(ctx).WithField("user_id", u.ID).Info("user registered")

    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, service.Internal(err))
    }
    return c.JSON(http.StatusCreated, resp)
}

// issue signs an access token and stores a new refresh token for u.
func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return authResp{}, err
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return authResp{}, err
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return authResp{}, err
    }
    return authResp{
        User:    toUserPart(u),
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
    }, nil
}

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": errorBody{Code: "unauthorized", Message: msg}})
}

// Login verifies credentials and returns a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return badRequest(c, "invalid body")
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return badRequest(c, "email/password required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "invalid credentials")
        }
        return fail(c, service.Internal(err))
    }
    if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return unauthorized(c, "invalid credentials")
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, service.Internal(err))
    }
    return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return badRequest(c, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
    if err != nil {
        return unauthorized(c, "invalid refresh")
    }
    if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
        return fail(c, service.Internal(err))
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil || !u.IsActive {
        return unauthorized(c, "invalid refresh")
    }
    resp, err := h.issue(ctx, u)
    if err != nil {
        return fail(c, service.Internal(err))
    }
    return c.JSON(http.StatusOK, resp)
}

// RefreshAccess returns a new access token without rotating the refresh
// token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return badRequest(c, "refresh_token required")
    }
    hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC())
    if err != nil {
        return unauthorized(c, "invalid refresh")
    }
    u, err := h.Users.GetByID(ctx, userID)
    if err != nil || !u.IsActive {
        return unauthorized(c, "invalid refresh")
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, h.Cfg.AccessTTLMin)
    if err != nil {
        return fail(c, service.Internal(err))
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: access.Token, Expires: access.Exp},
    })
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the bearer when only an Authorization header is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
    var uid uint64
    if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
        if id, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
            uid = id.UserID
        }
    }
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    switch {
    case refreshToken != "":
        hash := utils.HashRefreshRaw(refreshToken)
        if _, err := h.Tokens.ValidateRefresh(ctx, hash, time.Now().UTC()); err != nil {
            return unauthorized(c, "invalid refresh token")
        }
        if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
            return fail(c, service.Internal(err))
        }
        return c.NoContent(http.StatusNoContent)
    case uid != 0:
        if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
            return fail(c, service.Internal(err))
        }
        return c.NoContent(http.StatusNoContent)
    }
    return badRequest(c, "provide Authorization header or refresh_token")
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
    actor := actorOf(c)
    u, err := h.Users.GetByID(c.Request().Context(), actor.UserID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return unauthorized(c, "account no longer exists")
        }
        return fail(c, service.Internal(err))
    }
    return c.JSON(http.StatusOK, toUserPart(u))
}

// EnsureAdmin creates an administrator account for email unless one
// exists.  It is used at startup to bootstrap the first admin.
func EnsureAdmin(ctx context.Context, users UserStore, email, password string, cost int) error {
    email = strings.ToLower(strings.TrimSpace(email))
    if email == "" || password == "" {
        return nil
    }
    if _, err := users.GetByEmail(ctx, email); err == nil {
        return nil
    } else if !errors.Is(err, repository.ErrNotFound) {
        return err
    }
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return err
    }
    u := model.User{Email: email, Name: "Administrator", PasswordHash: hash, Role: model.RoleAdmin, CompanyID: 1, IsActive: true}
    if err := users.Create(ctx, &u); err != nil && !errors.Is(err, repository.ErrDuplicate) {
        return err
    }
    logging.FromContext(ctx).WithField("email", email).Info("administrator account created")
    return nil
}
