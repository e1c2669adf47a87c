package handler_test

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bookable/internal/clock"
    "github.com/iliyamo/bookable/internal/config"
    "github.com/iliyamo/bookable/internal/handler"
    "github.com/iliyamo/bookable/internal/middleware"
    "github.com/iliyamo/bookable/internal/model"
    "github.com/iliyamo/bookable/internal/router"
    "github.com/iliyamo/bookable/internal/sequence"
    "github.com/iliyamo/bookable/internal/service"
    "github.com/iliyamo/bookable/internal/testutil"
    "github.com/iliyamo/bookable/internal/utils"
)

const secret = "handler-test-secret"

type server struct {
    e     *echo.Echo
    store *testutil.Store
}

func newServer(t *testing.T) *server {
    t.Helper()
    st := testutil.NewStore()
    clk := clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
    refs := sequence.NewReferencer(sequence.NewMemory(), "BOOK", 4)
    cache := middleware.NewCatalogCache(config.CacheConfig{
        Enabled: true, Methods: []string{http.MethodGet}, TTL: time.Hour, Key: config.KeyRouteQuery, Prefix: "test", LocalEntries: 64,
    }, nil)
    catalog := service.NewCatalogService(st, st.Categories, st.Tags, st.Items, st.Bookings, clk, service.WithCatalogCache(cache))
    bookings := service.NewBookingService(st, st.Items, st.Bookings, refs, nil, clk, service.WithBookingCache(cache))
    cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

    e := echo.New()
    e.Use(middleware.RequestLogger())
    bh := handler.NewBookingHandler(bookings)
    router.RegisterRoutes(e, nil, true)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.Users, st.Tokens), secret)
    router.RegisterPublic(e, handler.NewPublicHandler(catalog), cache.Middleware())
    router.RegisterBookings(e, bh, secret)
    router.RegisterAdmin(e, handler.NewAdminHandler(catalog, bookings), bh, secret)
    return &server{e: e, store: st}
}

func (s *server) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
    t.Helper()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    if token != "" {
        req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
    }
    rec := httptest.NewRecorder()
    s.e.ServeHTTP(rec, req)
    return rec
}

func tokenFor(t *testing.T, u model.User) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, u.ID, u.Role, 15)
    require.NoError(t, err)
    return tok.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
    t.Helper()
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type apiError struct {
    Error struct {
        Code    string `json:"code"`
        Message string `json:"message"`
    } `json:"error"`
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
    t.Helper()
    var body apiError
    decode(t, rec, &body)
    return body.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
    s := newServer(t)
    rec := s.do(t, http.MethodGet, "/healthz", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())

    rec = s.do(t, http.MethodGet, "/metrics", "", "")
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "bookable_http_requests_total")
}

func TestAuthFlow(t *testing.T) {
    s := newServer(t)

    rec := s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"Ann@Example.com","password":"hunter22!","name":"Ann"}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var reg struct {
        User struct {
            ID    uint64 `json:"id"`
            Email string `json:"email"`
            Role  string `json:"role"`
        } `json:"user"`
        Access  struct{ Token string } `json:"access"`
        Refresh struct{ Token string } `json:"refresh"`
    }
    decode(t, rec, &reg)
    assert.Equal(t, "ann@example.com", reg.User.Email)
    assert.Equal(t, model.RoleCustomer, reg.User.Role)

    rec = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"ann@example.com","password":"hunter22!","name":"Ann"}`)
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Equal(t, service.CodeAlreadyExists, errorCode(t, rec))

    rec = s.do(t, http.MethodPost, "/v1/auth/register", "", `{"email":"bob@example","password":"hunter22!","name":"Bob"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, service.CodeInvalidEmail, errorCode(t, rec))

    rec = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"ann@example.com","password":"wrong-pass"}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = s.do(t, http.MethodPost, "/v1/auth/login", "", `{"email":"ann@example.com","password":"hunter22!"}`)
    require.Equal(t, http.StatusOK, rec.Code)

    rec = s.do(t, http.MethodGet, "/v1/me", reg.Access.Token, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"email":"ann@example.com"`)

    // Rotation invalidates the old refresh token.
    rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    rec = s.do(t, http.MethodPost, "/v1/auth/logout", "", `{}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    rec = s.do(t, http.MethodPost, "/v1/logout", reg.Access.Token, "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEnsureAdmin(t *testing.T) {
    st := testutil.NewStore()
    ctx := t.Context()
    require.NoError(t, handler.EnsureAdmin(ctx, st.Users, "Root@Example.com", "sup3r-secret", 4))
    require.NoError(t, handler.EnsureAdmin(ctx, st.Users, "root@example.com", "sup3r-secret", 4))

    u, err := st.Users.GetByEmail(ctx, "root@example.com")
    require.NoError(t, err)
    assert.Equal(t, model.RoleAdmin, u.Role)
    assert.True(t, utils.VerifyPassword(u.PasswordHash, "sup3r-secret"))

    assert.NoError(t, handler.EnsureAdmin(ctx, st.Users, "", "", 4))
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
    s := newServer(t)
    cust := tokenFor(t, s.store.SeedUser("c@example.com", model.RoleCustomer))

    assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/v1/admin/items", "", "").Code)
    assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/v1/admin/items", cust, "").Code)
    assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/v1/admin/tags", cust, `{"name":"x"}`).Code)
}

func TestCatalogAdministrationAndPublicVisibility(t *testing.T) {
    s := newServer(t)
    admin := tokenFor(t, s.store.SeedUser("admin@example.com", model.RoleAdmin))

    rec := s.do(t, http.MethodPost, "/v1/admin/categories", admin, `{"name":"Workshops","code":"ws"}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var cat model.Category
    decode(t, rec, &cat)

    rec = s.do(t, http.MethodPost, "/v1/admin/items", admin, `{"name":"Go Basics","price":"40","capacity":10,"published":false,"category_id":`+jsonID(cat.ID)+`}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var item model.CatalogItem
    decode(t, rec, &item)
    assert.False(t, item.Published)

    // Unpublished items are hidden from guests.
    assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/items/"+jsonID(item.ID), "", "").Code)
    rec = s.do(t, http.MethodGet, "/v1/items", "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":0`)

    rec = s.do(t, http.MethodPost, "/v1/admin/items/"+jsonID(item.ID)+"/publish", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)

    rec = s.do(t, http.MethodGet, "/v1/items?category="+jsonID(cat.ID), "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var page struct {
        Items []struct {
            ID   uint64 `json:"id"`
            Name string `json:"name"`
        } `json:"items"`
        Total int `json:"total"`
    }
    decode(t, rec, &page)
    require.Equal(t, 1, page.Total)
    assert.Equal(t, "Go Basics", page.Items[0].Name)

    rec = s.do(t, http.MethodPost, "/v1/admin/items/"+jsonID(item.ID)+"/archive", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/items/"+jsonID(item.ID), "", "").Code)
    assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/v1/admin/items/"+jsonID(item.ID), admin, "").Code)

    // A category in use cannot be removed.
    rec = s.do(t, http.MethodDelete, "/v1/admin/categories/"+jsonID(cat.ID), admin, "")
    assert.Equal(t, http.StatusConflict, rec.Code)

    rec = s.do(t, http.MethodPatch, "/v1/admin/items/"+jsonID(item.ID), admin, `{"capacity":-1}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/admin/items/abc", admin, "").Code)
    assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/items?page=x", "", "").Code)
}

func TestEnvelopeEndpoints(t *testing.T) {
    s := newServer(t)
    item := s.store.SeedItem("Yoga", 2, "15")
    id := jsonID(item.ID)

    rec := s.do(t, http.MethodGet, "/v1/items/"+id+"/price?quantity=3", "", "")
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var price struct {
        Success bool `json:"success"`
        Data    struct {
            Subtotal string `json:"subtotal"`
            Quantity int    `json:"quantity"`
        } `json:"data"`
    }
    decode(t, rec, &price)
    assert.True(t, price.Success)
    assert.Equal(t, 3, price.Data.Quantity)
    assert.Equal(t, "45", price.Data.Subtotal)

    rec = s.do(t, http.MethodGet, "/v1/items/"+id+"/price?quantity=0", "", "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.JSONEq(t, `{"success":false,"error":{"code":"invalid_quantity","message":"quantity must be at least 1"}}`, rec.Body.String())

    rec = s.do(t, http.MethodGet, "/v1/items/"+id+"/availability?quantity=3", "", "")
    require.Equal(t, http.StatusOK, rec.Code)
    var av struct {
        Success bool                 `json:"success"`
        Data    service.Availability `json:"data"`
    }
    decode(t, rec, &av)
    assert.True(t, av.Success)
    assert.False(t, av.Data.Available)
    assert.Equal(t, 2, av.Data.AvailableSeats)

    rec = s.do(t, http.MethodGet, "/v1/items/9999/availability", "", "")
    assert.Equal(t, http.StatusNotFound, rec.Code)
    assert.Contains(t, rec.Body.String(), `"success":false`)

    rec = s.do(t, http.MethodPost, "/v1/items/"+id+"/validate", "", `{"name":"Ann","email":"ann@example.com","phone":"+1 555 0100"}`)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"success":true,"data":{"valid":true}}`, rec.Body.String())

    rec = s.do(t, http.MethodPost, "/v1/items/"+id+"/validate", "", `{"name":"Ann","email":"not-an-email"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), `"code":"invalid_email"`)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
    s := newServer(t)
    item := s.store.SeedItem("Concert", 1, "25")
    ann := tokenFor(t, s.store.SeedUser("ann@example.com", model.RoleCustomer))
    bob := tokenFor(t, s.store.SeedUser("bob@example.com", model.RoleCustomer))
    admin := tokenFor(t, s.store.SeedUser("admin@example.com", model.RoleAdmin))
    body := `{"item_id":` + jsonID(item.ID) + `,"quantity":1}`

    rec := s.do(t, http.MethodPost, "/v1/bookings", ann, body)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var first model.Booking
    decode(t, rec, &first)
    assert.Equal(t, model.BookingConfirmed, first.State)
    assert.Equal(t, "BOOK/2026/0001", first.Reference)
    assert.Equal(t, "25", first.Amount.String())

    rec = s.do(t, http.MethodPost, "/v1/bookings", ann, body)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, service.CodeDuplicateBooking, errorCode(t, rec))

    rec = s.do(t, http.MethodPost, "/v1/bookings", bob, body)
    require.Equal(t, http.StatusCreated, rec.Code)
    var second model.Booking
    decode(t, rec, &second)
    assert.Equal(t, model.BookingWaitlisted, second.State)

    // Bob cannot see Ann's booking.
    rec = s.do(t, http.MethodGet, "/v1/bookings/"+jsonID(first.ID), bob, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)

    rec = s.do(t, http.MethodGet, "/v1/bookings/"+jsonID(second.ID), bob, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"waitlist_position":1`)

    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(first.ID)+"/cancel", ann, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var cancelled service.CancelResult
    decode(t, rec, &cancelled)
    assert.Equal(t, model.BookingCancelled, cancelled.Booking.State)
    require.Len(t, cancelled.Promoted, 1)
    assert.Equal(t, second.ID, cancelled.Promoted[0].ID)

    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(second.ID)+"/done", bob, "")
    assert.Equal(t, http.StatusForbidden, rec.Code)
    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(second.ID)+"/done", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)

    rec = s.do(t, http.MethodPatch, "/v1/bookings/"+jsonID(second.ID), bob, `{"review_rating":5,"review_comment":"great"}`)
    require.Equal(t, http.StatusOK, rec.Code)
    rec = s.do(t, http.MethodPatch, "/v1/bookings/"+jsonID(second.ID), bob, `{"quantity":2}`)
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.Equal(t, service.CodeBookingFinalized, errorCode(t, rec))

    rec = s.do(t, http.MethodGet, "/v1/my-bookings?state=done", bob, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":1`)

    rec = s.do(t, http.MethodGet, "/v1/admin/bookings?item_id="+jsonID(item.ID), admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":2`)

    rec = s.do(t, http.MethodGet, "/v1/admin/items/"+jsonID(item.ID)+"/bookings?state=cancelled", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), `"total":1`)

    rec = s.do(t, http.MethodDelete, "/v1/bookings/"+jsonID(first.ID), ann, "")
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDraftBookingAndAdminPromote(t *testing.T) {
    s := newServer(t)
    item := s.store.SeedItem("Tour", 1, "10")
    ann := tokenFor(t, s.store.SeedUser("ann@example.com", model.RoleCustomer))
    bob := tokenFor(t, s.store.SeedUser("bob@example.com", model.RoleCustomer))
    admin := tokenFor(t, s.store.SeedUser("admin@example.com", model.RoleAdmin))

    rec := s.do(t, http.MethodPost, "/v1/bookings", ann, `{"item_id":`+jsonID(item.ID)+`,"quantity":1,"confirm":false}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    var draft model.Booking
    decode(t, rec, &draft)
    assert.Equal(t, model.BookingDraft, draft.State)

    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(draft.ID)+"/confirm", ann, "")
    require.Equal(t, http.StatusOK, rec.Code)

    rec = s.do(t, http.MethodPost, "/v1/bookings", bob, `{"item_id":`+jsonID(item.ID)+`,"quantity":1}`)
    require.Equal(t, http.StatusCreated, rec.Code)
    var waiting model.Booking
    decode(t, rec, &waiting)
    require.Equal(t, model.BookingWaitlisted, waiting.State)

    rec = s.do(t, http.MethodPost, "/v1/admin/bookings/"+jsonID(waiting.ID)+"/promote", admin, "")
    require.Equal(t, http.StatusOK, rec.Code)
    var res service.PromoteResult
    decode(t, rec, &res)
    assert.Equal(t, model.BookingConfirmed, res.Booking.State)
    assert.True(t, res.Overbooked)

    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(draft.ID)+"/duplicate", ann, "")
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, service.CodeDuplicateBooking, errorCode(t, rec))
}

func jsonID(id uint64) string {
    b, _ := json.Marshal(id)
    return string(b)
}

func TestItemDetailReflectsBookingChanges(t *testing.T) {
    s := newServer(t)
    item := s.store.SeedItem("Tasting", 3, "30")
    ann := tokenFor(t, s.store.SeedUser("ann@example.com", model.RoleCustomer))
    path := "/v1/items/" + jsonID(item.ID)

    detail := func() (model.ItemDetail, string) {
        t.Helper()
        rec := s.do(t, http.MethodGet, path, "", "")
        require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
        var d model.ItemDetail
        decode(t, rec, &d)
        return d, rec.Header().Get("X-Cache")
    }

    d, state := detail()
    assert.Equal(t, "MISS", state)
    assert.Equal(t, 3, d.AvailableSeats)
    _, state = detail()
    assert.Equal(t, "HIT", state)

    rec := s.do(t, http.MethodPost, "/v1/bookings", ann, `{"item_id":`+jsonID(item.ID)+`,"quantity":2}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    var b model.Booking
    decode(t, rec, &b)

    d, state = detail()
    assert.Equal(t, "MISS", state, "a confirmed booking retires the cached detail")
    assert.Equal(t, 1, d.AvailableSeats)
    assert.Equal(t, 2, d.ReservedSeats)

    rec = s.do(t, http.MethodPost, "/v1/bookings/"+jsonID(b.ID)+"/cancel", ann, "")
    require.Equal(t, http.StatusOK, rec.Code)
    d, _ = detail()
    assert.Equal(t, 3, d.AvailableSeats)
    assert.Equal(t, 0, d.ReservedSeats)
}
