package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/bookable/internal/config"
    "github.com/iliyamo/bookable/internal/logging"
    "github.com/iliyamo/bookable/internal/utils"
)

const secret = "test-secret"

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func bearer(t *testing.T, id uint64, role string) string {
    t.Helper()
    tok, err := utils.NewAccessToken(secret, id, role, 5)
    require.NoError(t, err)
    return "Bearer " + tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
    e := echo.New()
    g := e.Group("/admin", JWTAuth(secret), RequireRole("ADMIN"))
    g.GET("/whoami", func(c echo.Context) error {
        return c.JSON(http.StatusOK, echo.Map{"id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
    })

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/admin/whoami", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req := httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer nonsense")
    assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
    req.Header.Set(echo.HeaderAuthorization, bearer(t, 3, "CUSTOMER"))
    assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

    req = httptest.NewRequest(http.MethodGet, "/admin/whoami", nil)
    req.Header.Set(echo.HeaderAuthorization, bearer(t, 9, "ADMIN"))
    rec = serve(e, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.JSONEq(t, `{"id":9,"role":"ADMIN"}`, rec.Body.String())
}

func TestRequestLoggerCorrelationID(t *testing.T) {
    e := echo.New()
    e.Use(RequestLogger())
    var seen string
    e.GET("/ping", func(c echo.Context) error {
        seen = logging.CorrelationIDFromContext(c.Request().Context())
        return c.String(http.StatusOK, "pong")
    })
    e.GET("/boom", func(c echo.Context) error {
        return echo.NewHTTPError(http.StatusTeapot, "short and stout")
    })

    req := httptest.NewRequest(http.MethodGet, "/ping", nil)
    req.Header.Set(logging.CorrelationHeader, "abc-123")
    rec := serve(e, req)
    assert.Equal(t, "abc-123", rec.Header().Get(logging.CorrelationHeader))
    assert.Equal(t, "abc-123", seen)

    rec = serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
    assert.NotEmpty(t, rec.Header().Get(logging.CorrelationHeader))
    assert.Equal(t, rec.Header().Get(logging.CorrelationHeader), seen)

    rec = serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
    assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLocalTokenBucket(t *testing.T) {
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    "ip",
        Prefix:         "rl",
    }
    e := echo.New()
    e.Use(NewTokenBucket(cfg, nil))
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

    for i := 0; i < 2; i++ {
        assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
    }
    rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.NotEmpty(t, rec.Header().Get("Retry-After"))

    other := httptest.NewRequest(http.MethodGet, "/", nil)
    other.RemoteAddr = "10.1.1.1:1234"
    assert.Equal(t, http.StatusNoContent, serve(e, other).Code, "buckets are per key")
}

func TestRateLimitDisabled(t *testing.T) {
    e := echo.New()
    e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
    e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
    for i := 0; i < 5; i++ {
        assert.Equal(t, http.StatusNoContent, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
    }
}

func cachedServer(cfg config.CacheConfig) (*echo.Echo, *CatalogCache, *int) {
    cache := NewCatalogCache(cfg, nil)
    e := echo.New()
    calls := 0
    h := func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"n": calls, "id": c.Param("id")})
    }
    e.GET("/v1/items", h, cache.Middleware())
    e.GET("/v1/items/:id", h, cache.Middleware())
    e.GET("/v1/missing", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusNotFound, echo.Map{"n": calls})
    }, cache.Middleware())
    return e, cache, &calls
}

func cacheConfig() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      []string{http.MethodGet},
        TTL:          time.Minute,
        Key:          config.KeyRouteQuery,
        Prefix:       "c",
        LocalEntries: 16,
    }
}

func TestCacheHitAndInvalidate(t *testing.T) {
    e, cache, calls := cachedServer(cacheConfig())

    rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/items/7", nil))
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/items/7", nil))
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))
    assert.JSONEq(t, `{"n":1,"id":"7"}`, rec.Body.String())
    assert.Equal(t, 1, *calls)

    rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/items/8", nil))
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"), "path parameters are part of the key")

    require.NoError(t, cache.Invalidate(context.Background()))
    rec = serve(e, httptest.NewRequest(http.MethodGet, "/v1/items/7", nil))
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"n":3,"id":"7"}`, rec.Body.String())
}

func TestCacheSkipsAuthorizedErrorsAndLargeBodies(t *testing.T) {
    cfg := cacheConfig()
    cfg.MaxBodyBytes = 8
    e, _, calls := cachedServer(cfg)

    for i := 0; i < 2; i++ {
        serve(e, httptest.NewRequest(http.MethodGet, "/v1/missing", nil))
    }
    assert.Equal(t, 2, *calls, "only 200 responses are stored")

    for i := 0; i < 2; i++ {
        rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/items/1", nil))
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.NotEmpty(t, rec.Body.String(), "oversized bodies are still served in full")
    }
    assert.Equal(t, 4, *calls, "bodies over the limit are not stored")

    cfg.MaxBodyBytes = 0
    e, _, calls = cachedServer(cfg)
    for i := 0; i < 2; i++ {
        req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
        req.Header.Set(echo.HeaderAuthorization, "Bearer x")
        rec := serve(e, req)
        assert.Empty(t, rec.Header().Get("X-Cache"))
    }
    assert.Equal(t, 2, *calls)
}

func TestCacheDisabledIsPassThrough(t *testing.T) {
    cfg := cacheConfig()
    cfg.Enabled = false
    e, cache, calls := cachedServer(cfg)
    serve(e, httptest.NewRequest(http.MethodGet, "/v1/items", nil))
    rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/items", nil))
    assert.Equal(t, 2, *calls)
    assert.Empty(t, rec.Header().Get("X-Cache"))
    assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestCacheKeyIncludesQuery(t *testing.T) {
    cache := NewCatalogCache(cacheConfig(), nil)
    e := echo.New()
    mk := func(target string, gen int64) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/v1/items")
        return cache.key(c, gen)
    }
    assert.Equal(t, mk("/v1/items?page=1", 0), mk("/v1/items?page=1", 0))
    assert.NotEqual(t, mk("/v1/items?page=1", 0), mk("/v1/items?page=2", 0))
    assert.NotEqual(t, mk("/v1/items?page=1", 0), mk("/v1/items?page=1", 1))
    assert.True(t, strings.HasPrefix(mk("/v1/items", 3), "c:g3:"))
}

func TestLocalStoreExpiresAndStaysBounded(t *testing.T) {
    now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
    st := newLocalStore(2)
    st.now = func() time.Time { return now }
    ctx := context.Background()

    require.NoError(t, st.set(ctx, "a", []byte("1"), time.Minute))
    require.NoError(t, st.set(ctx, "b", []byte("2"), time.Hour))
    require.NoError(t, st.set(ctx, "c", []byte("3"), time.Hour))
    assert.Len(t, st.entries, 2)
    _, ok, _ := st.get(ctx, "c")
    assert.True(t, ok)

    now = now.Add(2 * time.Hour)
    _, ok, _ = st.get(ctx, "c")
    assert.False(t, ok, "expired entries are not served")
}
