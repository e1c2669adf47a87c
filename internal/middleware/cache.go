package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/bookable/internal/config"
    "github.com/iliyamo/bookable/internal/logging"
)

// CatalogCache replays successful anonymous reads of the public catalog.
// Every key embeds a generation number; Invalidate moves to the next
// generation so entries stored before a catalog or booking write are never
// read again and simply expire.
type CatalogCache struct {
    cfg   config.CacheConfig
    store cacheStore
}

// cacheStore is the storage behind CatalogCache: Redis when available,
// otherwise a bounded map local to this process.
type cacheStore interface {
    generation(ctx context.Context) (int64, error)
    bump(ctx context.Context) error
    get(ctx context.Context, key string) ([]byte, bool, error)
    set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// NewCatalogCache builds the cache.  A nil rdb keeps entries in process,
// which is only coherent for a single instance.
func NewCatalogCache(cfg config.CacheConfig, rdb *redis.Client) *CatalogCache {
    cc := &CatalogCache{cfg: cfg}
    if rdb != nil {
        cc.store = &redisStore{rdb: rdb, genKey: cfg.Prefix + ":gen"}
    } else {
        cc.store = newLocalStore(cfg.LocalEntries)
    }
    return cc
}

// Invalidate drops every cached response.  It satisfies
// service.CacheInvalidator.
func (cc *CatalogCache) Invalidate(ctx context.Context) error {
    if !cc.cfg.Enabled {
        return nil
    }
    return cc.store.bump(ctx)
}

// Middleware returns the echo middleware for the cacheable routes.
func (cc *CatalogCache) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            if !cc.cfg.Enabled || !cc.cfg.Caches(req.Method) || req.Header.Get(echo.HeaderAuthorization) != "" {
                return next(c)
            }
            ctx := req.Context()
            log := logging.FromContext(ctx)

            // The generation is read before the handler runs; a write that
            // lands meanwhile leaves this response under a retired key.
            gen, err := cc.store.generation(ctx)
            if err != nil {
                log.WithError(err).Warn("cache generation lookup failed")
                return next(c)
            }
            key := cc.key(c, gen)

            if raw, ok, err := cc.store.get(ctx, key); err != nil {
                log.WithError(err).Warn("cache read failed")
            } else if ok {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    return hit.replay(c)
                }
            }

            capture := &bodyCapture{ResponseWriter: c.Response().Writer, limit: cc.cfg.MaxBodyBytes}
            c.Response().Writer = capture
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if c.Response().Status != http.StatusOK || capture.overflow {
                return nil
            }
            raw, err := json.Marshal(newCachedResponse(c.Response().Header(), capture.buf.Bytes()))
            if err != nil {
                return nil
            }
            // Detached from the request so a client hang-up does not lose the write.
            if err := cc.store.set(context.WithoutCancel(ctx), key, raw, cc.cfg.TTL); err != nil {
                log.WithError(err).Warn("cache store failed")
            }
            return nil
        }
    }
}

// key hashes the parts of the request selected by the key strategy.
func (cc *CatalogCache) key(c echo.Context, gen int64) string {
    r := c.Request()
    var parts []string
    switch cc.cfg.Key {
    case config.KeyRoute:
        parts = []string{c.Path()}
    case config.KeyMethodRouteQuery:
        parts = []string{r.Method, c.Path(), r.URL.RawQuery}
    default:
        parts = []string{c.Path(), r.URL.RawQuery}
    }
    // Path parameters are part of the identity: /v1/items/:id differs per id.
    for _, name := range c.ParamNames() {
        parts = append(parts, name+"="+c.Param(name))
    }
    sum := sha1.Sum([]byte(strings.Join(parts, "\x00")))
    return fmt.Sprintf("%s:g%d:%s", cc.cfg.Prefix, gen, hex.EncodeToString(sum[:]))
}

// cachedResponse is the stored form of one response.
type cachedResponse struct {
    Header http.Header `json:"h"`
    Body   []byte      `json:"b"`
}

func newCachedResponse(h http.Header, body []byte) cachedResponse {
    hdr := h.Clone()
    hdr.Del(echo.HeaderContentLength)
    hdr.Del(logging.CorrelationHeader)
    hdr.Del("X-Cache")
    return cachedResponse{Header: hdr, Body: bytes.Clone(body)}
}

func (cr cachedResponse) replay(c echo.Context) error {
    out := c.Response().Header()
    for k, vals := range cr.Header {
        for _, v := range vals {
            out.Add(k, v)
        }
    }
    out.Set("X-Cache", "HIT")
    c.Response().WriteHeader(http.StatusOK)
    _, err := c.Response().Write(cr.Body)
    return err
}

// bodyCapture tees the response body.  Once the body outgrows limit the
// copy is abandoned and the response is not stored.
type bodyCapture struct {
    http.ResponseWriter
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (bc *bodyCapture) Write(b []byte) (int, error) {
    if !bc.overflow {
        if bc.limit > 0 && bc.buf.Len()+len(b) > bc.limit {
            bc.overflow = true
            bc.buf.Reset()
        } else {
            bc.buf.Write(b)
        }
    }
    return bc.ResponseWriter.Write(b)
}

type redisStore struct {
    rdb    *redis.Client
    genKey string
}

func (s *redisStore) generation(ctx context.Context) (int64, error) {
    n, err := s.rdb.Get(ctx, s.genKey).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return n, err
}

func (s *redisStore) bump(ctx context.Context) error {
    return s.rdb.Incr(ctx, s.genKey).Err()
}

func (s *redisStore) get(ctx context.Context, key string) ([]byte, bool, error) {
    raw, err := s.rdb.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, err
    }
    return raw, true, nil
}

func (s *redisStore) set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
    return s.rdb.Set(ctx, key, val, ttl).Err()
}

type cacheEntry struct {
    val     []byte
    expires time.Time
}

type localStore struct {
    mu      sync.Mutex
    gen     int64
    max     int
    entries map[string]cacheEntry
    now     func() time.Time
}

func newLocalStore(limit int) *localStore {
    return &localStore{max: max(limit, 1), entries: map[string]cacheEntry{}, now: time.Now}
}

func (s *localStore) generation(context.Context) (int64, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.gen, nil
}

// bump also clears the map: nothing in it can be read again.
func (s *localStore) bump(context.Context) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.gen++
    clear(s.entries)
    return nil
}

func (s *localStore) get(_ context.Context, key string) ([]byte, bool, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    e, ok := s.entries[key]
    if !ok {
        return nil, false, nil
    }
    if !s.now().Before(e.expires) {
        delete(s.entries, key)
        return nil, false, nil
    }
    return e.val, true, nil
}

func (s *localStore) set(_ context.Context, key string, val []byte, ttl time.Duration) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.now()
    if _, ok := s.entries[key]; !ok && len(s.entries) >= s.max {
        for k, e := range s.entries {
            if !now.Before(e.expires) {
                delete(s.entries, k)
            }
        }
        // Still full: evict an arbitrary entry.
        for k := range s.entries {
            if len(s.entries) < s.max {
                break
            }
            delete(s.entries, k)
        }
    }
    s.entries[key] = cacheEntry{val: val, expires: now.Add(ttl)}
    return nil
}
