package config

import (
    "strings"
    "time"
)

// CacheKey selects which parts of a request identify a cached response.
type CacheKey string

const (
    KeyRoute            CacheKey = "route"              // route pattern only
    KeyRouteQuery       CacheKey = "route_query"        // route pattern and raw query
    KeyMethodRouteQuery CacheKey = "method_route_query" // method, route and query
)

// CacheConfig controls the response cache in front of the public catalog
// reads.  Without Redis the cache keeps LocalEntries responses in process.
type CacheConfig struct {
    Enabled      bool
    Methods      []string      // cacheable methods, upper case
    TTL          time.Duration // lifetime of one entry
    Key          CacheKey
    Prefix       string // namespace of every key, including the generation counter
    MaxBodyBytes int    // larger responses are served but not stored; 0 means no limit
    LocalEntries int    // bound of the in-process store
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envList("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 15*time.Second),
        Key:          CacheKey(strings.ToLower(envStr("CACHE_KEY_STRATEGY", string(KeyRouteQuery)))),
        Prefix:       envStr("CACHE_PREFIX", "bookable:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
        LocalEntries: envInt("CACHE_LOCAL_MAX_ENTRIES", 1024),
    }
    return cfg.normalized()
}

// Caches reports whether responses to method are stored.
func (c CacheConfig) Caches(method string) bool {
    for _, m := range c.Methods {
        if strings.EqualFold(m, method) {
            return true
        }
    }
    return false
}

func (c CacheConfig) normalized() CacheConfig {
    switch c.Key {
    case KeyRoute, KeyRouteQuery, KeyMethodRouteQuery:
    default:
        c.Key = KeyRouteQuery
    }
    if c.TTL <= 0 {
        c.TTL = 15 * time.Second
    }
    if c.MaxBodyBytes < 0 {
        c.MaxBodyBytes = 0
    }
    if c.LocalEntries < 1 {
        c.LocalEntries = 1024
    }
    return c
}
