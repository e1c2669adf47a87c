package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// RedisConfig locates the Redis server shared by the rate limiter, the
// catalog cache and the optional reference counters.
type RedisConfig struct {
    Addr        string
    Password    string
    DB          int
    TLS         bool
    Insecure    bool          // skip certificate verification
    DialTimeout time.Duration // also bounds the startup ping
}

// LoadRedisConfig reads REDIS_* variables.  REDIS_HOST and REDIS_PORT win
// over REDIS_ADDR when both are set.
func LoadRedisConfig() RedisConfig {
    cfg := RedisConfig{
        Addr:        envStr("REDIS_ADDR", "localhost:6379"),
        Password:    envStr("REDIS_PASSWORD", ""),
        DB:          envInt("REDIS_DB", 0),
        TLS:         envBool("REDIS_TLS", false),
        Insecure:    envBool("REDIS_TLS_INSECURE", false),
        DialTimeout: envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
    }
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        cfg.Addr = net.JoinHostPort(host, port)
    }
    if cfg.DialTimeout <= 0 {
        cfg.DialTimeout = 2 * time.Second
    }
    return cfg
}

// Options converts the configuration into go-redis client options.
func (c RedisConfig) Options() *redis.Options {
    opts := &redis.Options{
        Addr:        c.Addr,
        Password:    c.Password,
        DB:          c.DB,
        DialTimeout: c.DialTimeout,
    }
    if c.TLS {
        host, _, err := net.SplitHostPort(c.Addr)
        if err != nil {
            host = c.Addr
        }
        opts.TLSConfig = &tls.Config{ServerName: host, InsecureSkipVerify: c.Insecure, MinVersion: tls.VersionTLS12}
    }
    return opts
}

// ConnectRedis dials and pings the server.  It returns nil when Redis is
// unreachable; callers then fall back to in-process state.
func ConnectRedis(ctx context.Context, cfg RedisConfig) *redis.Client {
    client := redis.NewClient(cfg.Options())
    pctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
    defer cancel()
    if err := client.Ping(pctx).Err(); err != nil {
        logrus.WithError(err).WithField("addr", cfg.Addr).Warn("redis unavailable, continuing without it")
        _ = client.Close()
        return nil
    }
    return client
}
