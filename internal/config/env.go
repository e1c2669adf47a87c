package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// Optional variables fall back to their default when unset or unparsable.
// Required ones go through must and mustInt in config.go.

func envStr(k, def string) string {
    if v := strings.TrimSpace(os.Getenv(k)); v != "" {
        return v
    }
    return def
}

func envBool(k string, def bool) bool {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

func envInt(k string, def int) int {
    if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k))); err == nil {
        return n
    }
    return def
}

func envDur(k string, def time.Duration) time.Duration {
    if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k))); err == nil {
        return d
    }
    return def
}

// envList splits a comma separated variable into upper-cased, de-duplicated
// entries.
func envList(k, def string) []string {
    raw := envStr(k, def)
    var out []string
    seen := map[string]bool{}
    for _, p := range strings.Split(raw, ",") {
        p = strings.ToUpper(strings.TrimSpace(p))
        if p == "" || seen[p] {
            continue
        }
        seen[p] = true
        out = append(out, p)
    }
    return out
}
