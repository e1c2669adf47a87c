// Package logging configures logrus and carries a request scoped entry
// through context.Context.
package logging

import (
    "context"
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

type ctxKey int

const (
    loggerKey ctxKey = iota
    correlationIDKey
)

// CorrelationHeader is the HTTP header carrying the correlation id.
const CorrelationHeader = "Correlation-ID"

// Init configures the standard logrus logger.  Unknown levels fall back to
// info; format "text" selects the text formatter, anything else JSON.
func Init(level, format string) {
    lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
    if err != nil {
        lvl = logrus.InfoLevel
    }
    logrus.SetLevel(lvl)
    logrus.SetOutput(os.Stdout)
    if strings.EqualFold(format, "text") {
        logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
        return
    }
    logrus.SetFormatter(&logrus.JSONFormatter{})
}

// ToContext stores entry in ctx.
func ToContext(ctx context.Context, entry *logrus.Entry) context.Context {
    return context.WithValue(ctx, loggerKey, entry)
}

// FromContext returns the entry stored in ctx or one derived from the
// standard logger.
func FromContext(ctx context.Context) *logrus.Entry {
    if ctx != nil {
        if entry, ok := ctx.Value(loggerKey).(*logrus.Entry); ok {
            return entry
        }
    }
    return logrus.NewEntry(logrus.StandardLogger())
}

// ContextWithCorrelationID stores id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
    return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation id of ctx, empty if unset.
func CorrelationIDFromContext(ctx context.Context) string {
    if ctx == nil {
        return ""
    }
    id, _ := ctx.Value(correlationIDKey).(string)
    return id
}
