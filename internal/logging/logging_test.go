package logging

import (
    "context"
    "testing"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
    entry := logrus.WithField("correlation_id", "abc")
    ctx := ToContext(context.Background(), entry)
    ctx = ContextWithCorrelationID(ctx, "abc")

    assert.Same(t, entry, FromContext(ctx))
    assert.Equal(t, "abc", CorrelationIDFromContext(ctx))
}

func TestFromContextFallsBack(t *testing.T) {
    entry := FromContext(context.Background())
    assert.NotNil(t, entry)
    assert.Empty(t, CorrelationIDFromContext(context.Background()))
}

func TestInitLevels(t *testing.T) {
    Init("debug", "text")
    assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

    Init("nonsense", "json")
    assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
    _, isJSON := logrus.StandardLogger().Formatter.(*logrus.JSONFormatter)
    assert.True(t, isJSON)
}
