package metrics

import (
    "net/http"
    "net/http/httptest"
    "testing"

    dto "github.com/prometheus/client_model/go"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, state string) float64 {
    t.Helper()
    var m dto.Metric
    require.NoError(t, BookingTransitions.WithLabelValues(state).Write(&m))
    return m.GetCounter().GetValue()
}

func TestTransitionsCounter(t *testing.T) {
    before := counterValue(t, "confirmed")
    BookingTransitions.WithLabelValues("confirmed").Inc()
    assert.Equal(t, before+1, counterValue(t, "confirmed"))
}

func TestHandlerExposesCollectors(t *testing.T) {
    BookingsCreated.Inc()

    rec := httptest.NewRecorder()
    Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

    require.Equal(t, http.StatusOK, rec.Code)
    assert.Contains(t, rec.Body.String(), "bookable_bookings_created_total")
    assert.Contains(t, rec.Body.String(), "go_goroutines")
}
