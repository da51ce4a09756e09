package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err, "second registration on the same registry must fail")
}

func TestBusCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.Published("NEW_MESSAGE")
	m.Published("NEW_MESSAGE")
	m.Dropped("NEW_MESSAGE")
	m.FeedAdded("NEW_REACTION")
	m.FeedAdded("NEW_REACTION")
	m.FeedRemoved("NEW_REACTION")
	m.Filtered("NEW_MESSAGE", true)
	m.Filtered("NEW_MESSAGE", false)
	m.Filtered("NEW_MESSAGE", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.busPublished.WithLabelValues("NEW_MESSAGE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busDropped.WithLabelValues("NEW_MESSAGE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busActiveFeeds.WithLabelValues("NEW_REACTION")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busFiltered.WithLabelValues("NEW_MESSAGE", "delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.busFiltered.WithLabelValues("NEW_MESSAGE", "suppressed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Published("x")
		m.Dropped("x")
		m.FeedAdded("x")
		m.FeedRemoved("x")
		m.Filtered("x", true)
		m.IncWSActive()
		m.DecWSActive()
		m.IncRelayPublishError()
	})
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	r := gin.New()
	r.Use(m.HTTPMiddleware())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
