package metrics

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusBucket(tt.code), "code %d", tt.code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "botdesk_active_websocket_clients")
	assert.Contains(t, w.Body.String(), "botdesk_goroutines")

	RateLimitedTotal.Inc()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), "botdesk_rate_limited_total")
}

func TestMiddleware_RecordsMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/v1/session", "2xx")
	var before dto.Metric
	require.NoError(t, counter.Write(&before))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/v1/session", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var after dto.Metric
	require.NoError(t, counter.Write(&after))
	assert.Equal(t, before.GetCounter().GetValue()+1, after.GetCounter().GetValue())
}

func TestRecordDBStats(t *testing.T) {
	RecordDBStats(sql.DBStats{OpenConnections: 7, Idle: 3, InUse: 4, WaitCount: 2, WaitDuration: 1500 * time.Millisecond})

	var m dto.Metric
	require.NoError(t, DBOpenConnections.Write(&m))
	assert.Equal(t, float64(7), m.GetGauge().GetValue())
	require.NoError(t, DBWaitDuration.Write(&m))
	assert.Equal(t, 1.5, m.GetGauge().GetValue())
}
