package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mbd888/botdesk/internal/logging"
	"github.com/mbd888/botdesk/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMiddleware_SetsUserID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/v1/session", nil)
	c.Request.Header.Set(HeaderUserID, " alice ")

	Middleware()(c)

	assert.Equal(t, "alice", GetUserID(c))
	assert.Equal(t, "alice", logging.UserID(c.Request.Context()))
}

func TestMiddleware_NoHeader_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/v1/session", nil)

	Middleware()(c)

	assert.Empty(t, GetUserID(c))
	assert.False(t, c.IsAborted())
}

func TestRequireUser_Missing(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/v1/session", nil)

	RequireUser()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireUser_Present(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest("GET", "/v1/session", nil)
	c.Set(ContextKeyUserID, "alice")

	RequireUser()(c)

	assert.False(t, c.IsAborted())
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		header   string
		wantCode int
		aborted  bool
	}{
		{"disabled", "", "anything", http.StatusUnauthorized, true},
		{"missing header", "supersecret123", "", http.StatusUnauthorized, true},
		{"wrong secret", "supersecret123", "wrongsecret", http.StatusForbidden, true},
		{"correct secret", "supersecret123", "supersecret123", http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest("PUT", "/v1/admin/sessions/alice/plan", nil)
			if tt.header != "" {
				c.Request.Header.Set(HeaderAdminSecret, tt.header)
			}

			RequireAdmin(tt.secret)(c)

			assert.Equal(t, tt.aborted, c.IsAborted())
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestHandler_Me(t *testing.T) {
	dir := NewMemoryDirectory(plan.Free)
	require.NoError(t, dir.SetPlan(t.Context(), "alice", plan.Premium))

	r := gin.New()
	g := r.Group("/v1", Middleware(), RequireUser())
	NewHandler(dir).RegisterRoutes(g)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/me", nil)
	req.Header.Set(HeaderUserID, "alice")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["userId"])
	assert.Equal(t, "premium", body["plan"])
	ceilings := body["ceilings"].(map[string]any)
	assert.Equal(t, float64(5), ceilings["maxBots"])
	assert.Nil(t, ceilings["maxMonthlyMessages"])
}
