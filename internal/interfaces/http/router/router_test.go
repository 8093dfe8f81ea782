package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nursery/backend/internal/infrastructure/auth"
	"github.com/nursery/backend/internal/infrastructure/config"
	"github.com/nursery/backend/internal/interfaces/http/handler"
	"github.com/nursery/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.BasePath())

	g := NewDomainGroup("test", "/test").
		GET("/a", func(c *gin.Context) { c.String(http.StatusOK, "a") }).
		POST("/b", func(c *gin.Context) { c.String(http.StatusCreated, "b") }).
		PUT("/c/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) }).
		PATCH("/d/:id", func(c *gin.Context) { c.String(http.StatusOK, "d") })
	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "/test", g.Prefix())

	r.Register(g).Setup()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{"GET", "/api/v2/test/a", http.StatusOK, "a"},
		{"POST", "/api/v2/test/b", http.StatusCreated, "b"},
		{"PUT", "/api/v2/test/c/42", http.StatusOK, "42"},
		{"PATCH", "/api/v2/test/d/1", http.StatusOK, "d"},
		{"GET", "/api/v1/test/a", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, w.Body.String())
		}
	}
}

// testHandlers wires handlers without services; only health is served
func testHandlers() Handlers {
	return Handlers{
		Zone:       handler.NewZoneHandler(nil),
		Unit:       handler.NewUnitHandler(nil, nil),
		Rollup:     handler.NewRollupHandler(nil),
		Allocation: handler.NewAllocationHandler(nil, nil),
		Health:     handler.NewHealthHandler("nursery", "test"),
	}
}

func TestNewEngine_Routes(t *testing.T) {
	engine, err := NewEngine(testHandlers(), Options{})
	require.NoError(t, err)

	got := map[string]bool{}
	for _, route := range engine.Routes() {
		got[route.Method+" "+route.Path] = true
	}
	want := []string{
		"GET /health",
		"GET /api/v1/health",
		"POST /api/v1/zones",
		"GET /api/v1/zones",
		"PUT /api/v1/zones/:id/plantings",
		"POST /api/v1/units",
		"GET /api/v1/units",
		"GET /api/v1/units/:id",
		"POST /api/v1/units/:id/transition",
		"PATCH /api/v1/units/:id/classification",
		"POST /api/v1/units/:id/relocate",
		"GET /api/v1/units/:id/timeline",
		"GET /api/v1/units/:id/verify",
		"GET /api/v1/rollup",
		"POST /api/v1/allocations",
		"POST /api/v1/allocations/units",
		"POST /api/v1/allocations/expire",
		"GET /api/v1/allocations",
		"GET /api/v1/allocations/:id",
		"POST /api/v1/allocations/:id/bind",
		"POST /api/v1/allocations/:id/release",
	}
	for _, route := range want {
		assert.True(t, got[route], "missing route %s", route)
	}
	assert.Len(t, got, len(want))
}

func TestNewEngine_Chain(t *testing.T) {
	engine, err := NewEngine(testHandlers(), Options{CORSOrigins: []string{"http://yard.example"}, MaxBodySize: 64})
	require.NoError(t, err)

	t.Run("health carries request id and security headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.Header.Set("Origin", "http://yard.example")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "http://yard.example", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown route uses the envelope", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/trees", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"NOT_FOUND"`)
	})

	t.Run("mutations without an actor are rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/allocations/expire", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestNewEngine_BearerAuth(t *testing.T) {
	jwt := auth.NewJWTService(config.AuthConfig{Enabled: true, JWTSecret: "0123456789abcdef0123456789abcdef"})
	engine, err := NewEngine(testHandlers(), Options{Verifier: jwt})
	require.NoError(t, err)

	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.Issue("crew-1", nil, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
