package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceOf(t *testing.T) {
	tests := map[string]string{
		"/api/v1/units/:id/transition": "units",
		"/api/v1/allocations/expire":   "allocations",
		"/api/v12/rollup":              "rollup",
		"/health":                      "health",
		"/":                            "",
	}
	for route, want := range tests {
		assert.Equal(t, want, resourceOf(route), route)
	}
}

func TestProfiling_PassesThrough(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		w := serve(newRouter(Profiling(enabled)), httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
