package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func setupRateLimitRouter(ipHeader string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Burst of 1 with no refill within the test window.
	r.Use(RateLimiter(rate.Limit(0.001), 1, ipHeader))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimiter_KeysOnConfiguredHeader(t *testing.T) {
	router := setupRateLimitRouter("X-Real-IP")

	do := func(ip string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Real-IP", ip)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	// A different client IP in the header gets its own bucket.
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestRateLimiter_FallsBackToConnectionAddress(t *testing.T) {
	router := setupRateLimitRouter("X-Real-IP")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
