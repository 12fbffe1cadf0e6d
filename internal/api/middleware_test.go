package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func okHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"request_id": c.GetString(requestIDKey)})
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", okHandler)

	t.Run("generates uuid", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		id := w.Header().Get("X-Request-ID")
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("propagates existing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "existing-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-id", w.Header().Get("X-Request-ID"))
	})

	t.Run("unique ids", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
			id := w.Header().Get("X-Request-ID")
			assert.False(t, seen[id])
			seen[id] = true
		}
	})
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggerMiddleware(zerolog.New(&buf)))
	router.GET("/test", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/test?signature=abc", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"path":"/test"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"request_id"`)
	assert.NotContains(t, out, "signature=abc")
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware("X-API-Key", "server-key"))
	router.GET("/test", okHandler)

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantBody   string
	}{
		{name: "valid key", key: "server-key", wantStatus: http.StatusOK},
		{name: "missing key", wantStatus: http.StatusUnauthorized, wantBody: "Missing API key"},
		{name: "wrong key", key: "other-key", wantStatus: http.StatusUnauthorized, wantBody: "Invalid API key"},
		{name: "prefix of key", key: "server", wantStatus: http.StatusUnauthorized, wantBody: "Invalid API key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(0.001, 2))
	router.GET("/test", okHandler)

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"))
}

func TestClientLimiters_EvictsIdleClients(t *testing.T) {
	clients := newClientLimiters(10, 5)
	require.Equal(t, time.Minute, clients.idleAfter)

	start := time.Now()
	clients.lastCleanup = start
	clients.get("10.0.0.1", start)
	clients.get("10.0.0.2", start.Add(30*time.Second))
	assert.Equal(t, 2, clients.len())

	clients.get("10.0.0.3", start.Add(70*time.Second))
	assert.Equal(t, 2, clients.len(), "client idle for over a minute is dropped")

	clients.get("10.0.0.3", start.Add(200*time.Second))
	assert.Equal(t, 1, clients.len())
}

func TestClientLimiters_KeepsActiveBucket(t *testing.T) {
	clients := newClientLimiters(0.001, 1)
	now := time.Now()

	limiter := clients.get("10.0.0.1", now)
	require.True(t, limiter.TryAcquire())

	again := clients.get("10.0.0.1", now.Add(time.Second))
	assert.Same(t, limiter, again)
	assert.False(t, again.TryAcquire())
}

func TestErrorMiddleware(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware(zerolog.New(&buf)))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "test panic")
}

func TestBodyLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimitMiddleware(16))
	router.POST("/test", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test",
		strings.NewReader(`{"symbol":"`+strings.Repeat("A", 64)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":"b"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidationMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ValidationMiddleware())
	router.POST("/test", okHandler)
	router.GET("/test", okHandler)

	t.Run("json accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("form rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`a=b`))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_CONTENT_TYPE")
	})

	t.Run("get without body passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
