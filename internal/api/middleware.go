package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"executor/internal/models"
	"executor/internal/rest"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware generates or propagates request IDs for tracing
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request. Query strings are not logged.
func LoggerMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		}

		event.
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}

// AuthMiddleware validates the API key header in constant time
func AuthMiddleware(header, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader(header)
		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				"UNAUTHORIZED",
				"Missing API key",
				c.GetString(requestIDKey),
			))
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewErrorResponse(
				"UNAUTHORIZED",
				"Invalid API key",
				c.GetString(requestIDKey),
			))
			return
		}

		c.Next()
	}
}

// clientLimiters holds one token bucket per client IP. Clients idle for
// longer than idleAfter are dropped; their buckets would be full again anyway.
type clientLimiters struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	rate        float64
	burst       int
	idleAfter   time.Duration
	lastCleanup time.Time
}

type clientLimiter struct {
	limiter  *rest.RateLimiter
	lastSeen time.Time
}

func newClientLimiters(requestsPerSecond float64, burst int) *clientLimiters {
	idleAfter := time.Minute
	if requestsPerSecond > 0 {
		refill := time.Duration(float64(burst) / requestsPerSecond * float64(time.Second))
		if refill > idleAfter {
			idleAfter = refill
		}
	}
	return &clientLimiters{
		clients:     make(map[string]*clientLimiter),
		rate:        requestsPerSecond,
		burst:       burst,
		idleAfter:   idleAfter,
		lastCleanup: time.Now(),
	}
}

func (cl *clientLimiters) get(clientIP string, now time.Time) *rest.RateLimiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if now.Sub(cl.lastCleanup) >= cl.idleAfter {
		cl.cleanup(now)
	}

	client, ok := cl.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rest.NewRateLimiter(cl.rate, cl.burst)}
		cl.clients[clientIP] = client
	}
	client.lastSeen = now
	return client.limiter
}

// cleanup must be called with mu held
func (cl *clientLimiters) cleanup(now time.Time) {
	for ip, client := range cl.clients {
		if now.Sub(client.lastSeen) >= cl.idleAfter {
			delete(cl.clients, ip)
		}
	}
	cl.lastCleanup = now
}

func (cl *clientLimiters) len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.clients)
}

// RateLimitMiddleware keeps one token bucket per client IP
func RateLimitMiddleware(requestsPerSecond float64, burst int) gin.HandlerFunc {
	return rateLimit(newClientLimiters(requestsPerSecond, burst))
}

func rateLimit(clients *clientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := clients.get(getClientIP(c), time.Now())

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%g", clients.rate))
		if !limiter.TryAcquire() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(
				"RATE_LIMITED",
				"Too many requests",
				c.GetString(requestIDKey),
			))
			return
		}

		c.Next()
	}
}

// ErrorMiddleware handles panic recovery and error responses
func ErrorMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error().
					Str("request_id", c.GetString(requestIDKey)).
					Str("path", c.Request.URL.Path).
					Interface("panic", err).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, models.NewErrorResponse(
					"INTERNAL_ERROR",
					"An internal server error occurred",
					c.GetString(requestIDKey),
				))
			}
		}()
		c.Next()
	}
}

// BodyLimitMiddleware caps the request body size
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// ValidationMiddleware requires a JSON content type on requests with a body
func ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut || c.Request.Method == http.MethodPatch {
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.NewErrorResponse(
					"INVALID_CONTENT_TYPE",
					"Content-Type must be application/json",
					c.GetString(requestIDKey),
				))
				return
			}
		}

		c.Next()
	}
}

func getClientIP(c *gin.Context) string {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
