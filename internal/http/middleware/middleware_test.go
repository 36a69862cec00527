package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/straye-as/dossier-api/internal/auth"
	"github.com/straye-as/dossier-api/internal/config"
	"github.com/straye-as/dossier-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestLogging_AssignsRequestID(t *testing.T) {
	var seen string
	h := middleware.Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dossiers", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))
}

func TestLogging_KeepsIncomingRequestID(t *testing.T) {
	h := middleware.Logging(zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestSecurityHeaders(t *testing.T) {
	h := middleware.SecurityHeaders(&config.SecurityConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            3600,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
	})(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "max-age=3600; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{
		AllowedOrigins: []string{"https://portal.example.nl"},
		AllowedMethods: []string{"GET"},
	}, "production", zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.example.nl")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://portal.example.nl", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(middleware.RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ConfiguredRequestIDHeaderIsNotRepeated(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{
		AllowedOrigins: []string{"https://portal.example.nl"},
		AllowedMethods: []string{"GET"},
		ExposedHeaders: []string{"x-request-id", "Content-Disposition"},
	}, "production", zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.example.nl")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	exposed := rec.Header().Get("Access-Control-Expose-Headers")
	assert.Equal(t, 1, strings.Count(strings.ToLower(exposed), strings.ToLower(middleware.RequestIDHeader)), exposed)
	assert.Contains(t, exposed, "Content-Disposition")
}

func TestCORS_ProductionWithoutOriginsDeniesAll(t *testing.T) {
	h := middleware.CORS(&config.CORSConfig{AllowedMethods: []string{"GET"}}, "production", zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://portal.example.nl")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter_LimitsByIP(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     2,
		RequestsPerMinuteAuth: 10,
		WhitelistPaths:        []string{"/health"},
	}, zap.NewNop())
	h := rl.LimitByIP(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dossiers", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "whitelisted path")
	}
}

func TestRateLimiter_LimitsByUser(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     100,
		RequestsPerMinuteAuth: 1,
	}, zap.NewNop())
	h := rl.LimitByUser(okHandler)

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dossiers", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{UserID: userID}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("anna"))
	assert.Equal(t, http.StatusTooManyRequests, send("anna"))
	assert.Equal(t, http.StatusOK, send("bram"), "separate budget per user")
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1, RequestsPerMinuteAuth: 1}, zap.NewNop())
	h := rl.LimitByIP(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
