package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staybook/pkg/auth"
	"staybook/pkg/config"
	httputil "staybook/pkg/http"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routes func(*httprouter.Router)

func (f routes) RegisterRoutes(r *httprouter.Router) { f(r) }

func newTestApp(t *testing.T, rateLimit int) (*Application, *auth.Verifier) {
	t.Helper()

	verifier, err := auth.NewVerifier("test-secret")
	require.NoError(t, err)

	cfg := &config.Config{
		Port:              "8080",
		RateLimitRequests: rateLimit,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		Log:               logger.Discard(),
	}

	health := routes(func(r *httprouter.Router) {
		r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
			_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})
	api := routes(func(r *httprouter.Router) {
		r.POST("/api/v1/whoami", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			actor, ok := auth.ActorFrom(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = httputil.WriteCreated(w, actor.ID)
		})
	})

	a := NewApplication()
	a.SetApp(cfg, health, api, verifier)
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a, verifier
}

func TestApplication_HealthSkipsAuthAndContentType(t *testing.T) {
	a, _ := newTestApp(t, 10)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_Chain(t *testing.T) {
	a, verifier := newTestApp(t, 10)
	token, err := verifier.Sign("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name        string
		contentType string
		auth        string
		expected    int
	}{
		{name: "authenticated", contentType: "application/json", auth: "Bearer " + token, expected: http.StatusCreated},
		{name: "anonymous", contentType: "application/json", expected: http.StatusUnauthorized},
		{name: "bad token", contentType: "application/json", auth: "Bearer nope", expected: http.StatusUnauthorized},
		{name: "wrong content type", contentType: "text/plain", auth: "Bearer " + token, expected: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/whoami", strings.NewReader(`{}`))
			req.Header.Set("Content-Type", tt.contentType)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			a.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_RateLimited(t *testing.T) {
	a, verifier := newTestApp(t, 1)
	token, err := verifier.Sign("u1", "", time.Hour)
	require.NoError(t, err)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/whoami", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestApplication_UnknownRoute(t *testing.T) {
	a, _ := newTestApp(t, 10)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}
