package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type observation struct {
	route, method string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{route, method, status})
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestLoggerRecordsRoutePatternAndStatus(t *testing.T) {
	buf := captureLogs(t)
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(Logger(obs))
	r.Get("/images/{boxId}", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/2024-01-01", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Len(t, obs.obs, 1)
	assert.Equal(t, observation{"/images/{boxId}", http.MethodGet, http.StatusTeapot}, obs.obs[0])

	out := buf.String()
	assert.Contains(t, out, `"message":"inside handler"`)
	assert.Contains(t, out, `"request_id"`)
	assert.Contains(t, out, `"status":418`)
}

func TestLoggerUnmatchedRoute(t *testing.T) {
	captureLogs(t)
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(Logger(obs))
	r.Get("/boxes", func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.Len(t, obs.obs, 1)
	assert.Equal(t, http.StatusNotFound, obs.obs[0].status)
}

func TestLoggerNilObserver(t *testing.T) {
	captureLogs(t)
	h := Logger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	assert.NotPanics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func protected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var subject string
	h := RequireAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = r.Context().Value(SubjectKey).(string)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &subject
}

func TestRequireAuth(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "kiosk-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "kiosk-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "kiosk-1"})
	wrongAlg := signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.MapClaims{"sub": "kiosk-1"})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", http.StatusUnauthorized, `{"success":false,"message":"authorization header required"}`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `{"success":false,"message":"invalid authorization header format"}`},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, `{"success":false,"message":"invalid or expired token"}`},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, `{"success":false,"message":"invalid or expired token"}`},
		{"wrong algorithm", "Bearer " + wrongAlg, http.StatusUnauthorized, `{"success":false,"message":"invalid or expired token"}`},
		{"valid", "Bearer " + valid, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, subject := protected(t)
			req := httptest.NewRequest(http.MethodPost, "/upload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
				assert.Empty(t, *subject)
			} else {
				assert.Equal(t, "kiosk-1", *subject)
			}
		})
	}
}
