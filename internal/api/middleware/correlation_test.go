package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDGeneratesRequestIDWhenMissing(t *testing.T) {
	var captured string
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotEmpty(t, captured)
	require.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestCorrelationIDPreservesIncomingHeader(t *testing.T) {
	var captured string
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, "fixed-id", captured)
	require.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestGetRequestIDReturnsEmptyWhenUnset(t *testing.T) {
	require.Equal(t, "", GetRequestID(httptest.NewRequest("GET", "/", nil).Context()))
}
