// Package apierr writes the query surface's client-error responses.
// Unlike a typical JSON API, the upstream protocol this surface mirrors
// wants a bare status code on a rejected request, not a problem-details
// body (spec §6.1, §7 item 6): "all respond 400 with empty body".
package apierr

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Reject writes status with an empty body, logging the rejection
// reason at Warn level the way a structured problem-details writer
// would, minus the body it would otherwise serialize.
func Reject(w http.ResponseWriter, r *http.Request, status int, reason string) {
	logger := zerolog.Ctx(r.Context())
	logger.Warn().
		Int("status", status).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("reason", reason).
		Msg("request rejected")

	w.WriteHeader(status)
}

// ServerError writes 500 with an empty body, logging at Error level.
// Streaming handlers that have already sent headers can't call this;
// they log directly and let the connection close (spec §7 item 7).
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())
	logger.Error().
		Err(err).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg("internal error")

	w.WriteHeader(http.StatusInternalServerError)
}
