package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airaware/airaware/internal/api/middleware"
)

// adminLogger tags admin audit lines with the token subject and request id.
func adminLogger(logger zerolog.Logger, r *http.Request) zerolog.Logger {
	return logger.With().
		Str("subject", middleware.GetSubject(r.Context())).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("route", r.URL.Path).
		Logger()
}
