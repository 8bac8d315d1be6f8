package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// RequestLogger attaches the global logger to each request context and
// writes one access line per request once the handler returns.
func RequestLogger(next http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = hlog.FromRequest(r).Error()
		case status >= http.StatusBadRequest:
			event = hlog.FromRequest(r).Warn()
		default:
			event = hlog.FromRequest(r).Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Int("status", status).
			Int64("request_bytes", r.ContentLength).
			Int("response_bytes", size).
			Dur("duration", duration).
			Msg("Request processed")
	})

	return hlog.NewHandler(log.Logger)(
		hlog.RemoteAddrHandler("ip")(
			access(next),
		),
	)
}
