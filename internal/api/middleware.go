package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/amarpathagar/pathagar-server/internal/logger"
)

// EnvelopeVersion is the version of the response envelope. Clients check it
// before decoding.
const EnvelopeVersion = 1

const requestIDHeader = "X-Request-ID"

// APIEnvelope wraps every successful response and simple errors.
type APIEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope carries errors that have a machine-readable code or details.
type APIErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies in the
// envelope. Error bodies become {success:false, error}; errors with a code
// or details also carry those fields.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)
	if code < http.StatusBadRequest {
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}

	switch e := v.(type) {
	case *APIError:
		if e.Code == "" && e.Details == nil {
			return APIEnvelope{Version: EnvelopeVersion, Error: e.Message}, nil
		}
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   e.Message,
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: e.Error()}, nil
	default:
		return APIEnvelope{Version: EnvelopeVersion, Data: v}, nil
	}
}

// requestID tags each request with an ID, reusing the caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logger.ContextWithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.FromContext(r.Context(), base).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
