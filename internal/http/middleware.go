package http

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelhttp "go.opentelemetry.io/otel/propagation"

	"github.com/robertarktes/rail-seat-booking/internal/idempotency"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	minIdempotencyKeySize = 16
	ipRequestsPerMinute   = 100
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	peerKey
)

func loggerFrom(ctx context.Context, fallback observability.Logger) observability.Logger {
	if l, ok := ctx.Value(loggerKey).(observability.Logger); ok {
		return l
	}
	return fallback
}

// PeerAddrMiddleware remembers the connection's address before RealIP
// rewrites RemoteAddr from client supplied headers.
func PeerAddrMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerKey, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func peerHost(r *http.Request) string {
	addr, ok := r.Context().Value(peerKey).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// LoggerMiddleware attaches a request-scoped logger and records request
// metrics once the handler returns.
func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey, entry)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
			observability.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			entry.WithField("method", r.Method).
				WithField("route", route).
				WithField("status", status).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				Debug("request served")
		})
	}
}

// IdempotencyMiddleware requires an Idempotency-Key on POST requests and
// replays the stored response when the key was already used on the same route.
func IdempotencyMiddleware(idemp IdempotencyStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				http.Error(w, "missing Idempotency-Key", http.StatusBadRequest)
				return
			}
			if len(key) < minIdempotencyKeySize {
				http.Error(w, "invalid Idempotency-Key", http.StatusBadRequest)
				return
			}

			ctx := r.Context()
			scope := r.Method + " " + r.URL.Path
			existing, err := idemp.Get(ctx, scope, key)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if existing != nil {
				replay(w, existing)
				return
			}

			ok, err := idemp.Begin(ctx, scope, key)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "request with this Idempotency-Key is in progress", http.StatusConflict)
				return
			}

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log := loggerFrom(ctx, nil)
			if status >= http.StatusInternalServerError {
				if err := idemp.Abort(ctx, scope, key); err != nil && log != nil {
					log.WithError(err).Warn("failed to release idempotency key")
				}
				return
			}
			err = idemp.Complete(ctx, scope, key, idempotency.Response{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Result:      body.Bytes(),
			})
			if err != nil && log != nil {
				log.WithError(err).Warn("failed to store idempotent response")
			}
		})
	}
}

func replay(w http.ResponseWriter, resp *idempotency.Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(resp.Status)
	w.Write(resp.Result)
}

// RateLimitMiddleware limits requests per connecting peer. Forwarding headers
// are ignored so a client cannot pick its own bucket. A limiter outage lets
// traffic through.
func RateLimitMiddleware(rl Limiter, logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := rl.Allow(r.Context(), "ip:"+peerHost(r), ipRequestsPerMinute, time.Minute)
			if err != nil {
				logger.WithError(err).Warn("rate limiter unavailable")
				allowed = true
			}
			if !allowed {
				observability.RateLimitExceeded.Inc()
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
			attribute.String("http.request_id", middleware.GetReqID(r.Context())),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		}
	})
}
