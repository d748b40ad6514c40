package http

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shortlink/internal/ratelimit"
)

type ctxKey int

const userIDKey ctxKey = iota

func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// sessionToken returns the bearer token of the request, falling back to the
// session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if c, err := r.Cookie(sessionCookieName); err == nil {
		return c.Value
	}

	return ""
}

// authenticate attaches the id of the session's user to the request context.
// Requests without a valid token pass through anonymously.
func authenticate(users userUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := users.Authenticate(token)
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "auth_err", slog.AnyValue(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireUser rejects requests that authenticate didn't attach a user to.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := userIDFromContext(r.Context()); !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, unauthorizedResponse)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type rateLimiter interface {
	Admit(ctx context.Context, key string, now time.Time) (ratelimit.Decision, error)
}

// clientKey identifies the client by the address middleware.RealIP resolved.
func clientKey(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

// rateLimit admits requests through limiter. The limiter failing lets the
// request through.
func rateLimit(limiter rateLimiter, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := limiter.Admit(r.Context(), clientKey(r), now())
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "rate_limit_err", slog.AnyValue(err))
				next.ServeHTTP(w, r)
				return
			}

			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))

				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, newErrorResponse(
					fmt.Sprintf("rate limit exceeded, try again in %d seconds", d.RetryAfter),
				))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetUnix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}
