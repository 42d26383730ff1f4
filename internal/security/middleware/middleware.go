package middleware

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elebur/VoteAPI/internal/observability/metrics"
	"github.com/elebur/VoteAPI/internal/security"
	"github.com/elebur/VoteAPI/internal/security/audit"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/security/ratelimit"
)

// Response bodies of the access boundary.
const (
	MsgNotAuthenticated = "Authentication credentials were not provided."
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgTokenNotValid    = "Token is invalid or expired"
	MsgThrottled        = "Request was throttled."
	CodeTokenNotValid   = "token_not_valid"
)

type PrincipalContextKey struct{}

// Authenticator resolves an access token to its caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// Authenticate attaches the caller of a request carrying a Bearer token. Requests
// without one continue anonymously; an unusable token is rejected with 401.
func Authenticate(authn Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, _, _ := strings.Cut(strings.TrimSpace(header), " ")
			if header == "" || !strings.EqualFold(scheme, "Bearer") {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ExtractToken(header)
			if err == nil {
				var p *auth.Principal
				p, err = authn.Authenticate(r.Context(), token)
				if err == nil {
					ctx := context.WithValue(r.Context(), PrincipalContextKey{}, p)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			log.Debug("token rejected",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			JSONResponse(w, http.StatusUnauthorized, map[string]string{
				"detail": MsgTokenNotValid,
				"code":   CodeTokenNotValid,
			})
		})
	}
}

// GetPrincipalFromContext returns the authenticated caller, or nil for anonymous requests.
func GetPrincipalFromContext(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(PrincipalContextKey{}).(*auth.Principal); ok {
		return p
	}
	return nil
}

// RoleFromContext derives the caller's role.
func RoleFromContext(ctx context.Context) security.Role {
	p := GetPrincipalFromContext(ctx)
	if p == nil {
		return security.RoleAnonymous
	}
	return security.RoleFor(true, p.IsAdmin)
}

// RequirePermission guards a handler. Anonymous callers get 401, authenticated
// callers lacking the permission 403.
func RequirePermission(authz *security.AuthorizationService, perm security.Permission, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if err := authz.ValidatePermission(role, perm); err != nil {
				if role == security.RoleAnonymous {
					w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
					JSONResponse(w, http.StatusUnauthorized, map[string]string{"detail": MsgNotAuthenticated})
					return
				}
				auditLog.LogDenied(r.Context(), GetPrincipalFromContext(r.Context()).UserID, string(perm), err.Error())
				JSONResponse(w, http.StatusForbidden, map[string]string{"detail": MsgPermissionDenied})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var unlimitedPaths = []string{"/healthz", "/readyz", "/metrics"}

// RateLimit throttles callers by user id, or by client IP when anonymous.
func RateLimit(limiter ratelimit.Allower, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(unlimitedPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + GetClientIP(r)
			if p := GetPrincipalFromContext(r.Context()); p != nil {
				key = "user:" + strconv.FormatInt(p.UserID, 10)
			}
			if !limiter.Allow(r.Context(), key) {
				log.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
				metrics.ObserveRateLimited("global")
				JSONResponse(w, http.StatusTooManyRequests, map[string]string{"detail": MsgThrottled})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StrictRateLimit applies a tight per-IP limit, used in front of the token endpoint.
func StrictRateLimit(limiter *ratelimit.Limiter, maxReqs int, window time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			if !limiter.AllowStrict(ip, maxReqs, window) {
				log.Warn("token rate limit exceeded", slog.String("ip", ip))
				metrics.ObserveRateLimited("token")
				JSONResponse(w, http.StatusTooManyRequests, map[string]string{"detail": MsgThrottled})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records every state changing request once it has been answered.
func AuditMiddleware(auditLog *audit.Logger, action, resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			var userID int64
			if p := GetPrincipalFromContext(r.Context()); p != nil {
				userID = p.UserID
			}
			status := "succeeded"
			switch {
			case sw.status >= 500:
				status = "failed"
			case sw.status >= 400:
				status = "rejected"
			}
			auditLog.Log(r.Context(), audit.Entry{
				UserID:     userID,
				Action:     action,
				Resource:   resource,
				ResourceID: r.PathValue("id"),
				Status:     status,
				HTTPStatus: sw.status,
			})
		})
	}
}

// RequestID tags the request context and response with an id, reusing the
// caller's X-Request-ID when it looks sane.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(audit.WithRequestID(r.Context(), id)))
	})
}

// WithLogging logs each completed request.
func WithLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("remote", GetClientIP(r)),
				slog.String("request_id", audit.RequestID(r.Context())),
			)
		})
	}
}

// Recover turns a panic into a 500 response.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				log.Error("panic serving request",
					slog.String("path", r.URL.Path),
					slog.String("panic", fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
					slog.String("request_id", audit.RequestID(r.Context())),
				)
				JSONResponse(w, http.StatusInternalServerError, map[string]string{"detail": "A server error occurred."})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS allows the configured origins. An empty list allows none; "*" allows any.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
