package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elebur/VoteAPI/internal/observability/metrics"
	"github.com/elebur/VoteAPI/internal/security"
	"github.com/elebur/VoteAPI/internal/security/audit"
	"github.com/elebur/VoteAPI/internal/security/middleware"
	"github.com/elebur/VoteAPI/internal/security/ratelimit"
	"github.com/elebur/VoteAPI/internal/service"
)

// Dependencies is everything the router wires together.
type Dependencies struct {
	Auth        *service.AuthService
	Employees   *service.EmployeeService
	Restaurants *service.RestaurantService
	Menus       *service.MenuService
	Votes       *service.VoteService

	Authz *security.AuthorizationService
	Audit *audit.Logger

	// Limiter throttles every API request; TokenLimiter additionally guards
	// POST /token/. Either may be nil.
	Limiter          ratelimit.Allower
	TokenLimiter     *ratelimit.Limiter
	TokenMaxRequests int
	TokenWindow      time.Duration

	Health *HealthHandler
	// Results is nil unless the live_results flag is on.
	Results *ResultsStreamHandler

	AllowedOrigins []string
	Logger         *slog.Logger
}

type mw = func(http.Handler) http.Handler

// NewRouter builds the API handler tree.
func NewRouter(d Dependencies) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.Authz == nil {
		d.Authz = security.NewAuthorizationService(logger)
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogger(logger)
	}

	mux := http.NewServeMux()
	route := func(pattern string, h http.Handler, mws ...mw) {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		mux.Handle(pattern, metrics.Instrument(pattern, h))
	}
	perm := func(p security.Permission) mw {
		return middleware.RequirePermission(d.Authz, p, d.Audit)
	}
	audited := func(action, resource string) mw {
		return middleware.AuditMiddleware(d.Audit, action, resource)
	}

	employees := NewEmployeeHandler(d.Employees, logger)
	restaurants := NewRestaurantHandler(d.Restaurants, logger)
	menus := NewMenuHandler(d.Menus, logger)
	votes := NewVoteHandler(d.Votes, logger)
	tokens := NewAuthHandler(d.Auth, logger)

	route("POST /employee/{$}", http.HandlerFunc(employees.Create), perm(security.PermCreateEmployee), audited("create", "employee"))
	route("GET /employee/{id}/{$}", http.HandlerFunc(employees.Get), perm(security.PermReadEmployee))

	route("POST /restaurant/{$}", http.HandlerFunc(restaurants.Create), perm(security.PermCreateRestaurant), audited("create", "restaurant"))
	route("GET /restaurant/{id}/{$}", http.HandlerFunc(restaurants.Get), perm(security.PermReadRestaurant))

	route("POST /menu/{$}", http.HandlerFunc(menus.Create), perm(security.PermCreateMenu), audited("create", "menu"))
	route("GET /menu/{$}", http.HandlerFunc(menus.Today), perm(security.PermReadMenu))
	route("GET /menu/{key}/{$}", http.HandlerFunc(menus.Get), perm(security.PermReadMenu))
	route("POST /menu/{id}/vote/{$}", http.HandlerFunc(votes.Cast), perm(security.PermCastVote), audited("vote", "menu"))

	route("GET /vote/results/{$}", http.HandlerFunc(votes.Results), perm(security.PermReadResults))

	var tokenGuards []mw
	if d.TokenLimiter != nil {
		tokenGuards = append(tokenGuards, middleware.StrictRateLimit(d.TokenLimiter, d.TokenMaxRequests, d.TokenWindow, logger))
	}
	route("POST /token/{$}", http.HandlerFunc(tokens.Token), tokenGuards...)
	route("POST /token/refresh/{$}", http.HandlerFunc(tokens.Refresh))

	if d.Results != nil {
		route("GET /ws/vote/results", d.Results)
	}
	if d.Health != nil {
		route("GET /healthz", http.HandlerFunc(d.Health.Health))
		route("GET /readyz", http.HandlerFunc(d.Health.Ready))
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	// Outermost first.
	chain := []mw{
		middleware.Recover(logger),
		middleware.RequestID,
		middleware.WithLogging(logger),
		middleware.CORS(d.AllowedOrigins),
		middleware.ValidateJSONContentType(logger),
		middleware.Authenticate(d.Auth, logger),
	}
	if d.Limiter != nil {
		chain = append(chain, middleware.RateLimit(d.Limiter, logger))
	}

	var h http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
