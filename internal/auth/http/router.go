package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/metrics"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/pkg/authsdk"
	"github.com/aussiebroadwan/shopauth/pkg/httpx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/aussiebroadwan/shopauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	AuthService   *service.AuthService
	Authenticator *service.Authenticator
	Readiness     Readiness

	// Metrics and Gatherer are optional; without them /metrics is not served.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

func NewRouter(buildVersion string, logger *slog.Logger) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}
}

func (r *Router) ApplyRoutes() {
	r.middlewares = []httpx.Middleware{slogx.HTTPMiddleware(r.logger)}
	if r.Metrics != nil {
		r.middlewares = append(r.middlewares, r.Metrics.Middleware)
	}

	r.registerAuth()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		(&authsdk.APIError{StatusCode: http.StatusNotFound, Code: authsdk.ErrorCodeNotFound, Message: "Route not found"}).WriteError(w)
	})
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Shop Authentication API
//	@version		0.1.0
//	@description	JWT authentication for the shop backend. Access tokens are short lived; refresh tokens are single use and rotate on every refresh.
//	@description
//	@description				Access and refresh tokens are HS256 signed with separate secrets.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/shopauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}
	authn := requireAuth(r.Authenticator)

	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST "+authsdk.APIPrefix+"/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /login - strict rate limit by IP + email to slow down credential stuffing
	r.Mux.Handle("POST "+authsdk.APIPrefix+"/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST "+authsdk.APIPrefix+"/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /logout - unauthenticated, the refresh token in the body is the credential
	r.Mux.Handle("POST "+authsdk.APIPrefix+"/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST "+authsdk.APIPrefix+"/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			authn,
			requireGuard(service.RequireCustomerOrAdmin()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET "+authsdk.APIPrefix+"/profile",
		httpx.Chain(http.HandlerFunc(h.HandleProfile),
			authn,
			requireGuard(service.RequireCustomerOrAdmin()),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AuthService: r.AuthService}

	r.Mux.Handle("PATCH "+authsdk.APIPrefix+"/admin/users/{id}/status",
		httpx.Chain(http.HandlerFunc(h.HandleSetUserStatus),
			requireAuth(r.Authenticator),
			requireGuard(service.RequireAdmin()),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Probes and scrapes - public rate limits (monitoring systems poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Readiness),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(metrics.Handler(r.Gatherer),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}
