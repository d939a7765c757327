package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/holmwood/idcheck/internal/idcheck/service"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/pkg/httpx"
	"github.com/holmwood/idcheck/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store                 store.Store
	ExchangeService       *service.ExchangeService
	ClientResponseService *service.ClientResponseService
	Clients               *service.ClientAuthenticator
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	// POST /token - strict rate limit by IP (credentialed exchange attempts)
	tokenHandler := &TokenHandler{ExchangeService: r.ExchangeService}
	r.Mux.Handle("POST /v1/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /introspect - moderate rate limit (resource server traffic)
	introspectHandler := &IntrospectHandler{
		ExchangeService: r.ExchangeService,
		Clients:         r.Clients,
	}
	r.Mux.Handle("POST /v1/oauth2/introspect",
		httpx.Chain(introspectHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSessions() {
	// POST /client-response - moderate rate limit (front-end traffic)
	clientResponseHandler := &ClientResponseHandler{
		ClientResponseService: r.ClientResponseService,
	}
	r.Mux.Handle("POST /v1/sessions/client-response",
		httpx.Chain(clientResponseHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may
	// poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
