package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/codecraft-dev/codecraft/internal/app"
	iauth "github.com/codecraft-dev/codecraft/internal/auth"
	"github.com/codecraft-dev/codecraft/internal/handlers"
	"github.com/codecraft-dev/codecraft/internal/middleware"
	"github.com/codecraft-dev/codecraft/internal/realtime"
	"github.com/codecraft-dev/codecraft/internal/services"
	apperrors "github.com/codecraft-dev/codecraft/pkg/errors"
	"github.com/codecraft-dev/codecraft/pkg/response"
)

// Deps carries the wired services the router mounts. The server builds these
// once so background jobs share the same instances as the HTTP layer.
type Deps struct {
	DB       *gorm.DB
	Config   *app.Config
	Verifier iauth.Verifier
	Hub      *realtime.Hub

	Collab     *services.CollabService
	Presence   *services.PresenceService
	CodeSync   *services.CodeSyncService
	Chat       *services.ChatService
	Saved      *services.SavedSessionService
	Files      *services.FileService
	Snippets   *services.SnippetService
	Executions *services.ExecutionService
	Billing    *services.BillingService
	Users      *services.UserService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("token verifier must be provided")
	}

	cfg := deps.Config

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimit(middleware.NewMemoryRateStore(), cfg.RateLimit.MaxRequests, cfg.RateLimit.Window))
	}

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(deps.DB))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	// The billing webhook authenticates with an HMAC signature, not a token.
	registerBillingRoutes(r, handlers.NewBillingHandler(deps.Billing))

	requireAuth := middleware.Auth(deps.Verifier)
	optionalAuth := middleware.OptionalAuth(deps.Verifier)

	api := r.Group("/api")

	sessionHandler := handlers.NewSessionHandler(deps.Collab, deps.Presence)
	registerSessionRoutes(api, sessionHandler, requireAuth, optionalAuth)
	registerSessionCodeRoutes(api, handlers.NewSessionCodeHandler(deps.CodeSync), requireAuth)
	registerSessionChatRoutes(api, handlers.NewSessionChatHandler(deps.Chat), requireAuth)
	registerSessionFileRoutes(api, handlers.NewSessionFileHandler(deps.Files), requireAuth)
	registerSavedSessionRoutes(api, handlers.NewSavedSessionHandler(deps.Saved), requireAuth)
	registerSnippetRoutes(api, handlers.NewSnippetHandler(deps.Snippets), requireAuth, optionalAuth)
	registerExecutionRoutes(api, handlers.NewExecutionHandler(deps.Executions), requireAuth)
	registerUserRoutes(api, handlers.NewUserHandler(deps.Users), requireAuth)
	registerRealtimeRoutes(api, handlers.NewRealtimeHandler(deps.Hub, deps.Collab), requireAuth)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.ErrNotFound)
	})

	return r, nil
}
