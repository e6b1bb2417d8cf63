package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"agriconnect/internal/config"
	"agriconnect/internal/handler"
	"agriconnect/internal/metrics"
	"agriconnect/internal/middleware"
	"agriconnect/internal/repository"
	"agriconnect/internal/service"
	"agriconnect/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the long-lived collaborators the router is built from
type Deps struct {
	Config  *config.AppConfig
	Log     zerolog.Logger
	Users   repository.UserRepository
	JWT     *utils.JWTUtil
	Metrics *metrics.Metrics
}

// NewRouter wires services, handlers and middleware into a gin engine
func NewRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(deps.Log),
		middleware.Metrics(deps.Metrics),
		middleware.Recovery(deps.Log),
		middleware.CORS(cfg.Server.CORSOrigins),
	)

	authService := service.NewAuthService(deps.Users, deps.JWT, cfg.Password.BcryptCost, deps.Log)
	userService := service.NewUserService(deps.Users, deps.Log)

	authHandler := handler.NewAuthHandler(authService, userService, deps.Metrics, deps.Log)
	adminHandler := handler.NewAdminHandler(userService, deps.Log)
	healthHandler := handler.NewHealthHandler(deps.Users, cfg.Store.Driver, deps.Log)

	jwtAuthMW := middleware.JWTAuthMiddleware(deps.JWT)
	adminRoleMW := middleware.AdminMiddleware()
	rateLimitMW := middleware.NewRateLimiter(cfg.Server.RateLimitRPM).Handler()

	apiGroup := engine.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup, rateLimitMW, jwtAuthMW, adminRoleMW)
	adminHandler.RegisterAdminRoutes(apiGroup, jwtAuthMW, adminRoleMW)

	engine.GET("/health", healthHandler.Health)
	if deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	return engine
}

type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(cfg config.ServerConfig, log zerolog.Logger, h http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      h,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
