// Package httpapi is the daemon's control surface: start/stop/status
// over HTTP plus a websocket event stream for the operator dashboard.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/followthefloww9/gold-digger/config"
	"github.com/followthefloww9/gold-digger/internal/auth"
	"github.com/followthefloww9/gold-digger/internal/broker"
	"github.com/followthefloww9/gold-digger/internal/events"
	"github.com/followthefloww9/gold-digger/internal/persistence"
	"github.com/followthefloww9/gold-digger/internal/supervisor"
)

// Server is the HTTP control surface wrapping a gin.Engine and its
// domain collaborators.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig

	supervisor *supervisor.Supervisor
	db         *persistence.DB
	executor   *broker.Executor
	bus        *events.Bus
	hub        *wsHub

	jwtManager *auth.JWTManager
	authCfg    config.AuthConfig
}

// New builds a Server bound to its collaborators and wires its routes.
func New(cfg config.ServerConfig, authCfg config.AuthConfig, sup *supervisor.Supervisor, db *persistence.DB, executor *broker.Executor, bus *events.Bus) *Server {
	if authCfg.Enabled {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.AllowedOrigins}
	if cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	hub := newWSHub()
	go hub.run()
	bus.Subscribe(func(ev events.Event) { hub.broadcastEvent(ev) })

	s := &Server{
		router:     router,
		config:     cfg,
		supervisor: sup,
		db:         db,
		executor:   executor,
		bus:        bus,
		hub:        hub,
		authCfg:    authCfg,
	}
	if authCfg.Enabled {
		s.jwtManager = auth.NewJWTManager(authCfg.JWTSecret, authCfg.AccessTokenDuration, authCfg.RefreshTokenDuration)
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/auth/status", s.handleAuthStatus)

	if s.authCfg.Enabled {
		s.router.POST("/api/auth/login", s.handleLogin)
	}

	api := s.router.Group("/api")
	if s.authCfg.Enabled {
		api.Use(s.authMiddleware())
	}
	{
		api.POST("/daemon/start", s.handleStart)
		api.POST("/daemon/stop", s.handleStop)
		api.POST("/daemon/force-cleanup", s.handleForceCleanup)
		api.GET("/daemon/status", s.handleStatus)

		api.GET("/positions", s.handleGetPositions)
		api.POST("/positions/:ticket/close", s.handleClosePosition)
		api.POST("/positions/close-all", s.handleCloseAll)

		api.GET("/metrics/daily", s.handleDailyMetrics)
		api.GET("/metrics/today", s.handleTodayMetrics)
	}

	s.router.GET("/ws/events", s.handleWebSocket)
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func errorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "message": message})
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
