// Package api exposes the HTTP surface of the board service: the REST
// endpoints for auth, tasks, and the activity feed, plus the WebSocket
// upgrade path and operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Riya-023/collaborative-todo-board/internal/api/websocket"
	"github.com/Riya-023/collaborative-todo-board/internal/config"
	"github.com/Riya-023/collaborative-todo-board/internal/repository"
	"github.com/Riya-023/collaborative-todo-board/internal/resilience"
	"github.com/Riya-023/collaborative-todo-board/internal/services"
	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/common/cache"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// Server is the HTTP server for the board service
type Server struct {
	router *gin.Engine
	server *http.Server
	config config.APIConfig

	hub        *websocket.Server
	auth       *auth.Service
	tasks      *repository.TaskRepository
	users      *repository.UserRepository
	activities *repository.ActivityRepository
	assignment *services.AssignmentService
	cache      cache.Cache
	breakers   *resilience.Manager

	logger  observability.Logger
	metrics observability.MetricsClient

	startTime time.Time
}

// Deps bundles the collaborators the server needs
type Deps struct {
	Hub        *websocket.Server
	Auth       *auth.Service
	Tasks      *repository.TaskRepository
	Users      *repository.UserRepository
	Activities *repository.ActivityRepository
	Assignment *services.AssignmentService
	Cache      cache.Cache
	Breakers   *resilience.Manager
	Logger     observability.Logger
	Metrics    observability.MetricsClient
}

// NewServer creates the HTTP server and registers all routes
func NewServer(cfg config.APIConfig, deps Deps) *Server {
	s := &Server{
		config:     cfg,
		hub:        deps.Hub,
		auth:       deps.Auth,
		tasks:      deps.Tasks,
		users:      deps.Users,
		activities: deps.Activities,
		assignment: deps.Assignment,
		cache:      deps.Cache,
		breakers:   deps.Breakers,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		startTime:  time.Now(),
	}

	s.router = s.setupRouter()
	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())
	if s.config.EnableCORS {
		router.Use(s.corsMiddleware())
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", s.handleMetrics())
	router.GET("/ws", func(c *gin.Context) {
		s.hub.HandleWebSocket(c.Writer, c.Request)
	})

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", s.handleRegister)
		authGroup.POST("/login", s.handleLogin)
	}

	protected := router.Group("/api")
	protected.Use(s.auth.Middleware())
	{
		protected.GET("/tasks", s.handleListTasks)
		protected.POST("/tasks", s.handleCreateTask)
		protected.GET("/tasks/:id", s.handleGetTask)
		protected.PUT("/tasks/:id", s.handleUpdateTask)
		protected.DELETE("/tasks/:id", s.handleDeleteTask)
		protected.POST("/tasks/:id/smart-assign", s.handleSmartAssign)

		protected.GET("/users", s.handleListUsers)
		protected.GET("/activity", s.handleListActivity)
	}

	return router
}

// Start runs the HTTP server until it fails or is shut down
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", map[string]interface{}{
		"address": s.config.ListenAddress,
	})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			return
		}

		s.logger.Info("Request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency.String(),
		})
		s.metrics.RecordDuration("http_request_duration", latency)
		s.metrics.IncrementCounterWithLabels("http_requests_total", 1, map[string]string{
			"method": c.Request.Method,
			"status": http.StatusText(c.Writer.Status()),
		})
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := s.config.CORSAllowed
	if allowed == "" {
		allowed = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(s.startTime).String(),
		"websocket": s.hub.Stats(),
	})
}

func (s *Server) handleMetrics() gin.HandlerFunc {
	if pc, ok := s.metrics.(*observability.PrometheusMetricsClient); ok {
		h := promhttp.HandlerFor(pc.Registry(), promhttp.HandlerOpts{})
		return gin.WrapH(h)
	}
	return func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	}
}
