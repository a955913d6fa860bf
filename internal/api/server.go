package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/camwatch/internal/api/ws"
	"github.com/yourusername/camwatch/internal/core"
	"github.com/yourusername/camwatch/internal/storage"
	"github.com/yourusername/camwatch/internal/watch"
	"go.uber.org/zap"
)

// Server is the HTTP surface over the watcher's operations.
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	router     *gin.Engine
	port       int

	watcher *watch.Watcher
	events  *storage.EventRepository
	hub     *ws.Hub
}

// ServerConfig holds the API server dependencies. Events and Hub are
// optional.
type ServerConfig struct {
	Port       int
	Production bool
	Logger     *zap.Logger
	Watcher    *watch.Watcher
	Events     *storage.EventRepository
	Hub        *ws.Hub
}

// NewServer creates the API server and registers its routes.
func NewServer(config ServerConfig) *Server {
	if !config.Production {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(loggerMiddleware(config.Logger))

	server := &Server{
		logger:  config.Logger,
		router:  router,
		port:    config.Port,
		watcher: config.Watcher,
		events:  config.Events,
		hub:     config.Hub,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/cameras", s.handleListCameras)
		v1.POST("/cameras", s.handleAddCamera)
		v1.DELETE("/cameras/:id", s.handleRemoveCamera)
		v1.GET("/cameras/:id/snapshot", s.handleSnapshot)

		v1.GET("/status", s.handleStatus)
		v1.POST("/status/refresh", s.handleRefreshStatus)

		v1.PUT("/detection/sensitivity", s.handleSetSensitivity)
		v1.PUT("/detection/enabled", s.handleSetEnabled)
		v1.PUT("/detection/mode", s.handleSetMode)

		v1.GET("/events", s.handleListEvents)
	}

	if s.hub != nil {
		s.router.GET("/ws", s.hub.HandleWS)
	}
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server",
		zap.String("addr", addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the API server down.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	if s.httpServer != nil {
		return s.httpServer.Close()
	}

	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

type cameraResponse struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Source string `json:"source"`
	Auth   bool   `json:"auth"`
	Status string `json:"status"`
}

func (s *Server) handleListCameras(c *gin.Context) {
	infos := s.watcher.ListCameras()

	cameras := make([]cameraResponse, 0, len(infos))
	for _, info := range infos {
		cameras = append(cameras, cameraResponse{
			ID:     info.ID,
			URL:    info.Config.URL,
			Source: string(info.Config.Source),
			Auth:   info.Config.Username != "",
			Status: string(info.Status),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"cameras": cameras,
		"count":   len(cameras),
	})
}

type addCameraRequest struct {
	ID       string `json:"id" binding:"required"`
	URL      string `json:"url" binding:"required"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleAddCamera(c *gin.Context) {
	var req addCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.watcher.AddCamera(req.ID, req.URL, req.Username, req.Password); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "ok",
		"id":     req.ID,
	})
}

func (s *Server) handleRemoveCamera(c *gin.Context) {
	if err := s.watcher.RemoveCamera(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	frame, err := s.watcher.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 85}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode snapshot"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.watcher.SystemStatus())
}

func (s *Server) handleRefreshStatus(c *gin.Context) {
	s.watcher.ForceStatusCheck()
	c.JSON(http.StatusOK, s.watcher.SystemStatus())
}

type sensitivityRequest struct {
	Value int `json:"value" binding:"required"`
}

func (s *Server) handleSetSensitivity(c *gin.Context) {
	var req sensitivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.watcher.SetSensitivity(req.Value); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"value":  req.Value,
	})
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleSetEnabled(c *gin.Context) {
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.watcher.SetMotionEnabled(*req.Enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"enabled": *req.Enabled,
	})
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (s *Server) handleSetMode(c *gin.Context) {
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.watcher.SetDetectionMode(core.DetectionMode(req.Mode)); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"mode":   req.Mode,
	})
}

func (s *Server) handleListEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event log not enabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := s.events.ListRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*storage.MotionEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrCameraNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnreachable), errors.Is(err, core.ErrStreamClosed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrDecodeFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
