package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"premiere-bridge/internal/domain"
	"premiere-bridge/internal/download"
	"premiere-bridge/internal/hub"
)

// Service is the application surface the HTTP layer drives.
type Service interface {
	HandleDownload(ctx context.Context, req domain.ClientRequest) error
	CancelDownload() error
	Settings() domain.Settings
	UpdateSettings(domain.Settings) error
	Diagnostics() domain.DiagnosticReport
}

// Server exposes the bridge HTTP and WebSocket endpoints to the browser
// extension and the CEP panel.
type Server struct {
	engine  *gin.Engine
	svc     Service
	hub     *hub.Hub
	version string
	log     zerolog.Logger
}

// New builds the router. All endpoints allow cross-origin calls because the
// extension runs in youtube.com page contexts.
func New(svc Service, h *hub.Hub, version string, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	engine.Use(cors.New(corsCfg))

	s := &Server{
		engine:  engine,
		svc:     svc,
		hub:     h,
		version: version,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.handleRoot)
	s.engine.GET("/get-version", s.handleVersion)
	s.engine.GET("/settings", s.handleGetSettings)
	s.engine.POST("/settings", s.handleUpdateSettings)
	s.engine.POST("/handle-video-url", s.handleVideoURL)
	s.engine.POST("/cancel-download", s.handleCancel)
	s.engine.GET("/events", s.handleEvents)
	s.engine.GET("/diagnostics", s.handleDiagnostics)
	s.engine.GET("/ws", func(c *gin.Context) {
		s.hub.ServeWS(c.Writer, c.Request)
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// handleRoot is the liveness probe the extension polls to detect the bridge.
func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Premiere is alive")
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": s.version})
}

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Settings())
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings domain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings document"})
		return
	}
	if err := s.svc.UpdateSettings(settings); err != nil {
		s.log.Error().Err(err).Msg("persist settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleVideoURL acknowledges as soon as the download is accepted; progress
// and the terminal outcome arrive over the event channel.
func (s *Server) handleVideoURL(c *gin.Context) {
	var req domain.ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.svc.HandleDownload(c.Request.Context(), req); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.log.Error().Err(err).Str("url", req.URL).Msg("download request failed")
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleCancel(c *gin.Context) {
	if err := s.svc.CancelDownload(); err != nil {
		if errors.Is(err, download.ErrNoActiveJob) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleEvents is the polling fallback for clients without a live socket.
func (s *Server) handleEvents(c *gin.Context) {
	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil || since < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a non-negative integer"})
		return
	}
	events := s.hub.Since(since)
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Diagnostics())
}

// statusFor maps request errors onto HTTP statuses. Validation problems are
// the caller's fault, a busy executor is a conflict, everything else is 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrOutOfBounds),
		errors.Is(err, domain.ErrNoProject):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
