package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waveform80/structa/internal/analyzer"
	"github.com/waveform80/structa/internal/config"
	"github.com/waveform80/structa/internal/render"
	"github.com/waveform80/structa/internal/source"
	"github.com/waveform80/structa/internal/util"
)

// Server exposes analysis over HTTP: clients POST a document and receive
// its inferred structural schema.
type Server struct {
	config *config.Config
	router *gin.Engine
}

// AnalyzeRequest is the analysis API request. Data carries the value tree
// to analyze; the optional fields override the server's analyzer options
// for this request.
type AnalyzeRequest struct {
	Data           json.RawMessage `json:"data" binding:"required"`
	BadThreshold   string          `json:"bad_threshold,omitempty"`
	EmptyThreshold string          `json:"empty_threshold,omitempty"`
	FieldThreshold *int            `json:"field_threshold,omitempty"`
}

// AnalyzeResponse is the analysis API response.
type AnalyzeResponse struct {
	Schema   map[string]any `json:"schema"`
	Text     string         `json:"text"`
	Warnings []string       `json:"warnings,omitempty"`
	Took     string         `json:"took"`
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/health", s.handleHealth)
	}
}

// handleAnalyze handles the analysis endpoint.
func (s *Server) handleAnalyze(c *gin.Context) {
	start := time.Now()
	logger := util.FromContext(c.Request.Context())

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts, err := s.config.AnalyzerOptions(time.Now())
	if err != nil {
		logger.Error("analyzer options invalid", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server configuration invalid"})
		return
	}
	if err := applyOverrides(&opts, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var warnings []string
	opts.OnWarning = func(w analyzer.ValidationWarning) {
		if len(warnings) < 100 {
			warnings = append(warnings, w.String())
		}
	}
	a, err := analyzer.New(opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Re-decoding from the raw message keeps integral numbers integral;
	// gin's default binding would widen every number to a float.
	value, err := source.DecodeJSON(string(req.Data))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := a.AnalyzeContext(c.Request.Context(), value)
	if err != nil {
		logger.Error("analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	text, err := render.Render(p, render.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering failed"})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Schema:   render.Document(p),
		Text:     text,
		Warnings: warnings,
		Took:     time.Since(start).String(),
	})
}

func applyOverrides(opts *analyzer.Config, req *AnalyzeRequest) error {
	if req.BadThreshold != "" {
		r, ok := new(big.Rat).SetString(req.BadThreshold)
		if !ok {
			return fmt.Errorf("invalid bad_threshold %q", req.BadThreshold)
		}
		opts.BadThreshold = r
	}
	if req.EmptyThreshold != "" {
		r, ok := new(big.Rat).SetString(req.EmptyThreshold)
		if !ok {
			return fmt.Errorf("invalid empty_threshold %q", req.EmptyThreshold)
		}
		opts.EmptyThreshold = r
	}
	if req.FieldThreshold != nil {
		opts.FieldThreshold = *req.FieldThreshold
	}
	return nil
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// Handler builds the configured router; Start serves it and tests drive it
// directly.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	s.router = router
	s.setupRoutes()
	return router
}

// requestLogger stores a request-scoped logger in the request context so
// handlers log with the request's attributes attached.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := util.WithLogger(c.Request.Context(), util.Logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	handler := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
