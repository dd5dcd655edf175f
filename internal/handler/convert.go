package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Converter is the part of transcode.Service the HTTP layer depends on.
type Converter interface {
	Name() string
	ConvertBase64(ctx context.Context, opusBase64 string) (string, error)
}

type ConvertRequest struct {
	OpusBase64 string `json:"opusBase64"`
}

type ConvertResponse struct {
	MP3Base64 string `json:"mp3Base64"`
}

// Server wraps the gin router with the conversion services it dispatches to.
type Server struct {
	router          *gin.Engine
	converters      map[string]Converter
	defaultStrategy string
	maxBodyBytes    int64
	logger          *slog.Logger
}

type ServerOptions struct {
	// DefaultStrategy selects the converter used by POST /convert.
	DefaultStrategy string
	MaxBodyBytes    int64
	// Gatherer backs GET /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewServer(converters []Converter, opts ServerOptions) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		converters:      make(map[string]Converter, len(converters)),
		defaultStrategy: opts.DefaultStrategy,
		maxBodyBytes:    opts.MaxBodyBytes,
		logger:          opts.Logger,
	}
	for _, c := range converters {
		s.converters[c.Name()] = c
	}
	if _, ok := s.converters[s.defaultStrategy]; !ok {
		return nil, errors.New("default strategy has no converter")
	}

	s.setupRoutes(opts.Gatherer)
	return s, nil
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger)

	router.GET("/health", s.handleHealth)
	router.POST("/convert", s.handleConvert)
	router.POST("/convert/:strategy", s.handleConvert)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.router = router
}

// Handler exposes the router for use in an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.DebugContext(c.Request.Context(), "Handled request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"elapsed", time.Since(start),
	)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConvert(c *gin.Context) {
	strategy := c.Param("strategy")
	if strategy == "" {
		strategy = s.defaultStrategy
	}

	converter, ok := s.converters[strategy]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown strategy"})
		return
	}

	if s.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
	}

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mp3Base64, err := converter.ConvertBase64(c.Request.Context(), req.OpusBase64)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ConvertResponse{MP3Base64: mp3Base64})
}

func (s *Server) writeError(c *gin.Context, err error) {
	userErr := ToUserError(err)
	if userErr.Status >= http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request.Context(), "Conversion failed", "error", err)
	}
	c.JSON(userErr.Status, gin.H{"error": userErr.Message})
}
