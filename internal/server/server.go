// Package server exposes the guide over HTTP and streams its pose to an
// external renderer over WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexguide/internal/agent"
	"github.com/normanking/cortexguide/internal/body"
	"github.com/normanking/cortexguide/internal/bus"
	"github.com/normanking/cortexguide/internal/logging"
	"github.com/normanking/cortexguide/internal/scene"
)

// DefaultStreamRate is the pose frames per second sent to each client
const DefaultStreamRate = 30

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Server) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithBus forwards bus events to WebSocket clients
func WithBus(eb *bus.EventBus) Option {
	return func(s *Server) { s.bus = eb }
}

// WithLogHistory serves the logger's history on /api/logs
func WithLogHistory(l *logging.Logger) Option {
	return func(s *Server) { s.history = l }
}

// WithViewpoint lets clients move the visitor's viewpoint
func WithViewpoint(v *scene.TrackedViewpoint) Option {
	return func(s *Server) { s.viewpoint = v }
}

func WithStreamRate(fps int) Option {
	return func(s *Server) {
		if fps > 0 {
			s.streamRate = fps
		}
	}
}

// Server serves one agent
type Server struct {
	agent      *agent.Agent
	bus        *bus.EventBus
	history    *logging.Logger
	viewpoint  *scene.TrackedViewpoint
	clock      clockwork.Clock
	log        zerolog.Logger
	streamRate int
	engine     *gin.Engine
}

// New builds the server and its routes
func New(a *agent.Agent, opts ...Option) *Server {
	s := &Server{
		agent:      a,
		clock:      clockwork.NewRealClock(),
		log:        zerolog.Nop(),
		streamRate: DefaultStreamRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "server").Logger()

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.health)
	r.GET("/ws/pose", s.poseStream)

	api := r.Group("/api")
	api.GET("/state", s.state)
	api.POST("/message", s.message)
	api.POST("/reset", s.reset)
	api.POST("/session/enter", s.enter)
	api.POST("/session/exit", s.exit)
	api.POST("/session/close-range", s.closeRange)
	api.PUT("/presence", s.presence)
	api.PUT("/viewpoint", s.moveViewpoint)
	api.GET("/logs", s.logs)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"agent":  s.agent.Name(),
		"brain":  s.agent.Brain() != nil,
	})
}

func (s *Server) state(c *gin.Context) {
	b := s.agent.Body()
	out := gin.H{
		"agent":    s.agent.Name(),
		"session":  s.agent.Status(),
		"phase":    b.Phase(),
		"presence": b.PresenceConfig(),
	}
	if br := s.agent.Brain(); br != nil {
		out["brain"] = br.Snapshot()
	}
	c.JSON(http.StatusOK, out)
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	resp, err := s.agent.Say(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) reset(c *gin.Context) {
	if err := s.agent.Reset(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (s *Server) enter(c *gin.Context) {
	if err := s.agent.Enter(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.agent.Status())
}

func (s *Server) exit(c *gin.Context) {
	if err := s.agent.Exit(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.agent.Status())
}

func (s *Server) closeRange(c *gin.Context) {
	resp, greeted, err := s.agent.CloseRange(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := gin.H{"greeted": greeted}
	if greeted {
		out["response"] = resp
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) presence(c *gin.Context) {
	var patch body.PresencePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.agent.Body().SetPresenceConfig(patch))
}

type viewpointRequest struct {
	X *float32 `json:"x" binding:"required"`
	Y *float32 `json:"y" binding:"required"`
	Z *float32 `json:"z" binding:"required"`
}

func (s *Server) moveViewpoint(c *gin.Context) {
	if s.viewpoint == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "viewpoint is fixed"})
		return
	}
	var req viewpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x, y and z are required"})
		return
	}
	p := mgl32.Vec3{*req.X, *req.Y, *req.Z}
	s.viewpoint.Set(p)
	c.JSON(http.StatusOK, gin.H{"x": p.X(), "y": p.Y(), "z": p.Z()})
}

func (s *Server) logs(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, []logging.Entry{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	c.JSON(http.StatusOK, s.history.History(limit))
}

// fail maps agent errors onto status codes
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, agent.ErrNoBrain):
		status = http.StatusServiceUnavailable
	case errors.Is(err, agent.ErrClosed), errors.Is(err, body.ErrClosed):
		status = http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
