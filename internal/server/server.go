// Package server exposes a graph session over HTTP: a JSON snapshot of the
// graph, the user actions that change it, and a websocket stream of redraw
// notifications.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"viki/vikigraph/internal/engine"
)

// Server serves one session.
type Server struct {
	session *engine.Session
	hub     *Hub
	log     *slog.Logger
}

// New returns a server for session. hub must be the session's renderer for
// clients to receive redraws.
func New(session *engine.Session, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{session: session, hub: hub, log: logger}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	SetupRoutes(router, s)
	return router
}

// SetupRoutes registers the graph API on router.
func SetupRoutes(router *gin.Engine, s *Server) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "session": s.session.ID})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", s.hub.HandleWebSocket())

	g := router.Group("/graph")
	{
		g.GET("", GetGraph(s.session))
		g.GET("/summary", GetSummary(s.session))
		g.GET("/errors", GetErrors(s.session))
	}
	nodes := router.Group("/nodes/:id")
	{
		nodes.GET("", GetNode(s.session))
		nodes.POST("/elaborate", ElaborateNode(s.session))
		nodes.POST("/hide", HideNode(s.session))
		nodes.POST("/unhide", UnhideNode(s.session))
		nodes.POST("/select", SelectNode(s.session))
	}
	router.POST("/show-all", ShowAll(s.session))
	router.POST("/categories/hide", HideCategories(s.session))
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("serving graph", "addr", addr, "session", s.session.ID)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
