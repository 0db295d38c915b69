// Package health exposes a small HTTP surface for liveness probes and
// operational counters.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"keygate-bot/keygate"
)

type Server struct {
	bot  *keygate.Bot
	http *http.Server
}

func NewServer(bot *keygate.Bot) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{bot: bot}
	router.GET("/", s.root)
	router.GET("/healthz", s.healthz)
	router.GET("/stats", s.stats)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", bot.Cfg.Health.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Health server listening",
			slog.String("type", "sys"),
			slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) root(c *gin.Context) {
	c.String(http.StatusOK, "Bot is running")
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "ok"
	if err := s.bot.DB.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "unreachable"
	}
	c.JSON(status, gin.H{
		"status":  dbStatus,
		"version": s.bot.Version,
		"uptime":  time.Since(s.bot.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) stats(c *gin.Context) {
	ctx := c.Request.Context()

	pool, err := s.bot.Keys.Stats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	users, err := s.bot.Users.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	claimCount, err := s.bot.Claims.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"keys_available": pool.Unconsumed,
		"keys_consumed":  pool.Consumed,
		"users":          users,
		"claims":         claimCount,
	})
}
