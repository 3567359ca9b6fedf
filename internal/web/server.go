// Package web serves the agileplus HTTP JSON API.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eddielimmm/my-agile-plus/internal/app"
)

// Server is the JSON API over one user's App.
type Server struct {
	app    *app.App
	router *gin.Engine
	log    *slog.Logger
}

// NewServer builds the router. Requests are logged at debug level.
func NewServer(a *app.App, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	s := &Server{app: a, router: router, log: log}

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) })

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.POST("/tasks/:id/entries", s.handleAddEntry)

		api.GET("/folders", s.handleListFolders)
		api.POST("/folders", s.handleCreateFolder)
		api.PUT("/folders/:id", s.handleRenameFolder)
		api.DELETE("/folders/:id", s.handleDeleteFolder)

		api.GET("/timer", s.handleTimerState)
		api.POST("/timer/start", s.handleTimerStart)
		api.POST("/timer/stop", s.handleTimerStop)

		api.GET("/sprints", s.handleListSprints)
		api.POST("/sprints", s.handleCreateSprint)
		api.PUT("/sprints/:id", s.handleUpdateSprint)
		api.DELETE("/sprints/:id", s.handleDeleteSprint)
		api.POST("/sprints/:id/select", s.handleSelectSprint)
		api.POST("/sprints/:id/tasks", s.handleAddSprintTasks)
		api.DELETE("/sprints/:id/tasks/:taskID", s.handleRemoveSprintTask)

		api.GET("/goals/summary", s.handleGoalSummary)
		api.GET("/goals/:context", s.handleGetGoal)
		api.PUT("/goals/:context", s.handleSetGoal)

		api.GET("/stats", s.handleStats)
		api.GET("/reports", s.handleListReports)
		api.GET("/reports/:date", s.handleGetReport)

		api.GET("/notifications", s.handleNotifications)
		api.POST("/notifications/seen", s.handleMarkSeen)
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("api shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
