// Package server exposes the chirpy services as a JSON API over gin.
//
// Sessions are a plain "username" cookie set at login. It identifies the
// caller and nothing more; there is no signing or expiry.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/service"
)

const (
	SessionCookie = "username"
	// DurableHeader is set to "false" when a change was applied in memory
	// but could not be written to disk.
	DurableHeader = "X-Chirpy-Durable"

	shutdownTimeout = 5 * time.Second
)

// Services bundles the services the API is built on.
type Services struct {
	Users   *service.Users
	Posts   *service.Posts
	Follows *service.Follows
	Search  *service.Search
}

type handler struct {
	Services
	log *zap.Logger
}

// NewRouter builds the API router. Release mode is used when production
// is set.
func NewRouter(svc Services, log *zap.Logger, production bool) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{Services: svc, log: log.With(zap.String("component", "http"))}

	router := gin.New()
	router.Use(ginLogger(h.log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/register", h.register)
		api.POST("/login", h.login)
		api.POST("/logout", h.logout)

		api.GET("/users", h.listUsers)
		api.GET("/users/:username/posts", h.userPosts)
		api.GET("/users/:username/following", h.userFollowing)
		api.GET("/users/:username/followers", h.userFollowers)
	}

	authed := api.Group("", h.requireUser)
	{
		authed.GET("/timeline", h.timeline)
		authed.GET("/timeline/following", h.followingTimeline)
		authed.POST("/posts", h.createPost)
		authed.POST("/password", h.changePassword)
		authed.POST("/follow/:username", h.follow)
		authed.DELETE("/follow/:username", h.unfollow)
		authed.GET("/search", h.search)
	}

	return router
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info("server started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("server exited")
	return <-errCh
}

// ginLogger logs one line per request.
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		}
		if user := c.GetString(SessionCookie); user != "" {
			fields = append(fields, zap.String("user", user))
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP Request", fields...)
		default:
			log.Info("HTTP Request", fields...)
		}
	}
}
