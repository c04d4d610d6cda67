package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/farehunter/api"
	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const shutdownTimeout = 5 * time.Second

// NewRouter mounts the REST API, health, metrics and the Swagger UI.
func NewRouter(c *Container) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(c.Logger))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if file := c.Config.HTTP.SwaggerFile; file != "" {
		router.StaticFile("/openapi.json", file)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))
	}

	v1 := router.Group("/api/v1")
	api.NewRuleHandler(c.RuleService, c.RunService, c.Registry, c.Config.Search.DefaultSources).
		Register(v1.Group("/rules"))
	api.NewRunHandler(c.RuleService, c.RunService, c.Search, c.Reporter, c.Config.Search.DefaultSources, c.Logger).
		Register(v1.Group("/runs"))
	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// Run serves HTTP and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, c *Container) error {
	srv := &http.Server{
		Addr:    c.Config.HTTP.Address,
		Handler: NewRouter(c),
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("http server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
