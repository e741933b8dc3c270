package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(loggingMiddleware(s.log))
	r.Use(corsMiddleware(s.config.AllowedOrigins))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/health/metrics", s.handleMetrics)

		api.GET("/tracks", s.handleListTracks)
		api.POST("/tracks", s.handleUploadTrack)
		api.GET("/tracks/:id", s.handleGetTrack)
		api.DELETE("/tracks/:id", s.handleDeleteTrack)
		api.GET("/tracks/:id/compare/:other", s.handleCompareTracks)

		api.POST("/analyze", s.handleAnalyze)
		api.POST("/similarity", s.handleSimilarity)
	}

	r.NoRoute(func(c *gin.Context) {
		s.respondError(c, http.StatusNotFound, "Route not found")
	})
	return r
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
			allowed = true
		} else {
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
					allowed = true
					break
				}
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
			if !allowAll {
				c.Header("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs every request with its status and latency
func loggingMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s from %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.ClientIP(),
			c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("🚀 SoundRights server starting on %s", addr)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	s.log.Infof("   Max upload: %d MB", s.config.MaxUploadMB)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health                         - Health check")
	s.log.Infof("   GET    /api/health/metrics             - Server metrics")
	s.log.Infof("   GET    /api/tracks?owner_id=           - List tracks")
	s.log.Infof("   POST   /api/tracks                     - Upload and match a track")
	s.log.Infof("   GET    /api/tracks/:id                 - Get track by ID")
	s.log.Infof("   DELETE /api/tracks/:id                 - Delete track by ID")
	s.log.Infof("   GET    /api/tracks/:id/compare/:other  - Compare two tracks")
	s.log.Infof("   POST   /api/analyze                    - Extract features only")
	s.log.Infof("   POST   /api/similarity                 - Match features against a corpus")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
