package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/api/handlers"
	"adboard/market/internal/api/middleware"
	"adboard/market/internal/config"
	"adboard/market/internal/db"
	"adboard/market/internal/storage"
)

// RouterDeps are the collaborators the main API is built from.
// Images is only set for the GridFS blob backend.
type RouterDeps struct {
	Sessions  middleware.ISessionRegistry
	Documents db.DocumentStore
	Writer    handlers.IListingWriter
	Inbox     handlers.INotificationInbox
	Images    storage.BlobReader
}

// SetupRouter configures and returns the main Gin engine. The rate limiter's
// idle client cleanup runs until ctx is done.
func SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg.RateLimitRefillRate, cfg.RateLimitBucketSize)
	go rateLimiter.Run(ctx, time.Minute)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	r.Use(rateLimiter.Limit())

	catalogHandler := handlers.NewRestCatalogHandler(deps.Documents, cfg.ListingsCollection)
	sellHandler := handlers.NewRestSellHandler(deps.Writer, cfg.ImageMaxSizeBytes())
	sessionHandler := handlers.NewRestSessionHandler(deps.Inbox)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		if deps.Images != nil {
			imageHandler := handlers.NewRestImageHandler(deps.Images)
			v1.GET(strings.TrimPrefix(storage.ImageRoutePrefix, "/v1")+":id", imageHandler.GetImage)
		}

		paged := v1.Group("/")
		paged.Use(middleware.PageSessionMiddleware(deps.Sessions, strings.HasPrefix(cfg.PublicBaseURL, "https://")))
		{
			paged.GET("/ads", catalogHandler.ListListings)
			paged.GET("/sell", sellHandler.OpenSellView)
			paged.POST("/ads", middleware.RequireIdentity(), sellHandler.CreateListing)

			paged.GET("/session", sessionHandler.GetSession)
			paged.POST("/session/login", sessionHandler.Login)
			paged.POST("/session/logout", sessionHandler.Logout)
			paged.POST("/session/login-modal/open", sessionHandler.OpenLoginModal)
			paged.POST("/session/login-modal/close", sessionHandler.CloseLoginModal)
			paged.GET("/session/notifications", sessionHandler.Notifications)
		}
	}

	return r
}

// SessionCounter reports how many page sessions are live.
type SessionCounter interface {
	Len() int
}

// ObserverCounter reports how many identity observers are registered.
type ObserverCounter interface {
	ObserverCount() int
}

// SetupServiceRouter configures and returns the service Gin engine.
func SetupServiceRouter(shutdownChan chan<- struct{}, sessions SessionCounter, observers ObserverCounter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				log.Info("Shutdown signal sent successfully.")
			default:
				log.Warn("Shutdown channel already signaled or blocked.")
			}
		case "stats":
			result := gin.H{}
			if sessions != nil {
				result["sessions"] = sessions.Len()
			}
			if observers != nil {
				result["observers"] = observers.ObserverCount()
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
