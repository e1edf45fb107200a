// Package api exposes the ladder over HTTP for presenter frontends.
package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/scevolution/ladder/internal/admin"
	"github.com/scevolution/ladder/internal/api/handlers"
	"github.com/scevolution/ladder/internal/config"
	"github.com/scevolution/ladder/internal/lifecycle"
	"github.com/scevolution/ladder/internal/matchmaking"
	"github.com/scevolution/ladder/internal/replay"
	"github.com/scevolution/ladder/internal/store"
	"github.com/scevolution/ladder/internal/ws"
)

// Deps bundles the constructed services the handlers close over.
type Deps struct {
	Store      *store.Store
	Queue      *matchmaking.Matchmaker
	Lifecycle  *lifecycle.Service
	Admin      *admin.Service
	Blobs      replay.BlobStore
	Hub        *ws.Hub
	DB         *sqlx.DB
	WriteQueue *store.WriteQueue
	Cfg        *config.Config
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	cfg := deps.Cfg

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(deps.Store, deps.Queue, deps.WriteQueue, deps.Hub))

		// Presenter event stream
		v1.GET("/ws", deps.Hub.Handler)

		// Matchmaking queue
		queue := v1.Group("/queue")
		{
			queue.POST("/enter", handlers.EnterQueue(deps.Store, deps.Queue))
			queue.POST("/leave", handlers.LeaveQueue(deps.Store, deps.Queue))
			queue.GET("/status", handlers.QueueStatus(deps.Queue))
		}

		// Match lifecycle
		match := v1.Group("/match")
		{
			match.GET("/:id", handlers.GetMatch(deps.Store))
			match.POST("/:id/confirm", handlers.ConfirmMatch(deps.Store, deps.Lifecycle))
			match.POST("/:id/report", handlers.ReportMatch(deps.Store, deps.Lifecycle))
			match.POST("/:id/replay", handlers.UploadReplay(deps.Store, deps.Blobs))
		}

		// Players and standings
		player := v1.Group("/player")
		{
			player.GET("/:uid", handlers.GetPlayerProfile(deps.Store))
			player.PUT("/:uid/settings", handlers.UpdatePlayerSettings(deps.Store))
			player.GET("/:uid/matches", handlers.GetPlayerMatches(deps.Store))
		}
		v1.GET("/ladder", handlers.GetStandings(deps.Store, cfg))

		// Administrative surface
		adminGroup := v1.Group("/admin")
		{
			adminGroup.POST("/login", handlers.AdminLogin(deps.DB, cfg))

			authed := adminGroup.Group("")
			authed.Use(handlers.AdminAuthMiddleware(cfg))
			{
				authed.POST("/match/:id/resolve", handlers.AdminResolve(deps.Admin))
				authed.POST("/player/:uid/mmr", handlers.AdminAdjustMMR(deps.Admin))
				authed.POST("/player/:uid/ban", handlers.AdminBan(deps.Admin))
				authed.POST("/player/:uid/unban", handlers.AdminUnban(deps.Admin))
				authed.POST("/player/:uid/reset-aborts", handlers.AdminResetAborts(deps.Admin))
				authed.POST("/queue/remove/:uid", handlers.AdminRemoveFromQueue(deps.Admin))
				authed.POST("/queue/clear", handlers.AdminClearQueue(deps.Admin))
			}
		}
	}
}
