package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/matchmaking"
	"github.com/scevolution/ladder/internal/store"
	"github.com/scevolution/ladder/internal/ws"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports server health plus hot-store and queue gauges.
func HealthCheck(st *store.Store, queue *matchmaking.Matchmaker, writes *store.WriteQueue, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "ok",
			"service":           "scevolution-ladder",
			"version":           version,
			"uptime":            time.Since(startTime).String(),
			"store":             st.Counts(),
			"queue_size":        queue.QueueSize(),
			"write_queue_depth": writes.Depth(),
			"presenters":        hub.Count(),
		})
	}
}
