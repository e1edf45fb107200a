package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/matchmaking"
	"github.com/scevolution/ladder/internal/store"
)

// EnterQueue puts a player into the matchmaking queue with their race and
// veto selections.
func EnterQueue(st *store.Store, queue *matchmaking.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UID             int64    `json:"uid"`
			Races           []string `json:"races"`
			Vetoes          []string `json:"vetoes"`
			PresenterHandle string   `json:"presenter_handle"`
		}
		if err := c.BindJSON(&req); err != nil || req.UID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid and races required"})
			return
		}

		races := make([]ladder.Race, 0, len(req.Races))
		for _, s := range req.Races {
			r, err := ladder.ParseRace(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			races = append(races, r)
		}

		st.EnsurePlayer(req.UID)
		st.LogCommandCall(req.UID, "queue_enter")
		if err := queue.Enter(req.UID, races, req.Vetoes, req.PresenterHandle); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"queued": true, "queue_size": queue.QueueSize()})
	}
}

// LeaveQueue removes the player's queue entry. Leaving when not queued is
// not an error.
func LeaveQueue(st *store.Store, queue *matchmaking.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UID int64 `json:"uid"`
		}
		if err := c.BindJSON(&req); err != nil || req.UID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid required"})
			return
		}
		st.LogCommandCall(req.UID, "queue_leave")
		removed := queue.Leave(req.UID)
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

// QueueStatus reports the queue size and, for ?uid=N, that player's entry.
func QueueStatus(queue *matchmaking.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"queue_size": queue.QueueSize()}
		if uidStr := c.Query("uid"); uidStr != "" {
			uid, err := strconv.ParseInt(uidStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uid"})
				return
			}
			entry, ok := queue.EntryFor(uid)
			resp["queued"] = ok
			if ok {
				resp["races"] = entry.Races
				resp["waves_waited"] = entry.WavesWaited
				resp["enqueued_at"] = entry.EnqueuedAt
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
