package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/lifecycle"
	"github.com/scevolution/ladder/internal/store"
)

// GetMatch returns one match row.
func GetMatch(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		m, err := st.GetMatch(id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m, "terminal": m.Terminal()})
	}
}

// ConfirmMatch records one player's confirmation click.
func ConfirmMatch(st *store.Store, lc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		var req struct {
			UID int64 `json:"uid"`
		}
		if err := c.BindJSON(&req); err != nil || req.UID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid required"})
			return
		}
		st.LogCommandCall(req.UID, "match_confirm")
		if err := lc.Confirm(id, req.UID); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"confirmed": true})
	}
}

// ReportMatch records a player's result claim. The report value follows
// the wire enum: 0 draw, 1 player 1 won, 2 player 2 won, -3 self-abort.
func ReportMatch(st *store.Store, lc *lifecycle.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramInt64(c, "id")
		if !ok {
			return
		}
		var req struct {
			UID    int64 `json:"uid"`
			Report *int  `json:"report"`
		}
		if err := c.BindJSON(&req); err != nil || req.UID <= 0 || req.Report == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid and report required"})
			return
		}
		st.LogCommandCall(req.UID, "match_report")
		if err := lc.RecordReport(id, req.UID, *req.Report); err != nil {
			respondErr(c, err)
			return
		}
		m, err := st.GetMatch(id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m, "terminal": m.Terminal()})
	}
}
