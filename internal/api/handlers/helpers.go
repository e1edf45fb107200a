package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/lifecycle"
	"github.com/scevolution/ladder/internal/matchmaking"
	"github.com/scevolution/ladder/internal/store"
)

func paramInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

// respondErr maps service errors onto HTTP statuses. Unknown errors are
// internal; the caller gets a generic message.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, matchmaking.ErrAlreadyQueued),
		errors.Is(err, matchmaking.ErrInSystem),
		errors.Is(err, lifecycle.ErrTerminalMatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, matchmaking.ErrBanned),
		errors.Is(err, matchmaking.ErrSetupIncomplete),
		errors.Is(err, lifecycle.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, matchmaking.ErrInvalidSelection),
		errors.Is(err, lifecycle.ErrInvalidReport):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
