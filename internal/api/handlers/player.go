package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/store"
)

// GetPlayerProfile returns the player row plus all their rating entries.
func GetPlayerProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		player, err := st.GetPlayer(uid)
		if err != nil {
			respondErr(c, err)
			return
		}
		live, inMatch := st.LiveMatchFor(uid)
		resp := gin.H{
			"player": player,
			"mmrs":   st.MMRsForPlayer(uid),
		}
		if inMatch {
			resp["live_match"] = live
		}
		c.JSON(http.StatusOK, resp)
	}
}

// UpdatePlayerSettings applies a partial settings update. Absent fields
// stay untouched. First contact creates the player row.
func UpdatePlayerSettings(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		var req struct {
			PlayerName          *string `json:"player_name"`
			Alt1                *string `json:"alt1"`
			Alt2                *string `json:"alt2"`
			Battletag           *string `json:"battletag"`
			Country             *string `json:"country"`
			Region              *string `json:"region"`
			AcceptedTOS         *bool   `json:"accepted_tos"`
			CompletedSetup      *bool   `json:"completed_setup"`
			ActivationCode      *string `json:"activation_code"`
			ShieldBatteryBugAck *bool   `json:"shield_battery_bug_ack"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		before := st.EnsurePlayer(uid)
		st.LogCommandCall(uid, "player_settings")

		player, err := st.UpdatePlayer(uid, store.PlayerPatch{
			PlayerName:     req.PlayerName,
			Alt1:           req.Alt1,
			Alt2:           req.Alt2,
			Battletag:      req.Battletag,
			Country:        req.Country,
			Region:         req.Region,
			AcceptedTOS:    req.AcceptedTOS,
			CompletedSetup: req.CompletedSetup,
			ActivationCode: req.ActivationCode,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		if req.ShieldBatteryBugAck != nil {
			if err := st.SetShieldBatteryBugAck(uid, *req.ShieldBatteryBugAck); err != nil {
				respondErr(c, err)
				return
			}
			player.ShieldBatteryBug = *req.ShieldBatteryBugAck
		}

		if req.PlayerName != nil && *req.PlayerName != before.PlayerName {
			st.LogPlayerAction(uid, *req.PlayerName, "player_name", before.PlayerName, *req.PlayerName, "user")
		}
		c.JSON(http.StatusOK, gin.H{"player": player})
	}
}

// GetPlayerMatches returns the player's match history, newest first.
func GetPlayerMatches(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := paramInt64(c, "uid")
		if !ok {
			return
		}
		if _, err := st.GetPlayer(uid); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": st.MatchesFor(uid)})
	}
}
