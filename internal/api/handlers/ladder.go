package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/config"
	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/store"
)

// Standing is one row of the ladder response.
type Standing struct {
	UID         int64  `json:"uid"`
	PlayerName  string `json:"player_name"`
	Race        string `json:"race"`
	MMR         int    `json:"mmr"`
	Rank        string `json:"rank"`
	GamesPlayed int    `json:"games_played"`
	GamesWon    int    `json:"games_won"`
	GamesLost   int    `json:"games_lost"`
	GamesDrawn  int    `json:"games_drawn"`
}

// GetStandings returns the ranked ladder: entries with at least one game
// inside the activity window, ordered by MMR with quantile rank letters.
func GetStandings(st *store.Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		raceFilter := c.Query("race")

		var ranked []Standing
		mmrs := make([]int, 0, 64)
		for _, e := range st.AllMMRs() {
			if !ladder.Ranked(e.GamesPlayed, e.LastPlayed, now, cfg.RankedWindowDays) {
				continue
			}
			if raceFilter != "" && e.Race != raceFilter {
				continue
			}
			name := ""
			if p, err := st.GetPlayer(e.DiscordUID); err == nil {
				name = p.PlayerName
			}
			ranked = append(ranked, Standing{
				UID:         e.DiscordUID,
				PlayerName:  name,
				Race:        e.Race,
				MMR:         e.MMR,
				GamesPlayed: e.GamesPlayed,
				GamesWon:    e.GamesWon,
				GamesLost:   e.GamesLost,
				GamesDrawn:  e.GamesDrawn,
			})
			mmrs = append(mmrs, e.MMR)
		}

		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].MMR != ranked[j].MMR {
				return ranked[i].MMR > ranked[j].MMR
			}
			return ranked[i].UID < ranked[j].UID
		})
		for i := range ranked {
			ranked[i].Rank = ladder.RankLetter(ranked[i].MMR, mmrs)
		}

		c.JSON(http.StatusOK, gin.H{"standings": ranked, "window_days": cfg.RankedWindowDays})
	}
}
