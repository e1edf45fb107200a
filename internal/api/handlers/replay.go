package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scevolution/ladder/internal/models"
	"github.com/scevolution/ladder/internal/replay"
	"github.com/scevolution/ladder/internal/store"
)

const maxReplayBytes = 8 << 20 // 8 MiB

// UploadReplay accepts a replay file plus the metadata the presenter
// parsed out of it, stores the blob, verifies the metadata against the
// match and records both on the match row. The verification report goes
// back to the uploader either way.
func UploadReplay(st *store.Store, blobs replay.BlobStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := paramInt64(c, "id")
		if !ok {
			return
		}

		uid, err := strconv.ParseInt(c.PostForm("uid"), 10, 64)
		if err != nil || uid <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid form field required"})
			return
		}

		m, err := st.GetMatch(matchID)
		if err != nil {
			respondErr(c, err)
			return
		}
		slot, isParticipant := m.Participant(uid)
		if !isParticipant {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("player %d is not in match %d", uid, matchID)})
			return
		}

		file, err := c.FormFile("replay")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "replay file required"})
			return
		}
		if file.Size > maxReplayBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "replay file too large"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read replay file"})
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxReplayBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > maxReplayBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read replay file"})
			return
		}

		rec, err := replayFromForm(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		path, err := blobs.PutBlob(data)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store replay"})
			return
		}
		rec.ReplayPath = path
		rec.ReplayHash = replay.HashBlob(data)

		report := replay.Verify(rec, m)

		st.LogCommandCall(uid, "replay_upload")
		stored := st.InsertReplay(rec)
		updated, err := st.SetMatchReplay(matchID, slot, path)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"replay":       stored,
			"match":        updated,
			"verification": report,
		})
	}
}

// replayFromForm builds the metadata record out of the multipart fields.
func replayFromForm(c *gin.Context) (models.Replay, error) {
	dateStr := c.PostForm("replay_date")
	date, err := time.Parse(time.RFC3339, dateStr)
	if err != nil {
		return models.Replay{}, fmt.Errorf("replay_date must be RFC3339, got %q", dateStr)
	}
	duration, _ := strconv.Atoi(c.PostForm("duration"))
	return models.Replay{
		ReplayDate:          date,
		Player1Name:         c.PostForm("player_1_name"),
		Player2Name:         c.PostForm("player_2_name"),
		Player1Race:         c.PostForm("player_1_race"),
		Player2Race:         c.PostForm("player_2_race"),
		Result:              c.PostForm("result"),
		Player1Handle:       c.PostForm("player_1_handle"),
		Player2Handle:       c.PostForm("player_2_handle"),
		Observers:           c.PostForm("observers"),
		MapName:             c.PostForm("map_name"),
		Duration:            duration,
		GamePrivacy:         c.PostForm("game_privacy"),
		GameSpeed:           c.PostForm("game_speed"),
		GameDurationSetting: c.PostForm("game_duration_setting"),
		LockedAlliances:     c.PostForm("locked_alliances"),
	}, nil
}
