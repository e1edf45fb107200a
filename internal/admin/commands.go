package admin

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/store"
)

// MMROp is the arithmetic applied by AdjustMMR.
type MMROp string

const (
	OpAdd      MMROp = "add"
	OpSubtract MMROp = "subtract"
	OpSet      MMROp = "set"
)

// ErrInvalidOp rejects an unknown MMR operation.
var ErrInvalidOp = errors.New("admin: invalid mmr operation")

// MMRAdjustment reports the before/after of an AdjustMMR call.
type MMRAdjustment struct {
	UID    int64       `json:"uid"`
	Race   ladder.Race `json:"race"`
	Before int         `json:"before"`
	After  int         `json:"after"`
}

// AdjustMMR changes a player's current rating directly. Game counters
// are untouched; only gameplay and match resolution count games.
func (s *Service) AdjustMMR(adminUID, uid int64, race ladder.Race, op MMROp, value int, reason string) (MMRAdjustment, error) {
	if !race.IsValid() {
		return MMRAdjustment{}, fmt.Errorf("admin: unknown race %q", race)
	}
	entry, err := s.store.GetMMR(uid, race)
	if err != nil {
		return MMRAdjustment{}, err
	}

	var after int
	switch op {
	case OpAdd:
		after = entry.MMR + value
	case OpSubtract:
		after = entry.MMR - value
	case OpSet:
		after = value
	default:
		return MMRAdjustment{}, fmt.Errorf("%w: %q", ErrInvalidOp, op)
	}

	if _, err := s.store.UpdateMMR(uid, race, after, store.StatNone); err != nil {
		return MMRAdjustment{}, err
	}
	s.audit(adminUID, "adjust_mmr", uid, nil, reason, map[string]interface{}{
		"race": string(race), "op": string(op), "value": value,
		"before": entry.MMR, "after": after,
	})
	log.Printf("[ADMIN] MMR %d/%s adjusted %d -> %d by admin %d (%q)", uid, race, entry.MMR, after, adminUID, reason)
	return MMRAdjustment{UID: uid, Race: race, Before: entry.MMR, After: after}, nil
}

// RemoveFromQueue kicks one player out of the matchmaking queue.
func (s *Service) RemoveFromQueue(adminUID, uid int64, reason string) bool {
	removed := s.queue.Leave(uid)
	s.audit(adminUID, "remove_from_queue", uid, nil, reason, map[string]interface{}{"removed": removed})
	return removed
}

// ClearQueue empties the matchmaking queue.
func (s *Service) ClearQueue(adminUID int64, reason string) []int64 {
	uids := s.queue.Clear()
	s.audit(adminUID, "clear_queue", 0, nil, reason, map[string]interface{}{"removed": len(uids)})
	return uids
}

// ResetAborts sets a player's remaining abort allowance.
func (s *Service) ResetAborts(adminUID, uid int64, newCount int, reason string) error {
	player, err := s.store.GetPlayer(uid)
	if err != nil {
		return err
	}
	if _, err := s.store.UpdatePlayer(uid, store.PlayerPatch{RemainingAborts: &newCount}); err != nil {
		return err
	}
	s.store.LogPlayerAction(uid, player.PlayerName, "remaining_aborts",
		strconv.Itoa(player.RemainingAborts), strconv.Itoa(newCount), "admin")
	s.audit(adminUID, "reset_aborts", uid, nil, reason, map[string]interface{}{
		"before": player.RemainingAborts, "after": newCount,
	})
	return nil
}

// Ban flags a player and removes any queue entry they hold.
func (s *Service) Ban(adminUID, uid int64, reason string) error {
	player, err := s.store.GetPlayer(uid)
	if err != nil {
		return err
	}
	if err := s.store.SetIsBanned(uid, true); err != nil {
		return err
	}
	s.queue.Leave(uid)
	s.store.LogPlayerAction(uid, player.PlayerName, "is_banned", "false", "true", "admin")
	s.audit(adminUID, "ban", uid, nil, reason, nil)
	log.Printf("[ADMIN] Player %d banned by admin %d (%q)", uid, adminUID, reason)
	return nil
}

// Unban clears the ban flag.
func (s *Service) Unban(adminUID, uid int64, reason string) error {
	player, err := s.store.GetPlayer(uid)
	if err != nil {
		return err
	}
	if err := s.store.SetIsBanned(uid, false); err != nil {
		return err
	}
	s.store.LogPlayerAction(uid, player.PlayerName, "is_banned", "true", "false", "admin")
	s.audit(adminUID, "unban", uid, nil, reason, nil)
	return nil
}
