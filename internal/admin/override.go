package admin

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/lifecycle"
	"github.com/scevolution/ladder/internal/models"
	"github.com/scevolution/ladder/internal/rating"
	"github.com/scevolution/ladder/internal/store"
)

// Outcome is an administrative resolution.
type Outcome string

const (
	OutcomeP1Win      Outcome = "p1_win"
	OutcomeP2Win      Outcome = "p2_win"
	OutcomeDraw       Outcome = "draw"
	OutcomeInvalidate Outcome = "invalidate"
)

// ErrInvalidOutcome rejects an unknown outcome string.
var ErrInvalidOutcome = errors.New("admin: invalid outcome")

// ParseOutcome converts a wire string to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeP1Win, OutcomeP2Win, OutcomeDraw, OutcomeInvalidate:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
}

func (o Outcome) result() int {
	switch o {
	case OutcomeP1Win:
		return ladder.ResultP1Won
	case OutcomeP2Win:
		return ladder.ResultP2Won
	case OutcomeDraw:
		return ladder.ResultDraw
	default:
		return ladder.ResultAborted
	}
}

// QueueControl is the slice of the matchmaker the admin commands need.
type QueueControl interface {
	Leave(uid int64) bool
	Clear() []int64
}

// Resolution reports the before/after state of an override for the
// confirming presenter.
type Resolution struct {
	Match            models.Match `json:"match"`
	Player1MMRBefore int          `json:"player_1_mmr_before"`
	Player2MMRBefore int          `json:"player_2_mmr_before"`
	Player1MMRAfter  int          `json:"player_1_mmr_after"`
	Player2MMRAfter  int          `json:"player_2_mmr_after"`
}

// Service is the administrative override and command surface.
type Service struct {
	store     *store.Store
	rater     *rating.Engine
	lifecycle *lifecycle.Service
	queue     QueueControl
}

// NewService wires the override service. The rating engine must already
// exist; the service only references it, never builds one.
func NewService(st *store.Store, rater *rating.Engine, lc *lifecycle.Service, queue QueueControl) *Service {
	return &Service{store: st, rater: rater, lifecycle: lc, queue: queue}
}

// Resolve re-resolves a match, fresh or terminal. The final state depends
// only on the last outcome and the match's initial MMRs: applying the
// same outcome twice is a no-op, and any outcome sequence ends where the
// last outcome alone would.
func (s *Service) Resolve(matchID int64, outcome Outcome, adminUID int64, reason string) (Resolution, error) {
	m, err := s.store.GetMatch(matchID)
	if err != nil {
		return Resolution{}, err
	}

	before1, before2 := s.currentMMRs(m)

	fresh := !m.Player1Report.Valid && !m.Player2Report.Valid && !m.MatchResult.Valid
	if fresh && outcome != OutcomeInvalidate {
		// Fresh path: synthesize both reports and drive the normal
		// completion path, game stats included.
		if err := s.lifecycle.ResolveFresh(matchID, outcome.result()); err != nil {
			return Resolution{}, err
		}
	} else {
		if err := s.resolveTerminal(matchID, outcome); err != nil {
			return Resolution{}, err
		}
	}

	updated, err := s.store.GetMatch(matchID)
	if err != nil {
		return Resolution{}, err
	}
	after1, after2 := s.currentMMRs(updated)

	s.audit(adminUID, "resolve", 0, &matchID, reason, map[string]interface{}{
		"outcome":    string(outcome),
		"mmr_before": []int{before1, before2},
		"mmr_after":  []int{after1, after2},
	})
	s.lifecycle.PublishAdminResolution(updated, adminUID, reason)
	log.Printf("[ADMIN] Match %d resolved as %s by admin %d (%q)", matchID, outcome, adminUID, reason)

	return Resolution{
		Match:            updated,
		Player1MMRBefore: before1,
		Player2MMRBefore: before2,
		Player1MMRAfter:  after1,
		Player2MMRAfter:  after2,
	}, nil
}

// resolveTerminal rewrites a match that has reports or a result (or an
// invalidation of a fresh one). Current MMRs are always recomputed from
// the initial MMRs frozen on the row; win/loss/draw counters are never
// touched here.
func (s *Service) resolveTerminal(matchID int64, outcome Outcome) error {
	s.lifecycle.ForgetProcessed(matchID)
	return s.lifecycle.WithMatchLock(matchID, func() error {
		m, err := s.store.GetMatch(matchID)
		if err != nil {
			return err
		}

		if outcome == OutcomeInvalidate {
			// Restore both currents to the initial baselines. Idempotent
			// even when no prior change was applied.
			if err := s.setCurrentMMRs(m, m.Player1Mmr, m.Player2Mmr); err != nil {
				return err
			}
			if _, err := s.store.SetMatchResult(matchID, ladder.ResultAborted, 0); err != nil {
				return err
			}
			return nil
		}

		result := outcome.result()
		if _, err := s.store.UpdateMatchReport(matchID, 1, result); err != nil {
			return err
		}
		if _, err := s.store.UpdateMatchReport(matchID, 2, result); err != nil {
			return err
		}
		delta, err := s.rater.Delta(m.Player1Mmr, m.Player2Mmr, result)
		if err != nil {
			return err
		}
		if err := s.setCurrentMMRs(m, m.Player1Mmr+delta, m.Player2Mmr-delta); err != nil {
			return err
		}
		if _, err := s.store.SetMatchResult(matchID, result, delta); err != nil {
			return err
		}
		return nil
	})
}

func (s *Service) currentMMRs(m models.Match) (int, int) {
	p1, p2 := m.Player1Mmr, m.Player2Mmr
	if e, err := s.store.GetMMR(m.Player1UID, ladder.Race(m.Player1Race)); err == nil {
		p1 = e.MMR
	}
	if e, err := s.store.GetMMR(m.Player2UID, ladder.Race(m.Player2Race)); err == nil {
		p2 = e.MMR
	}
	return p1, p2
}

func (s *Service) setCurrentMMRs(m models.Match, p1, p2 int) error {
	// Entries may be missing when a match predates the rating rows
	// (snapshot edge); seed them first.
	s.store.EnsureMMR(m.Player1UID, ladder.Race(m.Player1Race))
	s.store.EnsureMMR(m.Player2UID, ladder.Race(m.Player2Race))
	if _, err := s.store.UpdateMMR(m.Player1UID, ladder.Race(m.Player1Race), p1, store.StatNone); err != nil {
		return err
	}
	if _, err := s.store.UpdateMMR(m.Player2UID, ladder.Race(m.Player2Race), p2, store.StatNone); err != nil {
		return err
	}
	return nil
}

func (s *Service) audit(adminUID int64, actionType string, targetUID int64, matchID *int64, reason string, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}
	action := models.AdminAction{
		AdminUID:   adminUID,
		ActionType: actionType,
		TargetUID:  targetUID,
		Reason:     reason,
		Details:    raw,
	}
	if matchID != nil {
		action.MatchID = sql.NullInt64{Int64: *matchID, Valid: true}
	}
	s.store.LogAdminAction(action)
}
