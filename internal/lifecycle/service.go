// Package lifecycle drives every live match from creation to a terminal
// result: confirmation window, abort window, report collection and the
// completion/conflict/abort classification. A per-match lock serializes
// the transition from "both reports present" to "terminal result set" so
// exactly one completion handler runs per match.
package lifecycle

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/models"
	"github.com/scevolution/ladder/internal/notify"
	"github.com/scevolution/ladder/internal/ratelimit"
	"github.com/scevolution/ladder/internal/rating"
	"github.com/scevolution/ladder/internal/store"
)

var (
	// ErrTerminalMatch rejects reports against a finished match.
	ErrTerminalMatch = errors.New("lifecycle: match already has a result")
	// ErrNotParticipant rejects actions from players not in the match.
	ErrNotParticipant = errors.New("lifecycle: not a participant")
	// ErrInvalidReport rejects report values outside the wire enum.
	ErrInvalidReport = errors.New("lifecycle: invalid report value")
)

// Timings bundles the three lifecycle durations.
type Timings struct {
	Confirm  time.Duration
	Abort    time.Duration
	Reminder time.Duration
}

type liveMatch struct {
	confirmed     map[int64]bool
	confirmTimer  *time.Timer
	reminderTimer *time.Timer
	abortTimer    *time.Timer
}

// Service owns all live matches.
type Service struct {
	store   *store.Store
	rater   *rating.Engine
	fanout  *notify.Fanout
	limiter *ratelimit.Limiter
	timings Timings

	mu        sync.Mutex
	locks     map[int64]*sync.Mutex
	live      map[int64]*liveMatch
	processed map[int64]bool
}

// New wires the lifecycle service. limiter may be nil (reminders are then
// sent directly).
func New(st *store.Store, rater *rating.Engine, fanout *notify.Fanout, limiter *ratelimit.Limiter, timings Timings) *Service {
	return &Service{
		store:     st,
		rater:     rater,
		fanout:    fanout,
		limiter:   limiter,
		timings:   timings,
		locks:     make(map[int64]*sync.Mutex),
		live:      make(map[int64]*liveMatch),
		processed: make(map[int64]bool),
	}
}

// lockFor returns the per-match mutex, creating it lazily. Locks are
// removed once the match is terminal to bound memory.
func (s *Service) lockFor(matchID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[matchID] = l
	}
	return l
}

// WithMatchLock runs fn while holding the per-match lock. The override
// service uses it so re-resolutions serialize with live transitions.
func (s *Service) WithMatchLock(matchID int64, fn func() error) error {
	l := s.lockFor(matchID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// BeginMatch registers a fresh match, publishes match_found and starts
// the confirmation, reminder and abort timers.
func (s *Service) BeginMatch(m models.Match) {
	// Registration and timer creation share one critical section:
	// anything that finds lm through s.live sees its timers set.
	lm := &liveMatch{confirmed: make(map[int64]bool)}
	s.mu.Lock()
	s.live[m.ID] = lm
	lm.confirmTimer = time.AfterFunc(s.timings.Confirm, func() { s.expire(m.ID, "confirmation window expired") })
	lm.abortTimer = time.AfterFunc(s.timings.Abort, func() { s.expire(m.ID, "match timed out without a result") })
	if s.timings.Reminder > 0 {
		lm.reminderTimer = time.AfterFunc(s.timings.Reminder, func() { s.remind(m.ID) })
	}
	s.mu.Unlock()

	s.publish(notify.EventMatchFound, m, "", 0, "")
	log.Printf("[LIFECYCLE] Match %d started: confirm in %v, abort in %v", m.ID, s.timings.Confirm, s.timings.Abort)
}

// Confirm records one player's confirmation click. When both players
// have confirmed the confirmation timer stops and the match is in play.
func (s *Service) Confirm(matchID, uid int64) error {
	lock := s.lockFor(matchID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.store.GetMatch(matchID)
	if err != nil {
		return err
	}
	if m.Terminal() {
		return ErrTerminalMatch
	}
	if _, ok := m.Participant(uid); !ok {
		return fmt.Errorf("%w: player %d in match %d", ErrNotParticipant, uid, matchID)
	}

	// confirmed is written under s.mu so the reminder can read it without
	// the per-match lock.
	s.mu.Lock()
	lm := s.live[matchID]
	if lm == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: match %d", store.ErrNotFound, matchID)
	}
	lm.confirmed[uid] = true
	both := len(lm.confirmed) >= 2
	if both {
		if lm.confirmTimer != nil {
			lm.confirmTimer.Stop()
		}
		if lm.reminderTimer != nil {
			lm.reminderTimer.Stop()
		}
	}
	s.mu.Unlock()
	if !both {
		log.Printf("[LIFECYCLE] Match %d: player %d confirmed, waiting for opponent", matchID, uid)
		return nil
	}

	log.Printf("[LIFECYCLE] Match %d: both players confirmed, match in play", matchID)
	s.publish(notify.EventConfirmed, m, "", 0, "")
	return nil
}

// RecordReport accepts a player's result claim: 0 draw, 1 p1 won,
// 2 p2 won, -3 self-abort. When both reports are in, the match is
// classified and finalized under the per-match lock.
func (s *Service) RecordReport(matchID, uid int64, value int) error {
	if !ladder.ValidReport(value) {
		return fmt.Errorf("%w: %d", ErrInvalidReport, value)
	}

	lock := s.lockFor(matchID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.store.GetMatch(matchID)
	if err != nil {
		return err
	}
	if m.Terminal() {
		return ErrTerminalMatch
	}
	slot, ok := m.Participant(uid)
	if !ok {
		return fmt.Errorf("%w: player %d in match %d", ErrNotParticipant, uid, matchID)
	}

	m, err = s.store.UpdateMatchReport(matchID, slot, value)
	if err != nil {
		return err
	}

	// A self-abort ends the match on its own; the opponent's report stays
	// unset.
	if value == ladder.ReportSelfAbort {
		s.decrementAborts(uid)
		reason := fmt.Sprintf("%s aborted", s.playerName(uid))
		updated, err := s.store.SetMatchResult(matchID, ladder.ResultAborted, 0)
		if err != nil {
			return err
		}
		log.Printf("[LIFECYCLE] Match %d aborted: %s", matchID, reason)
		s.publish(notify.EventMatchAbort, updated, reason, 0, "")
		s.cleanup(matchID)
		return nil
	}

	if !m.Player1Report.Valid || !m.Player2Report.Valid {
		log.Printf("[LIFECYCLE] Match %d: report %d from player %d, waiting for opponent", matchID, value, uid)
		return nil
	}
	return s.classify(m)
}

// classify decides the terminal state once both reports are present.
// Caller holds the per-match lock and has verified the match is not
// already terminal.
func (s *Service) classify(m models.Match) error {
	p1 := int(m.Player1Report.Int64)
	p2 := int(m.Player2Report.Int64)

	switch {
	case p1 == p2 && (p1 == ladder.ReportDraw || p1 == ladder.ReportP1Won || p1 == ladder.ReportP2Won):
		return s.complete(m, p1)
	case p1 == ladder.ReportSelfAbort || p1 == ladder.ReportNoShow || p2 == ladder.ReportSelfAbort || p2 == ladder.ReportNoShow:
		reason := s.abortReason(m, p1, p2)
		updated, err := s.store.SetMatchResult(m.ID, ladder.ResultAborted, 0)
		if err != nil {
			return err
		}
		log.Printf("[LIFECYCLE] Match %d aborted: %s", m.ID, reason)
		s.publish(notify.EventMatchAbort, updated, reason, 0, "")
		s.cleanup(m.ID)
		return nil
	default:
		updated, err := s.store.SetMatchResult(m.ID, ladder.ResultConflict, 0)
		if err != nil {
			return err
		}
		log.Printf("[LIFECYCLE] Match %d conflict: p1 reported %d, p2 reported %d", m.ID, p1, p2)
		s.publish(notify.EventMatchConflict, updated, fmt.Sprintf("reports disagree: %d vs %d", p1, p2), 0, "")
		s.cleanup(m.ID)
		return nil
	}
}

// complete finalizes an agreed result: the delta comes from the MMRs
// frozen at match creation, never from the current ones.
func (s *Service) complete(m models.Match, result int) error {
	s.mu.Lock()
	already := s.processed[m.ID]
	if !already {
		s.processed[m.ID] = true
	}
	s.mu.Unlock()
	if already {
		log.Printf("[LIFECYCLE] Match %d already processed, skipping completion", m.ID)
		return nil
	}

	delta, err := s.rater.Delta(m.Player1Mmr, m.Player2Mmr, result)
	if err != nil {
		return err
	}

	p1Stat, p2Stat := store.StatDrawn, store.StatDrawn
	switch result {
	case ladder.ResultP1Won:
		p1Stat, p2Stat = store.StatWon, store.StatLost
	case ladder.ResultP2Won:
		p1Stat, p2Stat = store.StatLost, store.StatWon
	}
	if _, err := s.store.UpdateMMR(m.Player1UID, ladder.Race(m.Player1Race), m.Player1Mmr+delta, p1Stat); err != nil {
		return err
	}
	if _, err := s.store.UpdateMMR(m.Player2UID, ladder.Race(m.Player2Race), m.Player2Mmr-delta, p2Stat); err != nil {
		return err
	}

	updated, err := s.store.SetMatchResult(m.ID, result, delta)
	if err != nil {
		return err
	}
	log.Printf("[LIFECYCLE] Match %d complete: result=%d mmr_change=%+d", m.ID, result, delta)
	s.publish(notify.EventMatchComplete, updated, "", 0, "")
	s.cleanup(m.ID)
	return nil
}

// expire fires when a timer lapses before the match reached a terminal
// state: unconfirmed players are marked no-show, the match aborts, and
// nobody's abort allowance is touched.
func (s *Service) expire(matchID int64, fallbackReason string) {
	lock := s.lockFor(matchID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.store.GetMatch(matchID)
	if err != nil {
		log.Printf("[LIFECYCLE] Expiry for unknown match %d: %v", matchID, err)
		return
	}
	if m.Terminal() {
		return
	}

	s.mu.Lock()
	lm := s.live[matchID]
	s.mu.Unlock()

	noShow := ladder.ReportNoShow
	var p1Report, p2Report *int
	p1Confirmed := lm != nil && lm.confirmed[m.Player1UID]
	p2Confirmed := lm != nil && lm.confirmed[m.Player2UID]
	if !p1Confirmed && !m.Player1Report.Valid {
		p1Report = &noShow
	}
	if !p2Confirmed && !m.Player2Report.Valid {
		p2Report = &noShow
	}

	var reason string
	switch {
	case p1Report != nil && p2Report != nil:
		reason = "neither player confirmed"
	case p1Report != nil:
		reason = fmt.Sprintf("only %s did not confirm", s.playerName(m.Player1UID))
	case p2Report != nil:
		reason = fmt.Sprintf("only %s did not confirm", s.playerName(m.Player2UID))
	default:
		reason = fallbackReason
	}

	updated, err := s.store.RecordSystemAbort(matchID, p1Report, p2Report)
	if err != nil {
		log.Printf("[LIFECYCLE] Failed to abort match %d: %v", matchID, err)
		return
	}
	log.Printf("[LIFECYCLE] Match %d aborted by timer: %s", matchID, reason)
	s.publish(notify.EventMatchAbort, updated, reason, 0, "")
	s.cleanup(matchID)
}

// remind nudges players who have not confirmed yet. Low priority, so it
// rides the rate limiter.
func (s *Service) remind(matchID int64) {
	m, err := s.store.GetMatch(matchID)
	if err != nil || m.Terminal() {
		return
	}
	s.mu.Lock()
	lm := s.live[matchID]
	var pending []int64
	if lm != nil {
		for _, uid := range []int64{m.Player1UID, m.Player2UID} {
			if !lm.confirmed[uid] {
				pending = append(pending, uid)
			}
		}
	}
	s.mu.Unlock()
	for _, uid := range pending {
		uid := uid
		payload := notify.Payload{
			Kind:       notify.EventReminder,
			Match:      m,
			Reason:     "confirm your match",
			TargetUID:  uid,
			Player1MMR: m.Player1Mmr,
			Player2MMR: m.Player2Mmr,
		}
		send := func() { s.fanout.NotifyPlayer(uid, payload) }
		if s.limiter != nil {
			s.limiter.Submit(send)
		} else {
			send()
		}
	}
}

// ForgetProcessed removes a match from the already-processed set so an
// administrative re-resolution can run. Part of the override contract.
func (s *Service) ForgetProcessed(matchID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.processed, matchID)
}

// ResolveFresh drives the normal completion path with both reports
// synthesized to the given result. Used by the admin override when a
// match has no reports and no result yet.
func (s *Service) ResolveFresh(matchID int64, result int) error {
	lock := s.lockFor(matchID)
	lock.Lock()
	defer lock.Unlock()

	m, err := s.store.GetMatch(matchID)
	if err != nil {
		return err
	}
	if m.Terminal() {
		return ErrTerminalMatch
	}
	if _, err := s.store.UpdateMatchReport(matchID, 1, result); err != nil {
		return err
	}
	m, err = s.store.UpdateMatchReport(matchID, 2, result)
	if err != nil {
		return err
	}
	return s.classify(m)
}

// cleanup cancels timers, releases the presenter registrations and drops
// the per-match lock entry. Both players are free to queue again.
func (s *Service) cleanup(matchID int64) {
	s.mu.Lock()
	lm := s.live[matchID]
	delete(s.live, matchID)
	delete(s.locks, matchID)
	s.mu.Unlock()

	if lm != nil {
		if lm.confirmTimer != nil {
			lm.confirmTimer.Stop()
		}
		if lm.reminderTimer != nil {
			lm.reminderTimer.Stop()
		}
		if lm.abortTimer != nil {
			lm.abortTimer.Stop()
		}
	}
	s.fanout.ReleaseMatch(matchID)
}

// decrementAborts spends one of a player's abort allowance, floor zero.
func (s *Service) decrementAborts(uid int64) {
	p, err := s.store.GetPlayer(uid)
	if err != nil {
		log.Printf("[LIFECYCLE] Cannot decrement aborts for unknown player %d", uid)
		return
	}
	n := p.RemainingAborts - 1
	if n < 0 {
		n = 0
	}
	if _, err := s.store.UpdatePlayer(uid, store.PlayerPatch{RemainingAborts: &n}); err != nil {
		log.Printf("[LIFECYCLE] Failed to update aborts for player %d: %v", uid, err)
	}
}

func (s *Service) playerName(uid int64) string {
	if p, err := s.store.GetPlayer(uid); err == nil && p.PlayerName != "" {
		return p.PlayerName
	}
	return fmt.Sprintf("player %d", uid)
}

// publish assembles the event payload with current MMRs alongside the
// frozen initial ones on the match record.
func (s *Service) publish(kind notify.EventKind, m models.Match, reason string, adminUID int64, adminReason string) {
	p1 := m.Player1Mmr
	if e, err := s.store.GetMMR(m.Player1UID, ladder.Race(m.Player1Race)); err == nil {
		p1 = e.MMR
	}
	p2 := m.Player2Mmr
	if e, err := s.store.GetMMR(m.Player2UID, ladder.Race(m.Player2Race)); err == nil {
		p2 = e.MMR
	}
	s.fanout.Publish(notify.Payload{
		Kind:        kind,
		Match:       m,
		Player1MMR:  p1,
		Player2MMR:  p2,
		Reason:      reason,
		AdminUID:    adminUID,
		AdminReason: adminReason,
	})
}

// PublishAdminResolution lets the override service reuse the payload
// assembly above for its own event.
func (s *Service) PublishAdminResolution(m models.Match, adminUID int64, reason string) {
	s.publish(notify.EventAdminResolution, m, "", adminUID, reason)
}

// abortReason names the player whose report sank the match.
func (s *Service) abortReason(m models.Match, p1, p2 int) string {
	switch {
	case p1 == ladder.ReportSelfAbort:
		return fmt.Sprintf("%s aborted", s.playerName(m.Player1UID))
	case p2 == ladder.ReportSelfAbort:
		return fmt.Sprintf("%s aborted", s.playerName(m.Player2UID))
	case p1 == ladder.ReportNoShow && p2 == ladder.ReportNoShow:
		return "neither player confirmed"
	case p1 == ladder.ReportNoShow:
		return fmt.Sprintf("only %s did not confirm", s.playerName(m.Player1UID))
	default:
		return fmt.Sprintf("only %s did not confirm", s.playerName(m.Player2UID))
	}
}
