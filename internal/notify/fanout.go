// Package notify delivers lifecycle events to registered presenters.
// Presenters are transient frontends: each player has at most one active
// slot, re-registration replaces it, and a missing slot just drops the
// event. Callback failures never reach the caller.
package notify

import (
	"log"
	"sync"

	"github.com/scevolution/ladder/internal/models"
)

// EventKind names a fan-out event.
type EventKind string

const (
	EventMatchFound      EventKind = "match_found"
	EventConfirmed       EventKind = "confirmed"
	EventMatchComplete   EventKind = "match_complete"
	EventMatchConflict   EventKind = "match_conflict"
	EventMatchAbort      EventKind = "match_abort"
	EventAdminResolution EventKind = "admin_resolution"
	EventReminder        EventKind = "reminder"
)

// Payload is the structured record handed to every callback.
type Payload struct {
	Kind        EventKind    `json:"kind"`
	Match       models.Match `json:"match"`
	Player1MMR  int          `json:"player_1_mmr_current"`
	Player2MMR  int          `json:"player_2_mmr_current"`
	Reason      string       `json:"reason,omitempty"`
	AdminUID    int64        `json:"admin_uid,omitempty"`
	AdminReason string       `json:"admin_reason,omitempty"`
	TargetUID   int64        `json:"target_uid,omitempty"` // reminder recipient
}

// Callback receives events for one presenter or one match.
type Callback func(Payload)

// Publisher mirrors events somewhere else (the Redis bridge). Optional.
type Publisher interface {
	PublishEvent(p Payload)
}

// Fanout keeps the per-match and per-player callback registries.
type Fanout struct {
	mu       sync.RWMutex
	byMatch  map[int64][]Callback
	byPlayer map[int64]Callback
	bridge   Publisher
}

// New creates an empty registry. bridge may be nil.
func New(bridge Publisher) *Fanout {
	return &Fanout{
		byMatch:  make(map[int64][]Callback),
		byPlayer: make(map[int64]Callback),
		bridge:   bridge,
	}
}

// RegisterPresenter installs uid's presenter callback, replacing any
// previous one.
func (f *Fanout) RegisterPresenter(uid int64, cb Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byPlayer[uid] = cb
}

// UnregisterPresenter clears uid's presenter slot.
func (f *Fanout) UnregisterPresenter(uid int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byPlayer, uid)
}

// RegisterMatch appends a callback that receives every event for matchID.
func (f *Fanout) RegisterMatch(matchID int64, cb Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byMatch[matchID] = append(f.byMatch[matchID], cb)
}

// ReleaseMatch drops all callbacks for a finished match.
func (f *Fanout) ReleaseMatch(matchID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byMatch, matchID)
}

// Publish delivers the event to the match's callbacks in registration
// order, then to both players' presenters, then to the bridge.
func (f *Fanout) Publish(p Payload) {
	f.mu.RLock()
	matchCbs := make([]Callback, len(f.byMatch[p.Match.ID]))
	copy(matchCbs, f.byMatch[p.Match.ID])
	p1 := f.byPlayer[p.Match.Player1UID]
	p2 := f.byPlayer[p.Match.Player2UID]
	bridge := f.bridge
	f.mu.RUnlock()

	for _, cb := range matchCbs {
		invoke(cb, p)
	}
	if p1 != nil {
		invoke(p1, p)
	} else {
		log.Printf("[NOTIFY] No presenter for player %d, dropping %s", p.Match.Player1UID, p.Kind)
	}
	if p2 != nil {
		invoke(p2, p)
	} else {
		log.Printf("[NOTIFY] No presenter for player %d, dropping %s", p.Match.Player2UID, p.Kind)
	}
	if bridge != nil {
		bridge.PublishEvent(p)
	}
}

// NotifyPlayer delivers an event to a single player's presenter only
// (used for reminders).
func (f *Fanout) NotifyPlayer(uid int64, p Payload) {
	f.mu.RLock()
	cb := f.byPlayer[uid]
	bridge := f.bridge
	f.mu.RUnlock()
	if cb == nil {
		log.Printf("[NOTIFY] No presenter for player %d, dropping %s", uid, p.Kind)
	} else {
		invoke(cb, p)
	}
	if bridge != nil {
		bridge.PublishEvent(p)
	}
}

// invoke shields the core from a misbehaving presenter.
func invoke(cb Callback, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[NOTIFY] Presenter callback panicked on %s for match %d: %v", p.Kind, p.Match.ID, r)
		}
	}()
	cb(p)
}
