// Package matchmaking owns the asynchronous queue and the wave scheduler
// that pairs players across the two titles under elastic MMR windows.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/models"
	"github.com/scevolution/ladder/internal/store"
)

var (
	// ErrAlreadyQueued rejects a second queue entry for the same player.
	ErrAlreadyQueued = errors.New("matchmaking: already enqueued")
	// ErrInvalidSelection rejects a race/veto selection outside the rules.
	ErrInvalidSelection = errors.New("matchmaking: invalid selection")
	// ErrBanned rejects a banned player.
	ErrBanned = errors.New("matchmaking: player is banned")
	// ErrSetupIncomplete rejects a player who has not accepted the ToS or
	// finished the setup flow.
	ErrSetupIncomplete = errors.New("matchmaking: player setup incomplete")
	// ErrInSystem rejects a player who is in a live match.
	ErrInSystem = errors.New("matchmaking: player is in a live match")
)

// Entry is one player's ephemeral place in the queue.
type Entry struct {
	UID             int64
	Races           []ladder.Race
	Vetoes          []string
	MMRByRace       map[ladder.Race]int
	EnqueuedAt      time.Time
	WavesWaited     int
	PresenterHandle string
}

func (e *Entry) raceFor(title ladder.Title) ladder.Race {
	for _, r := range e.Races {
		if r.Title() == title {
			return r
		}
	}
	return ""
}

func (e *Entry) maxMMR() int {
	max := 0
	for _, mmr := range e.MMRByRace {
		if mmr > max {
			max = mmr
		}
	}
	return max
}

// MatchStarter receives each created match; the lifecycle service
// implements it.
type MatchStarter interface {
	BeginMatch(m models.Match)
}

// Matchmaker manages queue entries and runs the wave scheduler. Enter,
// Leave and wave execution all serialize on the queue lock.
type Matchmaker struct {
	store   *store.Store
	starter MatchStarter

	mu      sync.Mutex
	entries map[int64]*Entry

	rng *rand.Rand
}

// New creates a matchmaker over the hot store.
func New(st *store.Store, starter MatchStarter) *Matchmaker {
	return &Matchmaker{
		store:   st,
		starter: starter,
		entries: make(map[int64]*Entry),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enter validates and enqueues a player. MMRs for the selected races are
// snapshotted into the entry; the player's choices become their stored
// preferences.
func (m *Matchmaker) Enter(uid int64, races []ladder.Race, vetoes []string, presenterHandle string) error {
	if err := ladder.ValidateSelection(races); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	if err := ValidateVetoes(vetoes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	player, err := m.store.GetPlayer(uid)
	if err != nil {
		return err
	}
	if player.IsBanned {
		return ErrBanned
	}
	if !player.AcceptedTOS || !player.CompletedSetup {
		return ErrSetupIncomplete
	}
	if _, live := m.store.LiveMatchFor(uid); live {
		return ErrInSystem
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, queued := m.entries[uid]; queued {
		return ErrAlreadyQueued
	}

	mmrs := make(map[ladder.Race]int, len(races))
	raceStrs := make([]string, 0, len(races))
	for _, r := range races {
		mmrs[r] = m.store.EnsureMMR(uid, r).MMR
		raceStrs = append(raceStrs, string(r))
	}
	m.entries[uid] = &Entry{
		UID:             uid,
		Races:           races,
		Vetoes:          vetoes,
		MMRByRace:       mmrs,
		EnqueuedAt:      time.Now().UTC(),
		PresenterHandle: presenterHandle,
	}
	m.store.UpdatePreferences(uid, strings.Join(raceStrs, ","), strings.Join(vetoes, ","))
	log.Printf("[MATCHMAKER] Player %d entered queue (races=%v, vetoes=%d, queue=%d)", uid, races, len(vetoes), len(m.entries))
	return nil
}

// Leave removes a player's entry if present. Idempotent.
func (m *Matchmaker) Leave(uid int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[uid]; !ok {
		return false
	}
	delete(m.entries, uid)
	log.Printf("[MATCHMAKER] Player %d left queue (queue=%d)", uid, len(m.entries))
	return true
}

// IsQueued reports whether uid currently has a queue entry.
func (m *Matchmaker) IsQueued(uid int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[uid]
	return ok
}

// QueueSize returns the number of queued players.
func (m *Matchmaker) QueueSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// EntryFor returns a copy of uid's queue entry.
func (m *Matchmaker) EntryFor(uid int64) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[uid]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Clear empties the queue and returns the removed players' uids.
func (m *Matchmaker) Clear() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	uids := make([]int64, 0, len(m.entries))
	for uid := range m.entries {
		uids = append(uids, uid)
	}
	m.entries = make(map[int64]*Entry)
	log.Printf("[MATCHMAKER] Queue cleared (%d players removed)", len(uids))
	return uids
}

// StartWaveWorker runs a wave every period until ctx is cancelled. An
// in-flight wave finishes before shutdown proceeds.
func (m *Matchmaker) StartWaveWorker(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	log.Printf("[MATCHMAKER] Wave worker started (period %v)", period)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Wave worker stopped")
			return
		case <-ticker.C:
			m.Wave()
		}
	}
}

// Wave executes one pairing pass: runs the wave algorithm over the
// current entries, creates a match per pair, removes the paired players
// and ages everyone left.
func (m *Matchmaker) Wave() []models.Match {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) < 2 {
		for _, e := range m.entries {
			e.WavesWaited++
		}
		return nil
	}

	snapshot := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		snapshot = append(snapshot, e)
	}
	pairs := RunWave(snapshot)

	var created []models.Match
	for _, pair := range pairs {
		match, err := m.createMatch(pair)
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to create match for %d vs %d: %v", pair.BW.entry.UID, pair.SC2.entry.UID, err)
			continue
		}
		delete(m.entries, pair.BW.entry.UID)
		delete(m.entries, pair.SC2.entry.UID)
		created = append(created, match)
	}

	// Everyone still queued has waited one more wave.
	for _, e := range m.entries {
		e.WavesWaited++
	}

	if len(created) > 0 {
		log.Printf("[MATCHMAKER] Wave complete: %d matches created, %d players still queued", len(created), len(m.entries))
	}

	for _, match := range created {
		if m.starter != nil {
			m.starter.BeginMatch(match)
		}
	}
	return created
}

// createMatch turns one wave pair into a match row. The BW player is
// always player 1.
func (m *Matchmaker) createMatch(pair Pair) (models.Match, error) {
	bw, sc2 := pair.BW, pair.SC2

	mapName := PickMap(m.rng, bw.entry.Vetoes, sc2.entry.Vetoes)

	var countryA, countryB string
	if p, err := m.store.GetPlayer(bw.entry.UID); err == nil {
		countryA = p.Country
	}
	if p, err := m.store.GetPlayer(sc2.entry.UID); err == nil {
		countryB = p.Country
	}
	server := ServerFor(countryA, countryB)
	chatTag := ChatChannelTag(m.rng)

	match, err := m.store.CreateMatch(bw.entry.UID, bw.race, sc2.entry.UID, sc2.race, mapName, server, chatTag)
	if err != nil {
		return models.Match{}, err
	}
	log.Printf("[MATCHMAKER] Match %d created: %d (%s, %d MMR) vs %d (%s, %d MMR) on %s @ %s",
		match.ID, bw.entry.UID, bw.race, bw.mmr, sc2.entry.UID, sc2.race, sc2.mmr, mapName, server)
	return match, nil
}
