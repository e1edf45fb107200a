// Package store holds the authoritative in-memory state of the ladder:
// players, per-race MMRs, matches, preferences and replay metadata. Every
// mutation goes through a typed method here, updates the hot tables first
// and then enqueues a durable write job. Nothing in the rest of the
// service reads the SQL store to make a decision.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/models"
)

// DefaultMMR seeds a fresh (player, race) rating entry.
const DefaultMMR = 1500

// DefaultAborts is the abort allowance for a new player.
const DefaultAborts = 3

var (
	// ErrNotFound signals a lookup for a row that must pre-exist.
	ErrNotFound = errors.New("store: not found")
	// ErrSamePlayer signals a match creation with an identical player pair.
	ErrSamePlayer = errors.New("store: match players must differ")
)

type mmrKey struct {
	uid  int64
	race ladder.Race
}

// Store is the hot store. Mutations are serialized per table; reads take
// the shared side of the table lock and return copies.
type Store struct {
	playersMu sync.RWMutex
	players   map[int64]*models.Player

	mmrsMu sync.RWMutex
	mmrs   map[mmrKey]*models.MMREntry

	prefsMu sync.RWMutex
	prefs   map[int64]*models.Preferences

	matchesMu   sync.RWMutex
	matches     map[int64]*models.Match
	nextMatchID int64

	replaysMu sync.RWMutex
	replays   map[string]*models.Replay

	writes        Enqueuer
	defaultAborts int
}

// New creates an empty hot store backed by the given write queue.
func New(writes Enqueuer) *Store {
	if writes == nil {
		writes = NopEnqueuer()
	}
	return &Store{
		players:       make(map[int64]*models.Player),
		mmrs:          make(map[mmrKey]*models.MMREntry),
		prefs:         make(map[int64]*models.Preferences),
		matches:       make(map[int64]*models.Match),
		replays:       make(map[string]*models.Replay),
		nextMatchID:   1,
		writes:        writes,
		defaultAborts: DefaultAborts,
	}
}

// SetDefaultAborts overrides the abort allowance new players start with.
func (s *Store) SetDefaultAborts(n int) {
	if n >= 0 {
		s.defaultAborts = n
	}
}

// GetPlayer returns a copy of the player row.
func (s *Store) GetPlayer(uid int64) (models.Player, error) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	p, ok := s.players[uid]
	if !ok {
		return models.Player{}, fmt.Errorf("%w: player %d", ErrNotFound, uid)
	}
	return *p, nil
}

// EnsurePlayer returns the player row for uid, creating a minimal record
// on first contact. Idempotent.
func (s *Store) EnsurePlayer(uid int64) models.Player {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	if p, ok := s.players[uid]; ok {
		return *p
	}
	nowTS := now().UTC()
	p := &models.Player{
		DiscordUID:      uid,
		RemainingAborts: s.defaultAborts,
		CreatedAt:       nowTS,
		UpdatedAt:       nowTS,
	}
	s.players[uid] = p
	s.writes.Enqueue(UpsertPlayerJob{Player: *p})
	return *p
}

// PlayerPatch carries optional field updates for UpdatePlayer. Nil fields
// are left untouched.
type PlayerPatch struct {
	PlayerName      *string
	Alt1            *string
	Alt2            *string
	Battletag       *string
	Country         *string
	Region          *string
	AcceptedTOS     *bool
	CompletedSetup  *bool
	ActivationCode  *string
	RemainingAborts *int
}

// UpdatePlayer applies a field patch to an existing player.
func (s *Store) UpdatePlayer(uid int64, patch PlayerPatch) (models.Player, error) {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	p, ok := s.players[uid]
	if !ok {
		return models.Player{}, fmt.Errorf("%w: player %d", ErrNotFound, uid)
	}
	nowTS := now().UTC()
	if patch.PlayerName != nil {
		p.PlayerName = *patch.PlayerName
	}
	if patch.Alt1 != nil {
		p.Alt1 = sql.NullString{String: *patch.Alt1, Valid: *patch.Alt1 != ""}
	}
	if patch.Alt2 != nil {
		p.Alt2 = sql.NullString{String: *patch.Alt2, Valid: *patch.Alt2 != ""}
	}
	if patch.Battletag != nil {
		p.Battletag = *patch.Battletag
	}
	if patch.Country != nil {
		p.Country = *patch.Country
	}
	if patch.Region != nil {
		p.Region = *patch.Region
	}
	if patch.AcceptedTOS != nil {
		p.AcceptedTOS = *patch.AcceptedTOS
		if *patch.AcceptedTOS && !p.AcceptedTOSDate.Valid {
			p.AcceptedTOSDate = sql.NullTime{Time: nowTS, Valid: true}
		}
	}
	if patch.CompletedSetup != nil {
		p.CompletedSetup = *patch.CompletedSetup
		if *patch.CompletedSetup && !p.CompletedSetupDate.Valid {
			p.CompletedSetupDate = sql.NullTime{Time: nowTS, Valid: true}
		}
	}
	if patch.ActivationCode != nil {
		p.ActivationCode = sql.NullString{String: *patch.ActivationCode, Valid: *patch.ActivationCode != ""}
	}
	if patch.RemainingAborts != nil {
		n := *patch.RemainingAborts
		if n < 0 {
			n = 0
		}
		p.RemainingAborts = n
	}
	p.UpdatedAt = nowTS
	s.writes.Enqueue(UpsertPlayerJob{Player: *p})
	return *p, nil
}

// SetShieldBatteryBugAck records the shield battery bug acknowledgement.
func (s *Store) SetShieldBatteryBugAck(uid int64, ack bool) error {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	p, ok := s.players[uid]
	if !ok {
		return fmt.Errorf("%w: player %d", ErrNotFound, uid)
	}
	p.ShieldBatteryBug = ack
	p.UpdatedAt = now().UTC()
	s.writes.Enqueue(UpsertPlayerJob{Player: *p})
	return nil
}

// SetIsBanned flips the ban flag on an existing player.
func (s *Store) SetIsBanned(uid int64, banned bool) error {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	p, ok := s.players[uid]
	if !ok {
		return fmt.Errorf("%w: player %d", ErrNotFound, uid)
	}
	p.IsBanned = banned
	p.UpdatedAt = now().UTC()
	s.writes.Enqueue(UpsertPlayerJob{Player: *p})
	return nil
}

// GetMMR returns a copy of the rating entry for (uid, race).
func (s *Store) GetMMR(uid int64, race ladder.Race) (models.MMREntry, error) {
	s.mmrsMu.RLock()
	defer s.mmrsMu.RUnlock()
	e, ok := s.mmrs[mmrKey{uid, race}]
	if !ok {
		return models.MMREntry{}, fmt.Errorf("%w: mmr %d/%s", ErrNotFound, uid, race)
	}
	return *e, nil
}

// EnsureMMR returns the rating entry for (uid, race), seeding a fresh one
// at the default MMR when missing.
func (s *Store) EnsureMMR(uid int64, race ladder.Race) models.MMREntry {
	s.mmrsMu.Lock()
	defer s.mmrsMu.Unlock()
	key := mmrKey{uid, race}
	if e, ok := s.mmrs[key]; ok {
		return *e
	}
	e := &models.MMREntry{DiscordUID: uid, Race: string(race), MMR: DefaultMMR}
	s.mmrs[key] = e
	s.writes.Enqueue(UpsertMMRJob{Entry: *e})
	return *e
}

// GameStat names the win/loss/draw counter touched by a game.
type GameStat int

const (
	StatNone GameStat = iota
	StatWon
	StatLost
	StatDrawn
)

// UpdateMMR sets the current MMR for (uid, race) and optionally counts a
// game. StatNone leaves games_played and W/L/D untouched, which is what
// the admin paths rely on.
func (s *Store) UpdateMMR(uid int64, race ladder.Race, newMMR int, stat GameStat) (models.MMREntry, error) {
	s.mmrsMu.Lock()
	defer s.mmrsMu.Unlock()
	e, ok := s.mmrs[mmrKey{uid, race}]
	if !ok {
		return models.MMREntry{}, fmt.Errorf("%w: mmr %d/%s", ErrNotFound, uid, race)
	}
	e.MMR = newMMR
	switch stat {
	case StatWon:
		e.GamesPlayed++
		e.GamesWon++
		e.LastPlayed = now().UTC()
	case StatLost:
		e.GamesPlayed++
		e.GamesLost++
		e.LastPlayed = now().UTC()
	case StatDrawn:
		e.GamesPlayed++
		e.GamesDrawn++
		e.LastPlayed = now().UTC()
	}
	s.writes.Enqueue(UpsertMMRJob{Entry: *e})
	return *e, nil
}

// MMRsForPlayer returns copies of every rating entry for uid.
func (s *Store) MMRsForPlayer(uid int64) []models.MMREntry {
	s.mmrsMu.RLock()
	defer s.mmrsMu.RUnlock()
	var out []models.MMREntry
	for key, e := range s.mmrs {
		if key.uid == uid {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Race < out[j].Race })
	return out
}

// AllMMRs returns a copy of every rating entry, ordered by MMR descending.
func (s *Store) AllMMRs() []models.MMREntry {
	s.mmrsMu.RLock()
	defer s.mmrsMu.RUnlock()
	out := make([]models.MMREntry, 0, len(s.mmrs))
	for _, e := range s.mmrs {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MMR > out[j].MMR })
	return out
}

// GetPreferences returns a copy of the stored queue preferences for uid.
func (s *Store) GetPreferences(uid int64) (models.Preferences, error) {
	s.prefsMu.RLock()
	defer s.prefsMu.RUnlock()
	p, ok := s.prefs[uid]
	if !ok {
		return models.Preferences{}, fmt.Errorf("%w: preferences %d", ErrNotFound, uid)
	}
	return *p, nil
}

// UpdatePreferences stores the last chosen races and vetoes for uid.
func (s *Store) UpdatePreferences(uid int64, races, vetoes string) models.Preferences {
	s.prefsMu.Lock()
	defer s.prefsMu.Unlock()
	p, ok := s.prefs[uid]
	if !ok {
		p = &models.Preferences{DiscordUID: uid}
		s.prefs[uid] = p
	}
	p.LastChosenRaces = races
	p.LastChosenVetos = vetoes
	s.writes.Enqueue(UpsertPreferencesJob{Prefs: *p})
	return *p
}

// GetMatch returns a copy of the match row.
func (s *Store) GetMatch(id int64) (models.Match, error) {
	s.matchesMu.RLock()
	defer s.matchesMu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	return *m, nil
}

// CreateMatch inserts a match and freezes both players' current MMRs into
// it. Those frozen values are the baseline for every later rating
// computation on the match, including admin re-resolution.
func (s *Store) CreateMatch(p1UID int64, p1Race ladder.Race, p2UID int64, p2Race ladder.Race, mapName, server, chatTag string) (models.Match, error) {
	if p1UID == p2UID {
		return models.Match{}, fmt.Errorf("%w: %d", ErrSamePlayer, p1UID)
	}
	p1Entry := s.EnsureMMR(p1UID, p1Race)
	p2Entry := s.EnsureMMR(p2UID, p2Race)

	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m := &models.Match{
		ID:             s.nextMatchID,
		Player1UID:     p1UID,
		Player1Race:    string(p1Race),
		Player2UID:     p2UID,
		Player2Race:    string(p2Race),
		Player1Mmr:     p1Entry.MMR,
		Player2Mmr:     p2Entry.MMR,
		MapName:        mapName,
		Server:         server,
		ChatChannelTag: chatTag,
		CreatedAt:      now().UTC(),
	}
	s.nextMatchID++
	s.matches[m.ID] = m
	s.writes.Enqueue(InsertMatchJob{Match: *m})
	return *m, nil
}

// UpdateMatchReport writes one player's report. which is 1 or 2.
func (s *Store) UpdateMatchReport(id int64, which int, value int) (models.Match, error) {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	switch which {
	case 1:
		m.Player1Report = sql.NullInt64{Int64: int64(value), Valid: true}
	case 2:
		m.Player2Report = sql.NullInt64{Int64: int64(value), Valid: true}
	default:
		return models.Match{}, fmt.Errorf("store: invalid player slot %d", which)
	}
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return *m, nil
}

// ClearMatchReports resets both report fields; only the admin override
// terminal path uses this before re-writing them.
func (s *Store) ClearMatchReports(id int64) error {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	m.Player1Report = sql.NullInt64{}
	m.Player2Report = sql.NullInt64{}
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return nil
}

// SetMatchResult writes the terminal result and the signed mmr change.
func (s *Store) SetMatchResult(id int64, result int, mmrChange int) (models.Match, error) {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	m.MatchResult = sql.NullInt64{Int64: int64(result), Valid: true}
	m.MmrChange = mmrChange
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return *m, nil
}

// UpdateMatchMMRChange rewrites mmr_change only.
func (s *Store) UpdateMatchMMRChange(id int64, change int) error {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	m.MmrChange = change
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return nil
}

// SetMatchReplay records an uploaded replay path for one side of a match.
func (s *Store) SetMatchReplay(id int64, which int, path string) (models.Match, error) {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	ts := sql.NullTime{Time: now().UTC(), Valid: true}
	switch which {
	case 1:
		m.Player1Replay = sql.NullString{String: path, Valid: true}
		m.Player1ReplayAt = ts
	case 2:
		m.Player2Replay = sql.NullString{String: path, Valid: true}
		m.Player2ReplayAt = ts
	default:
		return models.Match{}, fmt.Errorf("store: invalid player slot %d", which)
	}
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return *m, nil
}

// RecordSystemAbort marks a match aborted by the system. Reports are only
// written for the slots passed non-nil (unconfirmed players get the
// no-show code; confirmed players keep an unset report).
func (s *Store) RecordSystemAbort(id int64, p1Report, p2Report *int) (models.Match, error) {
	s.matchesMu.Lock()
	defer s.matchesMu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return models.Match{}, fmt.Errorf("%w: match %d", ErrNotFound, id)
	}
	if p1Report != nil {
		m.Player1Report = sql.NullInt64{Int64: int64(*p1Report), Valid: true}
	}
	if p2Report != nil {
		m.Player2Report = sql.NullInt64{Int64: int64(*p2Report), Valid: true}
	}
	m.MatchResult = sql.NullInt64{Int64: ladder.ResultAborted, Valid: true}
	m.MmrChange = 0
	s.writes.Enqueue(UpdateMatchJob{Match: *m})
	return *m, nil
}

// LiveMatchFor returns the non-terminal match uid participates in, if any.
func (s *Store) LiveMatchFor(uid int64) (models.Match, bool) {
	s.matchesMu.RLock()
	defer s.matchesMu.RUnlock()
	for _, m := range s.matches {
		if m.Terminal() {
			continue
		}
		if m.Player1UID == uid || m.Player2UID == uid {
			return *m, true
		}
	}
	return models.Match{}, false
}

// MatchesFor returns copies of all matches uid has played, newest first.
func (s *Store) MatchesFor(uid int64) []models.Match {
	s.matchesMu.RLock()
	defer s.matchesMu.RUnlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.Player1UID == uid || m.Player2UID == uid {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// InsertReplay stores a replay artifact's metadata, keyed by path.
func (s *Store) InsertReplay(rec models.Replay) models.Replay {
	s.replaysMu.Lock()
	defer s.replaysMu.Unlock()
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = now().UTC()
	}
	cp := rec
	s.replays[rec.ReplayPath] = &cp
	s.writes.Enqueue(InsertReplayJob{Replay: rec})
	return rec
}

// GetReplay returns a copy of the replay metadata at path.
func (s *Store) GetReplay(path string) (models.Replay, error) {
	s.replaysMu.RLock()
	defer s.replaysMu.RUnlock()
	r, ok := s.replays[path]
	if !ok {
		return models.Replay{}, fmt.Errorf("%w: replay %s", ErrNotFound, path)
	}
	return *r, nil
}

// LogPlayerAction appends a player-setting change to the audit trail.
// Audit rows live only in the durable store.
func (s *Store) LogPlayerAction(uid int64, playerName, setting, oldValue, newValue, changedBy string) {
	s.writes.Enqueue(InsertPlayerActionLogJob{Log: models.PlayerActionLog{
		DiscordUID:  uid,
		PlayerName:  playerName,
		SettingName: setting,
		OldValue:    oldValue,
		NewValue:    newValue,
		ChangedAt:   now().UTC(),
		ChangedBy:   changedBy,
	}})
}

// LogAdminAction appends an admin command to the audit trail.
func (s *Store) LogAdminAction(action models.AdminAction) {
	if action.At.IsZero() {
		action.At = now().UTC()
	}
	if len(action.Details) == 0 {
		action.Details = []byte("{}")
	}
	s.writes.Enqueue(InsertAdminActionJob{Action: action})
}

// LogCommandCall appends a command invocation record.
func (s *Store) LogCommandCall(uid int64, command string) {
	s.writes.Enqueue(InsertCommandCallJob{Call: models.CommandCall{
		DiscordUID: uid,
		Command:    command,
		At:         now().UTC(),
	}})
}

// Counts returns table sizes for the health endpoint.
func (s *Store) Counts() map[string]int {
	s.playersMu.RLock()
	players := len(s.players)
	s.playersMu.RUnlock()
	s.mmrsMu.RLock()
	mmrs := len(s.mmrs)
	s.mmrsMu.RUnlock()
	s.matchesMu.RLock()
	matches := len(s.matches)
	s.matchesMu.RUnlock()
	s.replaysMu.RLock()
	replays := len(s.replays)
	s.replaysMu.RUnlock()
	return map[string]int{"players": players, "mmrs": mmrs, "matches": matches, "replays": replays}
}

// seed helpers used by the snapshot loader; they bypass the write queue
// because the rows came from the durable store in the first place.

func (s *Store) seedPlayer(p models.Player) {
	s.playersMu.Lock()
	cp := p
	s.players[p.DiscordUID] = &cp
	s.playersMu.Unlock()
}

func (s *Store) seedMMR(e models.MMREntry) {
	s.mmrsMu.Lock()
	cp := e
	s.mmrs[mmrKey{e.DiscordUID, ladder.Race(e.Race)}] = &cp
	s.mmrsMu.Unlock()
}

func (s *Store) seedPreferences(p models.Preferences) {
	s.prefsMu.Lock()
	cp := p
	s.prefs[p.DiscordUID] = &cp
	s.prefsMu.Unlock()
}

func (s *Store) seedMatch(m models.Match) {
	s.matchesMu.Lock()
	cp := m
	s.matches[m.ID] = &cp
	if m.ID >= s.nextMatchID {
		s.nextMatchID = m.ID + 1
	}
	s.matchesMu.Unlock()
}

func (s *Store) seedReplay(r models.Replay) {
	s.replaysMu.Lock()
	cp := r
	s.replays[r.ReplayPath] = &cp
	s.replaysMu.Unlock()
}

func logSeedCount(table string, n int) {
	log.Printf("[STORE] Loaded %d %s from durable store", n, table)
}
