package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/scevolution/ladder/internal/models"
)

// LoadSnapshot fills the hot store from the durable store at boot. After
// this the SQL store is write-only until the next restart; every decision
// reads the in-memory tables.
func (s *Store) LoadSnapshot(db *sqlx.DB) error {
	var players []models.Player
	if err := db.Select(&players, `SELECT * FROM players`); err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	for _, p := range players {
		s.seedPlayer(p)
	}
	logSeedCount("players", len(players))

	var mmrs []models.MMREntry
	if err := db.Select(&mmrs, `SELECT * FROM mmrs_1v1`); err != nil {
		return fmt.Errorf("load mmrs: %w", err)
	}
	for _, e := range mmrs {
		s.seedMMR(e)
	}
	logSeedCount("mmr entries", len(mmrs))

	var prefs []models.Preferences
	if err := db.Select(&prefs, `SELECT * FROM preferences_1v1`); err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	for _, p := range prefs {
		s.seedPreferences(p)
	}
	logSeedCount("preference rows", len(prefs))

	var matches []models.Match
	if err := db.Select(&matches, `SELECT * FROM matches_1v1 ORDER BY id`); err != nil {
		return fmt.Errorf("load matches: %w", err)
	}
	for _, m := range matches {
		s.seedMatch(m)
	}
	logSeedCount("matches", len(matches))

	var replays []models.Replay
	if err := db.Select(&replays, `SELECT * FROM replays`); err != nil {
		return fmt.Errorf("load replays: %w", err)
	}
	for _, r := range replays {
		s.seedReplay(r)
	}
	logSeedCount("replays", len(replays))

	return nil
}
