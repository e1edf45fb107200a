package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/scevolution/ladder/internal/models"
)

// Job is one durable write. Jobs for the same match id are applied in the
// order they were enqueued; the consumer never reorders.
type Job interface {
	// Kind names the job variant for logging and the dead-letter record.
	Kind() string
	// MatchID returns the match the job belongs to, or 0.
	MatchID() int64
	// Apply executes the write against the durable store.
	Apply(ctx context.Context, db *sqlx.DB) error
}

// Enqueuer accepts write jobs. The hot store only ever talks to this.
type Enqueuer interface {
	Enqueue(job Job)
}

// nopEnqueuer discards jobs; used by tests that only exercise the
// in-memory tables.
type nopEnqueuer struct{}

func (nopEnqueuer) Enqueue(Job) {}

// NopEnqueuer returns an Enqueuer that drops every job.
func NopEnqueuer() Enqueuer { return nopEnqueuer{} }

// UpsertPlayerJob writes the full player row.
type UpsertPlayerJob struct {
	Player models.Player `json:"player"`
}

func (j UpsertPlayerJob) Kind() string   { return "upsert_player" }
func (j UpsertPlayerJob) MatchID() int64 { return 0 }

func (j UpsertPlayerJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO players (discord_uid, player_name, alt1, alt2, battletag, country, region,
			accepted_tos, accepted_tos_date, completed_setup, completed_setup_date, activation_code,
			remaining_aborts, shield_battery_bug, is_banned, created_at, updated_at)
		VALUES (:discord_uid, :player_name, :alt1, :alt2, :battletag, :country, :region,
			:accepted_tos, :accepted_tos_date, :completed_setup, :completed_setup_date, :activation_code,
			:remaining_aborts, :shield_battery_bug, :is_banned, :created_at, :updated_at)
		ON CONFLICT (discord_uid) DO UPDATE SET
			player_name = EXCLUDED.player_name,
			alt1 = EXCLUDED.alt1,
			alt2 = EXCLUDED.alt2,
			battletag = EXCLUDED.battletag,
			country = EXCLUDED.country,
			region = EXCLUDED.region,
			accepted_tos = EXCLUDED.accepted_tos,
			accepted_tos_date = COALESCE(players.accepted_tos_date, EXCLUDED.accepted_tos_date),
			completed_setup = EXCLUDED.completed_setup,
			completed_setup_date = COALESCE(players.completed_setup_date, EXCLUDED.completed_setup_date),
			activation_code = EXCLUDED.activation_code,
			remaining_aborts = EXCLUDED.remaining_aborts,
			shield_battery_bug = EXCLUDED.shield_battery_bug,
			is_banned = EXCLUDED.is_banned,
			updated_at = EXCLUDED.updated_at
	`, j.Player)
	return err
}

// UpsertMMRJob writes one (player, race) rating row.
type UpsertMMRJob struct {
	Entry models.MMREntry `json:"entry"`
}

func (j UpsertMMRJob) Kind() string   { return "upsert_mmr" }
func (j UpsertMMRJob) MatchID() int64 { return 0 }

func (j UpsertMMRJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO mmrs_1v1 (discord_uid, race, mmr, games_played, games_won, games_lost, games_drawn, last_played)
		VALUES (:discord_uid, :race, :mmr, :games_played, :games_won, :games_lost, :games_drawn, :last_played)
		ON CONFLICT (discord_uid, race) DO UPDATE SET
			mmr = EXCLUDED.mmr,
			games_played = EXCLUDED.games_played,
			games_won = EXCLUDED.games_won,
			games_lost = EXCLUDED.games_lost,
			games_drawn = EXCLUDED.games_drawn,
			last_played = EXCLUDED.last_played
	`, j.Entry)
	return err
}

// UpsertPreferencesJob writes one preferences row.
type UpsertPreferencesJob struct {
	Prefs models.Preferences `json:"prefs"`
}

func (j UpsertPreferencesJob) Kind() string   { return "upsert_preferences" }
func (j UpsertPreferencesJob) MatchID() int64 { return 0 }

func (j UpsertPreferencesJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO preferences_1v1 (discord_uid, last_chosen_races, last_chosen_vetoes)
		VALUES (:discord_uid, :last_chosen_races, :last_chosen_vetoes)
		ON CONFLICT (discord_uid) DO UPDATE SET
			last_chosen_races = EXCLUDED.last_chosen_races,
			last_chosen_vetoes = EXCLUDED.last_chosen_vetoes
	`, j.Prefs)
	return err
}

// InsertMatchJob writes a freshly created match row.
type InsertMatchJob struct {
	Match models.Match `json:"match"`
}

func (j InsertMatchJob) Kind() string   { return "insert_match" }
func (j InsertMatchJob) MatchID() int64 { return j.Match.ID }

func (j InsertMatchJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO matches_1v1 (id, player_1_uid, player_1_race, player_2_uid, player_2_race,
			player_1_mmr, player_2_mmr, map_name, server, chat_channel_tag,
			player_1_report, player_2_report, match_result, mmr_change,
			player_1_replay_path, player_2_replay_path, player_1_replay_time, player_2_replay_time,
			created_at)
		VALUES (:id, :player_1_uid, :player_1_race, :player_2_uid, :player_2_race,
			:player_1_mmr, :player_2_mmr, :map_name, :server, :chat_channel_tag,
			:player_1_report, :player_2_report, :match_result, :mmr_change,
			:player_1_replay_path, :player_2_replay_path, :player_1_replay_time, :player_2_replay_time,
			:created_at)
	`, j.Match)
	return err
}

// UpdateMatchJob rewrites the mutable columns of a match row.
type UpdateMatchJob struct {
	Match models.Match `json:"match"`
}

func (j UpdateMatchJob) Kind() string   { return "update_match" }
func (j UpdateMatchJob) MatchID() int64 { return j.Match.ID }

func (j UpdateMatchJob) Apply(ctx context.Context, db *sqlx.DB) error {
	res, err := db.NamedExecContext(ctx, `
		UPDATE matches_1v1 SET
			player_1_report = :player_1_report,
			player_2_report = :player_2_report,
			match_result = :match_result,
			mmr_change = :mmr_change,
			player_1_replay_path = :player_1_replay_path,
			player_2_replay_path = :player_2_replay_path,
			player_1_replay_time = :player_1_replay_time,
			player_2_replay_time = :player_2_replay_time
		WHERE id = :id
	`, j.Match)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertReplayJob writes one replay metadata row.
type InsertReplayJob struct {
	Replay models.Replay `json:"replay"`
}

func (j InsertReplayJob) Kind() string   { return "insert_replay" }
func (j InsertReplayJob) MatchID() int64 { return 0 }

func (j InsertReplayJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO replays (replay_path, replay_hash, replay_date, player_1_name, player_2_name,
			player_1_race, player_2_race, result, player_1_handle, player_2_handle, observers,
			map_name, duration, game_privacy, game_speed, game_duration_setting, locked_alliances, uploaded_at)
		VALUES (:replay_path, :replay_hash, :replay_date, :player_1_name, :player_2_name,
			:player_1_race, :player_2_race, :result, :player_1_handle, :player_2_handle, :observers,
			:map_name, :duration, :game_privacy, :game_speed, :game_duration_setting, :locked_alliances, :uploaded_at)
		ON CONFLICT (replay_path) DO NOTHING
	`, j.Replay)
	return err
}

// InsertPlayerActionLogJob appends one player-setting audit row.
type InsertPlayerActionLogJob struct {
	Log models.PlayerActionLog `json:"log"`
}

func (j InsertPlayerActionLogJob) Kind() string   { return "insert_player_action_log" }
func (j InsertPlayerActionLogJob) MatchID() int64 { return 0 }

func (j InsertPlayerActionLogJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO player_action_logs (discord_uid, player_name, setting_name, old_value, new_value, changed_at, changed_by)
		VALUES (:discord_uid, :player_name, :setting_name, :old_value, :new_value, :changed_at, :changed_by)
	`, j.Log)
	return err
}

// InsertAdminActionJob appends one admin audit row.
type InsertAdminActionJob struct {
	Action models.AdminAction `json:"action"`
}

func (j InsertAdminActionJob) Kind() string   { return "insert_admin_action" }
func (j InsertAdminActionJob) MatchID() int64 { return j.Action.MatchID.Int64 }

func (j InsertAdminActionJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.NamedExecContext(ctx, `
		INSERT INTO admin_actions (admin_uid, action_type, target_uid, match_id, reason, details, at)
		VALUES (:admin_uid, :action_type, :target_uid, :match_id, :reason, :details, :at)
	`, j.Action)
	return err
}

// InsertCommandCallJob appends one command invocation row.
type InsertCommandCallJob struct {
	Call models.CommandCall `json:"call"`
}

func (j InsertCommandCallJob) Kind() string   { return "insert_command_call" }
func (j InsertCommandCallJob) MatchID() int64 { return 0 }

func (j InsertCommandCallJob) Apply(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO command_calls (discord_uid, command, at) VALUES ($1, $2, $3)`,
		j.Call.DiscordUID, j.Call.Command, j.Call.At)
	return err
}

// now is stubbed in tests.
var now = time.Now
