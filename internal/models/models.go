package models

import (
	"database/sql"
	"time"
)

// Player represents a ladder participant. Rows are created on first
// interaction and never destroyed.
type Player struct {
	DiscordUID         int64          `db:"discord_uid" json:"discord_uid"`
	PlayerName         string         `db:"player_name" json:"player_name"`
	Alt1               sql.NullString `db:"alt1" json:"alt1,omitempty"`
	Alt2               sql.NullString `db:"alt2" json:"alt2,omitempty"`
	Battletag          string         `db:"battletag" json:"battletag"`
	Country            string         `db:"country" json:"country"`
	Region             string         `db:"region" json:"region"`
	AcceptedTOS        bool           `db:"accepted_tos" json:"accepted_tos"`
	AcceptedTOSDate    sql.NullTime   `db:"accepted_tos_date" json:"accepted_tos_date,omitempty"`
	CompletedSetup     bool           `db:"completed_setup" json:"completed_setup"`
	CompletedSetupDate sql.NullTime   `db:"completed_setup_date" json:"completed_setup_date,omitempty"`
	ActivationCode     sql.NullString `db:"activation_code" json:"activation_code,omitempty"`
	RemainingAborts    int            `db:"remaining_aborts" json:"remaining_aborts"`
	ShieldBatteryBug   bool           `db:"shield_battery_bug" json:"shield_battery_bug"`
	IsBanned           bool           `db:"is_banned" json:"is_banned"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// MMREntry is one player's rating for one race.
type MMREntry struct {
	DiscordUID  int64     `db:"discord_uid" json:"discord_uid"`
	Race        string    `db:"race" json:"race"`
	MMR         int       `db:"mmr" json:"mmr"`
	GamesPlayed int       `db:"games_played" json:"games_played"`
	GamesWon    int       `db:"games_won" json:"games_won"`
	GamesLost   int       `db:"games_lost" json:"games_lost"`
	GamesDrawn  int       `db:"games_drawn" json:"games_drawn"`
	LastPlayed  time.Time `db:"last_played" json:"last_played"`
}

// Preferences stores a player's last queue choices.
type Preferences struct {
	DiscordUID      int64  `db:"discord_uid" json:"discord_uid"`
	LastChosenRaces string `db:"last_chosen_races" json:"last_chosen_races"`   // comma-separated
	LastChosenVetos string `db:"last_chosen_vetoes" json:"last_chosen_vetoes"` // comma-separated
}

// Match is one 1v1 pairing. Player1Mmr/Player2Mmr are frozen at creation
// and are the sole baseline for all rating arithmetic on the match.
type Match struct {
	ID              int64          `db:"id" json:"id"`
	Player1UID      int64          `db:"player_1_uid" json:"player_1_uid"`
	Player1Race     string         `db:"player_1_race" json:"player_1_race"`
	Player2UID      int64          `db:"player_2_uid" json:"player_2_uid"`
	Player2Race     string         `db:"player_2_race" json:"player_2_race"`
	Player1Mmr      int            `db:"player_1_mmr" json:"player_1_mmr"`
	Player2Mmr      int            `db:"player_2_mmr" json:"player_2_mmr"`
	MapName         string         `db:"map_name" json:"map_name"`
	Server          string         `db:"server" json:"server"`
	ChatChannelTag  string         `db:"chat_channel_tag" json:"chat_channel_tag"`
	Player1Report   sql.NullInt64  `db:"player_1_report" json:"player_1_report,omitempty"`
	Player2Report   sql.NullInt64  `db:"player_2_report" json:"player_2_report,omitempty"`
	MatchResult     sql.NullInt64  `db:"match_result" json:"match_result,omitempty"`
	MmrChange       int            `db:"mmr_change" json:"mmr_change"`
	Player1Replay   sql.NullString `db:"player_1_replay_path" json:"player_1_replay_path,omitempty"`
	Player2Replay   sql.NullString `db:"player_2_replay_path" json:"player_2_replay_path,omitempty"`
	Player1ReplayAt sql.NullTime   `db:"player_1_replay_time" json:"player_1_replay_time,omitempty"`
	Player2ReplayAt sql.NullTime   `db:"player_2_replay_time" json:"player_2_replay_time,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// Terminal reports whether the match has reached a final result.
// There is deliberately no status column; this is always derived.
func (m *Match) Terminal() bool {
	return m.MatchResult.Valid
}

// Participant reports whether uid is one of the two players, and which
// side (1 or 2) they occupy.
func (m *Match) Participant(uid int64) (int, bool) {
	switch uid {
	case m.Player1UID:
		return 1, true
	case m.Player2UID:
		return 2, true
	}
	return 0, false
}

// Replay holds metadata for one uploaded replay artifact.
type Replay struct {
	ID                  int64     `db:"id" json:"id"`
	ReplayPath          string    `db:"replay_path" json:"replay_path"`
	ReplayHash          string    `db:"replay_hash" json:"replay_hash"`
	ReplayDate          time.Time `db:"replay_date" json:"replay_date"`
	Player1Name         string    `db:"player_1_name" json:"player_1_name"`
	Player2Name         string    `db:"player_2_name" json:"player_2_name"`
	Player1Race         string    `db:"player_1_race" json:"player_1_race"`
	Player2Race         string    `db:"player_2_race" json:"player_2_race"`
	Result              string    `db:"result" json:"result"`
	Player1Handle       string    `db:"player_1_handle" json:"player_1_handle"`
	Player2Handle       string    `db:"player_2_handle" json:"player_2_handle"`
	Observers           string    `db:"observers" json:"observers"`
	MapName             string    `db:"map_name" json:"map_name"`
	Duration            int       `db:"duration" json:"duration"`
	GamePrivacy         string    `db:"game_privacy" json:"game_privacy"`
	GameSpeed           string    `db:"game_speed" json:"game_speed"`
	GameDurationSetting string    `db:"game_duration_setting" json:"game_duration_setting"`
	LockedAlliances     string    `db:"locked_alliances" json:"locked_alliances"`
	UploadedAt          time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// PlayerActionLog is an append-only record of a player-setting change.
type PlayerActionLog struct {
	ID          int64     `db:"id" json:"id"`
	DiscordUID  int64     `db:"discord_uid" json:"discord_uid"`
	PlayerName  string    `db:"player_name" json:"player_name"`
	SettingName string    `db:"setting_name" json:"setting_name"`
	OldValue    string    `db:"old_value" json:"old_value"`
	NewValue    string    `db:"new_value" json:"new_value"`
	ChangedAt   time.Time `db:"changed_at" json:"changed_at"`
	ChangedBy   string    `db:"changed_by" json:"changed_by"` // user | admin | system
}

// AdminAction is an append-only audit record of an administrative command.
type AdminAction struct {
	ID         int64         `db:"id" json:"id"`
	AdminUID   int64         `db:"admin_uid" json:"admin_uid"`
	ActionType string        `db:"action_type" json:"action_type"`
	TargetUID  int64         `db:"target_uid" json:"target_uid"`
	MatchID    sql.NullInt64 `db:"match_id" json:"match_id,omitempty"`
	Reason     string        `db:"reason" json:"reason"`
	Details    []byte        `db:"details" json:"details,omitempty"` // JSON
	At         time.Time     `db:"at" json:"at"`
}

// CommandCall is an append-only record of a command invocation.
type CommandCall struct {
	ID         int64     `db:"id" json:"id"`
	DiscordUID int64     `db:"discord_uid" json:"discord_uid"`
	Command    string    `db:"command" json:"command"`
	At         time.Time `db:"at" json:"at"`
}

// AdminAccount is a presenter-side administrator credential.
type AdminAccount struct {
	AdminUID    int64     `db:"admin_uid" json:"admin_uid"`
	DisplayName string    `db:"display_name" json:"display_name"`
	TokenHash   string    `db:"token_hash" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
