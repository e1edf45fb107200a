// Package replay verifies uploaded replay metadata against a match
// record and stores the replay blobs. Parsing the replay file itself is
// a presenter concern; the verifier only sees the parsed metadata.
package replay

import (
	"fmt"
	"time"

	"github.com/scevolution/ladder/internal/models"
)

// Expected lobby settings for a ladder game.
const (
	WantGamePrivacy     = "Normal"
	WantGameSpeed       = "Faster"
	WantDurationSetting = "Unlimited"
	WantLockedAlliances = "Yes"
)

// MaxTimestampSkew bounds how far the replay's recorded date may drift
// from the match creation time.
const MaxTimestampSkew = 20 * time.Minute

// Check is one named verification with what was expected and found.
type Check struct {
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Found    string `json:"found"`
}

// Report carries all eight checks plus their conjunction.
type Report struct {
	Races               Check `json:"races"`
	Map                 Check `json:"map"`
	Timestamp           Check `json:"timestamp"`
	Observers           Check `json:"observers"`
	GamePrivacy         Check `json:"game_privacy"`
	GameSpeed           Check `json:"game_speed"`
	GameDurationSetting Check `json:"game_duration_setting"`
	LockedAlliances     Check `json:"locked_alliances"`
	AllPassed           bool  `json:"all_passed"`
}

// Verify runs the metadata checks for rec against match. It never
// mutates either argument.
func Verify(rec models.Replay, match models.Match) Report {
	var r Report

	wantRaces := fmt.Sprintf("%s + %s", match.Player1Race, match.Player2Race)
	foundRaces := fmt.Sprintf("%s + %s", rec.Player1Race, rec.Player2Race)
	sameOrder := rec.Player1Race == match.Player1Race && rec.Player2Race == match.Player2Race
	swapped := rec.Player1Race == match.Player2Race && rec.Player2Race == match.Player1Race
	r.Races = Check{Passed: sameOrder || swapped, Expected: wantRaces, Found: foundRaces}

	r.Map = Check{Passed: rec.MapName == match.MapName, Expected: match.MapName, Found: rec.MapName}

	skew := rec.ReplayDate.Sub(match.CreatedAt)
	if skew < 0 {
		skew = -skew
	}
	r.Timestamp = Check{
		Passed:   skew <= MaxTimestampSkew,
		Expected: fmt.Sprintf("within %v of %s", MaxTimestampSkew, match.CreatedAt.UTC().Format(time.RFC3339)),
		Found:    rec.ReplayDate.UTC().Format(time.RFC3339),
	}

	r.Observers = Check{Passed: rec.Observers == "", Expected: "none", Found: orNone(rec.Observers)}
	r.GamePrivacy = Check{Passed: rec.GamePrivacy == WantGamePrivacy, Expected: WantGamePrivacy, Found: rec.GamePrivacy}
	r.GameSpeed = Check{Passed: rec.GameSpeed == WantGameSpeed, Expected: WantGameSpeed, Found: rec.GameSpeed}
	r.GameDurationSetting = Check{Passed: rec.GameDurationSetting == WantDurationSetting, Expected: WantDurationSetting, Found: rec.GameDurationSetting}
	r.LockedAlliances = Check{Passed: rec.LockedAlliances == WantLockedAlliances, Expected: WantLockedAlliances, Found: rec.LockedAlliances}

	r.AllPassed = r.Races.Passed && r.Map.Passed && r.Timestamp.Passed && r.Observers.Passed &&
		r.GamePrivacy.Passed && r.GameSpeed.Passed && r.GameDurationSetting.Passed && r.LockedAlliances.Passed
	return r
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
