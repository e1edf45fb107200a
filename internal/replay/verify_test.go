package replay

import (
	"testing"
	"time"

	"github.com/scevolution/ladder/internal/models"
)

func conformingPair() (models.Replay, models.Match) {
	created := time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC)
	match := models.Match{
		ID:          1,
		Player1UID:  10,
		Player1Race: "bw_terran",
		Player2UID:  20,
		Player2Race: "sc2_zerg",
		MapName:     "Neo Sylphid",
		CreatedAt:   created,
	}
	rec := models.Replay{
		ReplayDate:          created.Add(5 * time.Minute),
		Player1Race:         "bw_terran",
		Player2Race:         "sc2_zerg",
		MapName:             "Neo Sylphid",
		Observers:           "",
		GamePrivacy:         "Normal",
		GameSpeed:           "Faster",
		GameDurationSetting: "Unlimited",
		LockedAlliances:     "Yes",
	}
	return rec, match
}

func TestVerifyAllPassed(t *testing.T) {
	rec, match := conformingPair()
	report := Verify(rec, match)
	if !report.AllPassed {
		t.Fatalf("conforming replay failed verification: %+v", report)
	}
}

func TestVerifyRacesOrderInsensitive(t *testing.T) {
	rec, match := conformingPair()
	rec.Player1Race, rec.Player2Race = rec.Player2Race, rec.Player1Race
	report := Verify(rec, match)
	if !report.Races.Passed {
		t.Errorf("swapped race order should pass: %+v", report.Races)
	}
}

func TestVerifyWrongRaceFails(t *testing.T) {
	rec, match := conformingPair()
	rec.Player2Race = "sc2_protoss"
	report := Verify(rec, match)
	if report.Races.Passed {
		t.Error("race mismatch passed")
	}
	if report.AllPassed {
		t.Error("all_passed with a failing check")
	}
}

func TestVerifyPrivacyPublicFails(t *testing.T) {
	rec, match := conformingPair()
	rec.GamePrivacy = "Public"
	report := Verify(rec, match)
	if report.GamePrivacy.Passed {
		t.Error("Public privacy passed")
	}
	if report.GamePrivacy.Expected != "Normal" || report.GamePrivacy.Found != "Public" {
		t.Errorf("check detail wrong: %+v", report.GamePrivacy)
	}
	if report.AllPassed {
		t.Error("all_passed with failing privacy")
	}
	// Everything else still passes independently.
	if !report.Races.Passed || !report.Map.Passed || !report.Timestamp.Passed {
		t.Errorf("unrelated checks failed: %+v", report)
	}
}

func TestVerifyTimestampSkew(t *testing.T) {
	rec, match := conformingPair()

	rec.ReplayDate = match.CreatedAt.Add(MaxTimestampSkew)
	if report := Verify(rec, match); !report.Timestamp.Passed {
		t.Error("skew at the limit should pass")
	}

	rec.ReplayDate = match.CreatedAt.Add(MaxTimestampSkew + time.Second)
	if report := Verify(rec, match); report.Timestamp.Passed {
		t.Error("skew past the limit passed")
	}

	// Replay recorded slightly before the match row exists (clock skew).
	rec.ReplayDate = match.CreatedAt.Add(-10 * time.Minute)
	if report := Verify(rec, match); !report.Timestamp.Passed {
		t.Error("negative skew within the limit should pass")
	}
}

func TestVerifyObservers(t *testing.T) {
	rec, match := conformingPair()
	rec.Observers = "SomeCaster"
	report := Verify(rec, match)
	if report.Observers.Passed {
		t.Error("observer present passed")
	}
	if report.Observers.Found != "SomeCaster" {
		t.Errorf("found = %q", report.Observers.Found)
	}
}

func TestVerifyMapMismatch(t *testing.T) {
	rec, match := conformingPair()
	rec.MapName = "Fighting Spirit"
	report := Verify(rec, match)
	if report.Map.Passed {
		t.Error("map mismatch passed")
	}
}

func TestVerifySettings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Replay)
		failed func(Report) bool
	}{
		{"speed", func(r *models.Replay) { r.GameSpeed = "Normal" }, func(r Report) bool { return !r.GameSpeed.Passed }},
		{"duration", func(r *models.Replay) { r.GameDurationSetting = "30 min" }, func(r Report) bool { return !r.GameDurationSetting.Passed }},
		{"alliances", func(r *models.Replay) { r.LockedAlliances = "No" }, func(r Report) bool { return !r.LockedAlliances.Passed }},
	}
	for _, tc := range cases {
		rec, match := conformingPair()
		tc.mutate(&rec)
		report := Verify(rec, match)
		if !tc.failed(report) {
			t.Errorf("%s: expected check to fail", tc.name)
		}
		if report.AllPassed {
			t.Errorf("%s: all_passed with failing check", tc.name)
		}
	}
}
