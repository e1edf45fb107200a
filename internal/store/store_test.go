package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scevolution/ladder/internal/ladder"
)

func newTestStore() *Store {
	return New(NopEnqueuer())
}

func TestEnsurePlayerIdempotent(t *testing.T) {
	s := newTestStore()

	p := s.EnsurePlayer(100)
	assert.Equal(t, int64(100), p.DiscordUID)
	assert.Equal(t, DefaultAborts, p.RemainingAborts)

	name := "flash"
	_, err := s.UpdatePlayer(100, PlayerPatch{PlayerName: &name})
	require.NoError(t, err)

	// A second Ensure must not reset anything.
	again := s.EnsurePlayer(100)
	assert.Equal(t, "flash", again.PlayerName)
}

func TestUpdatePlayerUnknown(t *testing.T) {
	s := newTestStore()
	name := "x"
	_, err := s.UpdatePlayer(42, PlayerPatch{PlayerName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePlayerAbortsFloorZero(t *testing.T) {
	s := newTestStore()
	s.EnsurePlayer(1)
	n := -5
	p, err := s.UpdatePlayer(1, PlayerPatch{RemainingAborts: &n})
	require.NoError(t, err)
	assert.Equal(t, 0, p.RemainingAborts)
}

func TestAcceptedTOSDateWriteOnce(t *testing.T) {
	s := newTestStore()
	s.EnsurePlayer(1)
	yes := true
	p1, err := s.UpdatePlayer(1, PlayerPatch{AcceptedTOS: &yes})
	require.NoError(t, err)
	require.True(t, p1.AcceptedTOSDate.Valid)
	first := p1.AcceptedTOSDate.Time

	p2, err := s.UpdatePlayer(1, PlayerPatch{AcceptedTOS: &yes})
	require.NoError(t, err)
	assert.Equal(t, first, p2.AcceptedTOSDate.Time)
}

func TestEnsureMMRSeedsDefault(t *testing.T) {
	s := newTestStore()
	e := s.EnsureMMR(7, ladder.BWZerg)
	assert.Equal(t, DefaultMMR, e.MMR)
	assert.Zero(t, e.GamesPlayed)

	// Re-ensure returns the existing entry untouched.
	_, err := s.UpdateMMR(7, ladder.BWZerg, 1600, StatWon)
	require.NoError(t, err)
	again := s.EnsureMMR(7, ladder.BWZerg)
	assert.Equal(t, 1600, again.MMR)
	assert.Equal(t, 1, again.GamesPlayed)
}

func TestUpdateMMRStats(t *testing.T) {
	s := newTestStore()
	s.EnsureMMR(1, ladder.SC2Terran)

	e, err := s.UpdateMMR(1, ladder.SC2Terran, 1516, StatWon)
	require.NoError(t, err)
	assert.Equal(t, 1516, e.MMR)
	assert.Equal(t, 1, e.GamesPlayed)
	assert.Equal(t, 1, e.GamesWon)
	assert.False(t, e.LastPlayed.IsZero())

	// StatNone moves the rating without counting a game.
	e, err = s.UpdateMMR(1, ladder.SC2Terran, 1400, StatNone)
	require.NoError(t, err)
	assert.Equal(t, 1400, e.MMR)
	assert.Equal(t, 1, e.GamesPlayed)
	assert.Equal(t, 1, e.GamesWon)
}

func TestCreateMatchFreezesMMRs(t *testing.T) {
	s := newTestStore()
	s.EnsureMMR(1, ladder.BWTerran)
	_, err := s.UpdateMMR(1, ladder.BWTerran, 1650, StatNone)
	require.NoError(t, err)

	m, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "Neo Sylphid", "us-east", "scevo001")
	require.NoError(t, err)
	assert.Equal(t, 1650, m.Player1Mmr)
	assert.Equal(t, DefaultMMR, m.Player2Mmr)
	assert.False(t, m.Terminal())

	// Rating moves after creation must not touch the frozen baselines.
	_, err = s.UpdateMMR(1, ladder.BWTerran, 1700, StatNone)
	require.NoError(t, err)
	got, err := s.GetMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1650, got.Player1Mmr)
}

func TestCreateMatchRejectsSamePlayer(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateMatch(5, ladder.BWTerran, 5, ladder.SC2Zerg, "map", "srv", "tag")
	assert.ErrorIs(t, err, ErrSamePlayer)
}

func TestMatchReportsAndResult(t *testing.T) {
	s := newTestStore()
	m, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "map", "srv", "tag")
	require.NoError(t, err)

	m, err = s.UpdateMatchReport(m.ID, 1, ladder.ReportP1Won)
	require.NoError(t, err)
	assert.True(t, m.Player1Report.Valid)
	assert.False(t, m.Player2Report.Valid)
	assert.False(t, m.Terminal())

	m, err = s.SetMatchResult(m.ID, ladder.ResultP1Won, 16)
	require.NoError(t, err)
	assert.True(t, m.Terminal())
	assert.Equal(t, 16, m.MmrChange)
}

func TestRecordSystemAbortLeavesNilReportsUnset(t *testing.T) {
	s := newTestStore()
	m, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "map", "srv", "tag")
	require.NoError(t, err)

	noShow := ladder.ReportNoShow
	m, err = s.RecordSystemAbort(m.ID, nil, &noShow)
	require.NoError(t, err)
	assert.False(t, m.Player1Report.Valid)
	require.True(t, m.Player2Report.Valid)
	assert.Equal(t, int64(ladder.ReportNoShow), m.Player2Report.Int64)
	assert.Equal(t, int64(ladder.ResultAborted), m.MatchResult.Int64)
	assert.Zero(t, m.MmrChange)
}

func TestLiveMatchFor(t *testing.T) {
	s := newTestStore()
	m, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "map", "srv", "tag")
	require.NoError(t, err)

	live, ok := s.LiveMatchFor(2)
	require.True(t, ok)
	assert.Equal(t, m.ID, live.ID)

	_, ok = s.LiveMatchFor(3)
	assert.False(t, ok)

	_, err = s.SetMatchResult(m.ID, ladder.ResultDraw, 0)
	require.NoError(t, err)
	_, ok = s.LiveMatchFor(1)
	assert.False(t, ok)
}

func TestMatchesForNewestFirst(t *testing.T) {
	s := newTestStore()
	first, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "map", "srv", "tag")
	require.NoError(t, err)
	_, err = s.SetMatchResult(first.ID, ladder.ResultDraw, 0)
	require.NoError(t, err)
	second, err := s.CreateMatch(1, ladder.BWTerran, 3, ladder.SC2Protoss, "map", "srv", "tag")
	require.NoError(t, err)

	history := s.MatchesFor(1)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestGetMatchUnknown(t *testing.T) {
	s := newTestStore()
	_, err := s.GetMatch(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := newTestStore()
	_, err := s.GetPreferences(1)
	assert.ErrorIs(t, err, ErrNotFound)

	p := s.UpdatePreferences(1, "bw_terran,sc2_zerg", "Fighting Spirit")
	assert.Equal(t, "bw_terran,sc2_zerg", p.LastChosenRaces)

	got, err := s.GetPreferences(1)
	require.NoError(t, err)
	assert.Equal(t, "Fighting Spirit", got.LastChosenVetos)
}

func TestCountsGauges(t *testing.T) {
	s := newTestStore()
	s.EnsurePlayer(1)
	s.EnsurePlayer(2)
	s.EnsureMMR(1, ladder.BWTerran)
	_, err := s.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "map", "srv", "tag")
	require.NoError(t, err)

	counts := s.Counts()
	assert.Equal(t, 2, counts["players"])
	assert.Equal(t, 1, counts["matches"])
}

func TestGetMMRCopiesAreIndependent(t *testing.T) {
	s := newTestStore()
	s.EnsureMMR(1, ladder.BWTerran)
	e, err := s.GetMMR(1, ladder.BWTerran)
	require.NoError(t, err)
	e.MMR = 9999
	e.LastPlayed = time.Now()

	fresh, err := s.GetMMR(1, ladder.BWTerran)
	require.NoError(t, err)
	assert.Equal(t, DefaultMMR, fresh.MMR)
}
