package lifecycle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/models"
	"github.com/scevolution/ladder/internal/notify"
	"github.com/scevolution/ladder/internal/rating"
	"github.com/scevolution/ladder/internal/store"
)

type fixture struct {
	store   *store.Store
	fanout  *notify.Fanout
	service *Service
	match   models.Match
}

// newFixture creates two players in a match with long timers so nothing
// expires unless the test wants it to.
func newFixture(t *testing.T, timings Timings) *fixture {
	t.Helper()
	if timings.Confirm == 0 {
		timings.Confirm = time.Hour
	}
	if timings.Abort == 0 {
		timings.Abort = time.Hour
	}

	st := store.New(store.NopEnqueuer())
	st.EnsurePlayer(1)
	st.EnsurePlayer(2)
	fanout := notify.New(nil)
	svc := New(st, rating.NewEngine(32), fanout, nil, timings)

	m, err := st.CreateMatch(1, ladder.BWTerran, 2, ladder.SC2Zerg, "Neo Sylphid", "us-east", "scevo001")
	require.NoError(t, err)
	return &fixture{store: st, fanout: fanout, service: svc, match: m}
}

func (f *fixture) events(uid int64) *[]notify.EventKind {
	var got []notify.EventKind
	f.fanout.RegisterPresenter(uid, func(p notify.Payload) { got = append(got, p.Kind) })
	return &got
}

func TestAgreedResultCompletesMatch(t *testing.T) {
	f := newFixture(t, Timings{})
	events := f.events(1)
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.RecordReport(f.match.ID, 1, ladder.ReportP1Won))
	require.NoError(t, f.service.RecordReport(f.match.ID, 2, ladder.ReportP1Won))

	m, err := f.store.GetMatch(f.match.ID)
	require.NoError(t, err)
	require.True(t, m.Terminal())
	assert.Equal(t, int64(ladder.ResultP1Won), m.MatchResult.Int64)
	assert.Equal(t, 16, m.MmrChange)

	winner, err := f.store.GetMMR(1, ladder.BWTerran)
	require.NoError(t, err)
	assert.Equal(t, 1516, winner.MMR)
	assert.Equal(t, 1, winner.GamesWon)

	loser, err := f.store.GetMMR(2, ladder.SC2Zerg)
	require.NoError(t, err)
	assert.Equal(t, 1484, loser.MMR)
	assert.Equal(t, 1, loser.GamesLost)

	assert.Contains(t, *events, notify.EventMatchFound)
	assert.Contains(t, *events, notify.EventMatchComplete)
}

func TestDrawCountsForBoth(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.RecordReport(f.match.ID, 1, ladder.ReportDraw))
	require.NoError(t, f.service.RecordReport(f.match.ID, 2, ladder.ReportDraw))

	m, _ := f.store.GetMatch(f.match.ID)
	assert.Equal(t, int64(ladder.ResultDraw), m.MatchResult.Int64)
	assert.Zero(t, m.MmrChange)

	for _, uid := range []int64{1, 2} {
		race := ladder.BWTerran
		if uid == 2 {
			race = ladder.SC2Zerg
		}
		e, err := f.store.GetMMR(uid, race)
		require.NoError(t, err)
		assert.Equal(t, store.DefaultMMR, e.MMR)
		assert.Equal(t, 1, e.GamesDrawn)
	}
}

func TestSelfAbortEndsMatchAlone(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.RecordReport(f.match.ID, 1, ladder.ReportSelfAbort))

	m, err := f.store.GetMatch(f.match.ID)
	require.NoError(t, err)
	require.True(t, m.Terminal())
	assert.Equal(t, int64(ladder.ResultAborted), m.MatchResult.Int64)
	require.True(t, m.Player1Report.Valid)
	assert.Equal(t, int64(ladder.ReportSelfAbort), m.Player1Report.Int64)
	assert.False(t, m.Player2Report.Valid, "opponent's report must stay unset")

	// The aborter spends one allowance; the opponent keeps theirs.
	p1, _ := f.store.GetPlayer(1)
	assert.Equal(t, store.DefaultAborts-1, p1.RemainingAborts)
	p2, _ := f.store.GetPlayer(2)
	assert.Equal(t, store.DefaultAborts, p2.RemainingAborts)

	// Ratings untouched.
	e, _ := f.store.GetMMR(1, ladder.BWTerran)
	assert.Equal(t, store.DefaultMMR, e.MMR)
	assert.Zero(t, e.GamesPlayed)
}

func TestConflictingReports(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.RecordReport(f.match.ID, 1, ladder.ReportP1Won))
	require.NoError(t, f.service.RecordReport(f.match.ID, 2, ladder.ReportP2Won))

	m, _ := f.store.GetMatch(f.match.ID)
	require.True(t, m.Terminal())
	assert.Equal(t, int64(ladder.ResultConflict), m.MatchResult.Int64)
	assert.Zero(t, m.MmrChange)

	e, _ := f.store.GetMMR(1, ladder.BWTerran)
	assert.Equal(t, store.DefaultMMR, e.MMR)
	assert.Zero(t, e.GamesPlayed)
}

func TestReportAfterTerminalRejected(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.RecordReport(f.match.ID, 1, ladder.ReportSelfAbort))
	err := f.service.RecordReport(f.match.ID, 2, ladder.ReportP2Won)
	assert.ErrorIs(t, err, ErrTerminalMatch)
}

func TestReportValidation(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	// The no-show code is system-only.
	err := f.service.RecordReport(f.match.ID, 1, ladder.ReportNoShow)
	assert.ErrorIs(t, err, ErrInvalidReport)

	err = f.service.RecordReport(f.match.ID, 99, ladder.ReportDraw)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestConfirmTimeoutMarksNoShows(t *testing.T) {
	f := newFixture(t, Timings{Confirm: 20 * time.Millisecond, Abort: time.Hour})
	f.service.BeginMatch(f.match)

	require.Eventually(t, func() bool {
		m, err := f.store.GetMatch(f.match.ID)
		return err == nil && m.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	m, _ := f.store.GetMatch(f.match.ID)
	assert.Equal(t, int64(ladder.ResultAborted), m.MatchResult.Int64)
	require.True(t, m.Player1Report.Valid)
	require.True(t, m.Player2Report.Valid)
	assert.Equal(t, int64(ladder.ReportNoShow), m.Player1Report.Int64)
	assert.Equal(t, int64(ladder.ReportNoShow), m.Player2Report.Int64)

	// Timer aborts never touch the abort allowance.
	p1, _ := f.store.GetPlayer(1)
	assert.Equal(t, store.DefaultAborts, p1.RemainingAborts)
}

func TestPartialConfirmOnlyFlagsAbsentee(t *testing.T) {
	f := newFixture(t, Timings{Confirm: 30 * time.Millisecond, Abort: time.Hour})
	f.service.BeginMatch(f.match)
	require.NoError(t, f.service.Confirm(f.match.ID, 1))

	require.Eventually(t, func() bool {
		m, err := f.store.GetMatch(f.match.ID)
		return err == nil && m.Terminal()
	}, 2*time.Second, 10*time.Millisecond)

	m, _ := f.store.GetMatch(f.match.ID)
	assert.False(t, m.Player1Report.Valid, "confirmed player must keep an unset report")
	require.True(t, m.Player2Report.Valid)
	assert.Equal(t, int64(ladder.ReportNoShow), m.Player2Report.Int64)
}

// Reminders fire mid-confirmation window, so they must tolerate players
// clicking Confirm at the same instant.
func TestReminderDuringConfirmations(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			f.service.Confirm(f.match.ID, 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			f.service.remind(f.match.ID)
		}
	}()
	wg.Wait()

	m, err := f.store.GetMatch(f.match.ID)
	require.NoError(t, err)
	assert.False(t, m.Terminal(), "half-confirmed match must stay live")
}

func TestBothConfirmedSurvivesConfirmWindow(t *testing.T) {
	f := newFixture(t, Timings{Confirm: 20 * time.Millisecond, Abort: time.Hour})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.Confirm(f.match.ID, 1))
	require.NoError(t, f.service.Confirm(f.match.ID, 2))

	time.Sleep(80 * time.Millisecond)
	m, err := f.store.GetMatch(f.match.ID)
	require.NoError(t, err)
	assert.False(t, m.Terminal(), "confirmed match expired anyway")
}

func TestResolveFreshDrivesCompletion(t *testing.T) {
	f := newFixture(t, Timings{})
	f.service.BeginMatch(f.match)

	require.NoError(t, f.service.ResolveFresh(f.match.ID, ladder.ResultP2Won))

	m, _ := f.store.GetMatch(f.match.ID)
	require.True(t, m.Terminal())
	assert.Equal(t, int64(ladder.ResultP2Won), m.MatchResult.Int64)

	e, _ := f.store.GetMMR(2, ladder.SC2Zerg)
	assert.Equal(t, 1516, e.MMR)
	assert.Equal(t, 1, e.GamesWon)
}
