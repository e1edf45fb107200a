package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scevolution/ladder/internal/ladder"
	"github.com/scevolution/ladder/internal/store"
)

func TestAdjustMMROperations(t *testing.T) {
	cases := []struct {
		op    MMROp
		value int
		want  int
	}{
		{OpAdd, 50, 1550},
		{OpSubtract, 100, 1400},
		{OpSet, 1777, 1777},
	}
	for _, tc := range cases {
		f := newFixture(t)
		adj, err := f.service.AdjustMMR(testAdminUID, 1, ladder.BWTerran, tc.op, tc.value, "manual correction")
		require.NoError(t, err, tc.op)
		assert.Equal(t, 1500, adj.Before, tc.op)
		assert.Equal(t, tc.want, adj.After, tc.op)

		e, err := f.store.GetMMR(1, ladder.BWTerran)
		require.NoError(t, err)
		assert.Equal(t, tc.want, e.MMR, tc.op)
		assert.Zero(t, e.GamesPlayed, "adjustments must not count games")
	}
}

func TestAdjustMMRRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.AdjustMMR(testAdminUID, 1, ladder.BWTerran, "multiply", 2, "")
	assert.ErrorIs(t, err, ErrInvalidOp)

	_, err = f.service.AdjustMMR(testAdminUID, 1, ladder.Race("bw_orc"), OpAdd, 1, "")
	assert.Error(t, err)

	// No rating entry for this race yet.
	_, err = f.service.AdjustMMR(testAdminUID, 1, ladder.SC2Protoss, OpAdd, 1, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestBanRemovesQueueEntry(t *testing.T) {
	f := newFixture(t)
	f.queue.queued[1] = true

	require.NoError(t, f.service.Ban(testAdminUID, 1, "smurfing"))

	p, err := f.store.GetPlayer(1)
	require.NoError(t, err)
	assert.True(t, p.IsBanned)
	assert.Contains(t, f.queue.left, int64(1))
	assert.False(t, f.queue.queued[1])
}

func TestUnbanClearsFlag(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.service.Ban(testAdminUID, 2, "dispute"))
	require.NoError(t, f.service.Unban(testAdminUID, 2, "appeal accepted"))

	p, err := f.store.GetPlayer(2)
	require.NoError(t, err)
	assert.False(t, p.IsBanned)
}

func TestBanUnknownPlayer(t *testing.T) {
	f := newFixture(t)
	err := f.service.Ban(testAdminUID, 777, "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetAborts(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.service.ResetAborts(testAdminUID, 1, 5, "season reset"))
	p, err := f.store.GetPlayer(1)
	require.NoError(t, err)
	assert.Equal(t, 5, p.RemainingAborts)
}

func TestRemoveFromQueue(t *testing.T) {
	f := newFixture(t)
	f.queue.queued[2] = true

	assert.True(t, f.service.RemoveFromQueue(testAdminUID, 2, "afk"))
	assert.False(t, f.service.RemoveFromQueue(testAdminUID, 2, "afk"), "second removal finds nothing")
}

func TestClearQueue(t *testing.T) {
	f := newFixture(t)
	f.queue.queued[1] = true
	f.queue.queued[2] = true

	uids := f.service.ClearQueue(testAdminUID, "maintenance")
	assert.Len(t, uids, 2)
	assert.Empty(t, f.queue.queued)
}
