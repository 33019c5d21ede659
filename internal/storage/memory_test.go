package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gityap/gityap/internal/domain"
)

// fakeClock hands out strictly increasing timestamps so ordering
// assertions do not depend on wall-clock resolution.
func fakeClock() func() time.Time {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func newTestMemory() *Memory {
	m := NewMemory()
	m.now = fakeClock()
	return m
}

func TestMemory_UpsertSupersedes(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory()

	require.NoError(t, store.UpsertCodeProfile(ctx, domain.ActivityProfile{Handle: "dev", Commits: 10}))
	require.NoError(t, store.UpsertCodeProfile(ctx, domain.ActivityProfile{Handle: "@Dev", Commits: 25}))

	profile, ok, err := store.CodeProfile(ctx, "dev")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 25, profile.Commits)

	profiles, err := store.TopCodeProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestMemory_CandidatePool(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory()

	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "quiet", Posts: 5}))
	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "loud", Posts: 500}))
	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "mid", Posts: 50}))
	// Denormalized join: the code profile under the same handle supplies commits.
	require.NoError(t, store.UpsertCodeProfile(ctx, domain.ActivityProfile{Handle: "mid", Commits: 77}))

	pool, err := store.CandidatePool(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, []domain.Candidate{
		{Handle: "loud", Posts: 500},
		{Handle: "mid", Posts: 50, Commits: 77},
		{Handle: "quiet", Posts: 5},
	}, pool)

	pool, err = store.CandidatePool(ctx, "@Loud")
	require.NoError(t, err)
	require.Len(t, pool, 2)
	assert.Equal(t, "mid", pool[0].Handle)
}

func TestMemory_RecordOutcome_DeleteThenInsert(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory()

	first := domain.ComparisonOutcome{
		Type:       domain.CompareUserVsChannel,
		Left:       domain.OutcomeSide{Handle: "dev", Source: domain.SourceCode},
		Right:      domain.OutcomeSide{Handle: "chan", Source: domain.SourceChannel},
		LeftScore:  10,
		RightScore: 20,
		Winner:     domain.WinnerRight,
	}
	require.NoError(t, store.RecordOutcome(ctx, first))

	// Same unordered pair, sides flipped: supersedes, never duplicates.
	second := domain.ComparisonOutcome{
		Type:       domain.CompareUserVsChannel,
		Left:       domain.OutcomeSide{Handle: "chan", Source: domain.SourceChannel},
		Right:      domain.OutcomeSide{Handle: "dev", Source: domain.SourceCode},
		LeftScore:  30,
		RightScore: 30,
		Winner:     domain.WinnerDraw,
	}
	require.NoError(t, store.RecordOutcome(ctx, second))

	count, err := store.CountOutcomes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	outcomes, err := store.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.WinnerDraw, outcomes[0].Winner)
}

func TestMemory_RecentOutcomes_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory()

	for i, pair := range [][2]string{{"a", "x"}, {"b", "y"}, {"c", "z"}} {
		require.NoError(t, store.RecordOutcome(ctx, domain.ComparisonOutcome{
			Type:      domain.CompareChannelVsChannel,
			Left:      domain.OutcomeSide{Handle: pair[0], Source: domain.SourceChannel},
			Right:     domain.OutcomeSide{Handle: pair[1], Source: domain.SourceChannel},
			LeftScore: i,
			Winner:    domain.WinnerLeft,
		}))
	}

	outcomes, err := store.RecentOutcomes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "c", outcomes[0].Left.Handle)
	assert.Equal(t, "b", outcomes[1].Left.Handle)
}

func TestMemory_TopChannels_Orderings(t *testing.T) {
	ctx := context.Background()
	store := newTestMemory()

	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "posty", Posts: 900, Participants: 10}))
	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "crowdy", Posts: 10, Participants: 90000}))

	byPosts, err := store.TopChannels(ctx, OrderByPosts)
	require.NoError(t, err)
	assert.Equal(t, "posty", byPosts[0].Handle)

	bySubs, err := store.TopChannels(ctx, OrderBySubscribers)
	require.NoError(t, err)
	assert.Equal(t, "crowdy", bySubs[0].Handle)
}
