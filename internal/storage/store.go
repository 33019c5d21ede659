// Package storage defines the persistence port for observed profiles and
// comparison outcomes, with an in-memory implementation for tests and
// development and a redis-backed one for real deployments.
package storage

import (
	"context"
	"strings"

	"github.com/gityap/gityap/internal/domain"
)

// ChannelOrder selects the leaderboard ordering for channels.
type ChannelOrder string

const (
	OrderByPosts       ChannelOrder = "posts"
	OrderBySubscribers ChannelOrder = "subscribers"
)

// Store is the persistence collaborator. Implementations treat each call
// as one atomic unit; RecordOutcome has delete-then-insert semantics keyed
// by the unordered handle pair plus comparison type, so a later outcome for
// the same pair supersedes the earlier one.
type Store interface {
	UpsertCodeProfile(ctx context.Context, profile domain.ActivityProfile) error
	UpsertChannelProfile(ctx context.Context, profile domain.ChannelProfile) error
	CodeProfile(ctx context.Context, handle string) (domain.ActivityProfile, bool, error)
	ChannelProfile(ctx context.Context, handle string) (domain.ChannelProfile, bool, error)

	// CandidatePool returns every observed channel joined with the commit
	// count of the identically named code profile, ordered by post count
	// descending. Excluded handles are filtered case-insensitively.
	CandidatePool(ctx context.Context, exclude ...string) ([]domain.Candidate, error)

	RecordOutcome(ctx context.Context, outcome domain.ComparisonOutcome) error
	RecentOutcomes(ctx context.Context, limit int) ([]domain.ComparisonOutcome, error)
	CountOutcomes(ctx context.Context) (int, error)

	TopCodeProfiles(ctx context.Context) ([]domain.ActivityProfile, error)
	TopChannels(ctx context.Context, order ChannelOrder) ([]domain.ChannelProfile, error)
}

// pairKey is the unordered identity of a comparison: type plus the two
// handles in lexical order, lower-cased.
func pairKey(outcome domain.ComparisonOutcome) string {
	a := strings.ToLower(domain.NormalizeHandle(outcome.Left.Handle))
	b := strings.ToLower(domain.NormalizeHandle(outcome.Right.Handle))
	if b < a {
		a, b = b, a
	}
	return string(outcome.Type) + ":" + a + ":" + b
}

func excludeSet(exclude []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exclude))
	for _, h := range exclude {
		h = strings.ToLower(domain.NormalizeHandle(h))
		if h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}
