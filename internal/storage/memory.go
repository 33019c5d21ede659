package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gityap/gityap/internal/domain"
)

// Memory is the map-backed Store. A single mutex serializes writers; reads
// copy before returning so callers never observe later mutations.
type Memory struct {
	mu       sync.Mutex
	code     map[string]timestamped[domain.ActivityProfile]
	channels map[string]timestamped[domain.ChannelProfile]
	outcomes map[string]domain.ComparisonOutcome
	now      func() time.Time
}

type timestamped[T any] struct {
	value   T
	updated time.Time
}

func NewMemory() *Memory {
	return &Memory{
		code:     make(map[string]timestamped[domain.ActivityProfile]),
		channels: make(map[string]timestamped[domain.ChannelProfile]),
		outcomes: make(map[string]domain.ComparisonOutcome),
		now:      time.Now,
	}
}

func (m *Memory) UpsertCodeProfile(_ context.Context, profile domain.ActivityProfile) error {
	key := strings.ToLower(domain.NormalizeHandle(profile.Handle))
	if key == "" {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code[key] = timestamped[domain.ActivityProfile]{value: profile, updated: m.now()}
	return nil
}

func (m *Memory) UpsertChannelProfile(_ context.Context, profile domain.ChannelProfile) error {
	key := strings.ToLower(domain.NormalizeHandle(profile.Handle))
	if key == "" {
		return domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[key] = timestamped[domain.ChannelProfile]{value: profile, updated: m.now()}
	return nil
}

func (m *Memory) CodeProfile(_ context.Context, handle string) (domain.ActivityProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.code[strings.ToLower(domain.NormalizeHandle(handle))]
	return entry.value, ok, nil
}

func (m *Memory) ChannelProfile(_ context.Context, handle string) (domain.ChannelProfile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.channels[strings.ToLower(domain.NormalizeHandle(handle))]
	return entry.value, ok, nil
}

func (m *Memory) CandidatePool(_ context.Context, exclude ...string) ([]domain.Candidate, error) {
	skip := excludeSet(exclude)

	m.mu.Lock()
	defer m.mu.Unlock()

	type ordered struct {
		candidate domain.Candidate
		updated   time.Time
	}
	rows := make([]ordered, 0, len(m.channels))
	for key, entry := range m.channels {
		if _, excluded := skip[key]; excluded {
			continue
		}
		candidate := domain.Candidate{
			Handle: entry.value.Handle,
			Posts:  entry.value.Posts,
		}
		if code, ok := m.code[key]; ok {
			candidate.Commits = code.value.Commits
		}
		rows = append(rows, ordered{candidate: candidate, updated: entry.updated})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].candidate.Posts != rows[j].candidate.Posts {
			return rows[i].candidate.Posts > rows[j].candidate.Posts
		}
		return rows[i].updated.After(rows[j].updated)
	})

	pool := make([]domain.Candidate, len(rows))
	for i, row := range rows {
		pool[i] = row.candidate
	}
	return pool, nil
}

func (m *Memory) RecordOutcome(_ context.Context, outcome domain.ComparisonOutcome) error {
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Map assignment is the delete-then-insert unit here.
	m.outcomes[pairKey(outcome)] = outcome
	return nil
}

func (m *Memory) RecentOutcomes(_ context.Context, limit int) ([]domain.ComparisonOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]domain.ComparisonOutcome, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		all = append(all, o)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) CountOutcomes(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outcomes), nil
}

func (m *Memory) TopCodeProfiles(_ context.Context) ([]domain.ActivityProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]timestamped[domain.ActivityProfile], 0, len(m.code))
	for _, entry := range m.code {
		rows = append(rows, entry)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].value.Commits != rows[j].value.Commits {
			return rows[i].value.Commits > rows[j].value.Commits
		}
		return rows[i].updated.After(rows[j].updated)
	})

	profiles := make([]domain.ActivityProfile, len(rows))
	for i, row := range rows {
		profiles[i] = row.value
	}
	return profiles, nil
}

func (m *Memory) TopChannels(_ context.Context, order ChannelOrder) ([]domain.ChannelProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]timestamped[domain.ChannelProfile], 0, len(m.channels))
	for _, entry := range m.channels {
		rows = append(rows, entry)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].value.Posts, rows[j].value.Posts
		if order == OrderBySubscribers {
			a, b = rows[i].value.Participants, rows[j].value.Participants
		}
		if a != b {
			return a > b
		}
		return rows[i].updated.After(rows[j].updated)
	})

	channels := make([]domain.ChannelProfile, len(rows))
	for i, row := range rows {
		channels[i] = row.value
	}
	return channels, nil
}
