package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gityap/gityap/internal/domain"
)

func TestFindBestMatch_CommitsTermDominates(t *testing.T) {
	// Hand-computable 50/50 weighting: A is closer on posts, but B's commit
	// term pulls its combined distance far below A's.
	pool := []domain.Candidate{
		{Handle: "A", Posts: 120, Commits: 5},
		{Handle: "B", Posts: 110, Commits: 140},
	}
	source := Source{Handle: "src", Posts: 115, Commits: 130}

	result, found := FindBestMatch(source, pool)
	require.True(t, found)
	assert.Equal(t, "B", result.Handle)
	assert.Equal(t, reasonBothStrong, result.Reason)
}

func TestFindBestMatch_ReasonRules(t *testing.T) {
	testCases := []struct {
		name     string
		source   Source
		cand     domain.Candidate
		expected string
	}{
		{
			name:     "both over 100 posts but not commits",
			source:   Source{Handle: "src", Posts: 150, Commits: 0},
			cand:     domain.Candidate{Handle: "C", Posts: 200, Commits: 0},
			expected: reasonBothTalkers,
		},
		{
			name:     "both over 100 commits but not posts",
			source:   Source{Handle: "src", Posts: 3, Commits: 400},
			cand:     domain.Candidate{Handle: "C", Posts: 5, Commits: 250},
			expected: reasonBothBuilders,
		},
		{
			name:     "source momentum only",
			source:   Source{Handle: "src", Posts: 60, Commits: 0},
			cand:     domain.Candidate{Handle: "C", Posts: 10, Commits: 10},
			expected: reasonSourceDrive,
		},
		{
			name:     "candidate volume only",
			source:   Source{Handle: "src", Posts: 10, Commits: 10},
			cand:     domain.Candidate{Handle: "C", Posts: 80, Commits: 0},
			expected: reasonCandVolume,
		},
		{
			name:     "generic fallback",
			source:   Source{Handle: "src", Posts: 10, Commits: 10},
			cand:     domain.Candidate{Handle: "C", Posts: 20, Commits: 5},
			expected: reasonFallback,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, found := FindBestMatch(tc.source, []domain.Candidate{tc.cand})
			require.True(t, found)
			assert.Equal(t, tc.expected, result.Reason)
		})
	}
}

func TestFindBestMatch_ExclusionsAreCaseInsensitive(t *testing.T) {
	pool := []domain.Candidate{
		{Handle: "Source", Posts: 500},
		{Handle: "EXCLUDED", Posts: 400},
		{Handle: "keeper", Posts: 10},
	}
	source := Source{Handle: "@source", Exclude: "excluded"}

	result, found := FindBestMatch(source, pool)
	require.True(t, found)
	assert.Equal(t, "keeper", result.Handle)
}

func TestFindBestMatch_EmptyPoolAfterExclusion(t *testing.T) {
	pool := []domain.Candidate{{Handle: "source", Posts: 100}}
	_, found := FindBestMatch(Source{Handle: "source"}, pool)
	assert.False(t, found)

	_, found = FindBestMatch(Source{Handle: "anything"}, nil)
	assert.False(t, found)
}

func TestFindBestMatch_RestrictsToTopFiveByPosts(t *testing.T) {
	// "perfect" matches the source exactly but ranks sixth by post count,
	// so it never enters the ranking window.
	pool := []domain.Candidate{
		{Handle: "c1", Posts: 100},
		{Handle: "c2", Posts: 200},
		{Handle: "c3", Posts: 300},
		{Handle: "c4", Posts: 400},
		{Handle: "c5", Posts: 500},
		{Handle: "perfect", Posts: 10, Commits: 10},
	}
	source := Source{Handle: "src", Posts: 10, Commits: 10}

	result, found := FindBestMatch(source, pool)
	require.True(t, found)
	assert.Equal(t, "c1", result.Handle)
}

func TestFindBestMatch_TieBreaksOnFirstOccurrence(t *testing.T) {
	pool := []domain.Candidate{
		{Handle: "first", Posts: 50},
		{Handle: "second", Posts: 50},
	}
	source := Source{Handle: "src", Posts: 100}

	result, found := FindBestMatch(source, pool)
	require.True(t, found)
	assert.Equal(t, "first", result.Handle)
}

func TestLevenshtein(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, levenshtein(tc.a, tc.b), "levenshtein(%q, %q)", tc.a, tc.b)
	}
}

func TestHighConfidenceMatch(t *testing.T) {
	testCases := []struct {
		query, login string
		expected     bool
	}{
		{"devone", "devone", true},
		{"@DevOne ", "devone", true},
		{"devone", "devon", true},   // prefix, length delta 1
		{"devone", "devane", true},  // edit distance 1
		{"dev", "devone", false},    // prefix but length delta 3
		{"devone", "builder", false},
		{"", "devone", false},
		{"devone", "", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, HighConfidenceMatch(tc.query, tc.login), "HighConfidenceMatch(%q, %q)", tc.query, tc.login)
	}
}
