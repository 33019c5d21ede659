// Package match ranks previously observed entities by weighted similarity
// to produce a best-match recommendation.
package match

import (
	"sort"
	"strings"

	"github.com/gityap/gityap/internal/domain"
)

// topK bounds ranking cost and biases toward active candidates.
const topK = 5

const (
	reasonBothStrong   = "Strong in both commits and posts. This team can ship and amplify."
	reasonBothTalkers  = "Two power-yappers joining forces. This startup will be heard in the next galaxy."
	reasonBothBuilders = "Two strong builders pairing up. High shipping velocity potential."
	reasonSourceDrive  = "You have the momentum, they have the reach. A perfect match for scale."
	reasonCandVolume   = "They provide the volume you've been looking for. Synergy in every post."
	reasonFallback     = "Complementary voices for a unified broadcast strategy."
)

// Source carries the counters of the entity a match is sought for, plus
// the handles to keep out of the candidate pool.
type Source struct {
	Handle  string
	Exclude string
	Posts   int
	Commits int
}

// FindBestMatch selects the candidate with minimum combined distance to the
// source among the topK candidates by post count. Selection is
// deterministic: ties break on candidate order after the post-count sort,
// first occurrence winning. (A randomized pick-of-top-5 variant exists as a
// product idea; it is intentionally not implemented here.)
//
// The boolean result is false when the pool, after exclusions, is empty.
func FindBestMatch(source Source, pool []domain.Candidate) (domain.MatchResult, bool) {
	sourceHandle := strings.ToLower(domain.NormalizeHandle(source.Handle))
	excludeHandle := strings.ToLower(domain.NormalizeHandle(source.Exclude))

	candidates := make([]domain.Candidate, 0, len(pool))
	for _, c := range pool {
		h := strings.ToLower(domain.NormalizeHandle(c.Handle))
		if h == "" || h == sourceHandle || (excludeHandle != "" && h == excludeHandle) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return domain.MatchResult{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Posts > candidates[j].Posts
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	best := candidates[0]
	bestDistance := combinedDistance(source, best)
	for _, c := range candidates[1:] {
		if d := combinedDistance(source, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}

	return domain.MatchResult{
		Handle: best.Handle,
		Reason: reasonFor(source, best),
	}, true
}

// combinedDistance is the 50/50 weighted sum of the normalized post and
// commit deltas. max(...,1) avoids division by zero; when both sides of a
// term are zero that term contributes zero distance.
func combinedDistance(source Source, c domain.Candidate) float64 {
	postsDelta := float64(abs(source.Posts-c.Posts)) / float64(max3(source.Posts, c.Posts, 1))
	commitsDelta := float64(abs(source.Commits-c.Commits)) / float64(max3(source.Commits, c.Commits, 1))
	return postsDelta*0.5 + commitsDelta*0.5
}

// reasonFor evaluates the categorical justification rules in fixed
// priority order; only the first matching rule fires.
func reasonFor(source Source, c domain.Candidate) string {
	switch {
	case source.Posts > 100 && c.Posts > 100 && source.Commits > 100 && c.Commits > 100:
		return reasonBothStrong
	case source.Posts > 100 && c.Posts > 100:
		return reasonBothTalkers
	case source.Commits > 100 && c.Commits > 100:
		return reasonBothBuilders
	case source.Posts > 50 || source.Commits > 50:
		return reasonSourceDrive
	case c.Posts > 50 || c.Commits > 50:
		return reasonCandVolume
	default:
		return reasonFallback
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func max3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
