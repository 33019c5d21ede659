package match

import (
	"strings"

	"github.com/gityap/gityap/internal/domain"
)

// HighConfidenceMatch reports whether a code-platform login is a plausible
// spelling of the queried handle: exact match, a prefix relationship with
// at most two characters of length difference, or edit distance at most 1.
// Both sides are compared in normalized, lower-cased form.
func HighConfidenceMatch(query, login string) bool {
	q := strings.ToLower(domain.NormalizeHandle(query))
	l := strings.ToLower(domain.NormalizeHandle(login))
	if q == "" || l == "" {
		return false
	}
	if q == l {
		return true
	}
	diff := len(q) - len(l)
	if diff < 0 {
		diff = -diff
	}
	if (strings.HasPrefix(l, q) || strings.HasPrefix(q, l)) && diff <= 2 {
		return true
	}
	return levenshtein(q, l) <= 1
}

// levenshtein computes edit distance with the two-row dynamic programming
// formulation.
func levenshtein(a, b string) int {
	m, n := len(a), len(b)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			d := del
			if ins < d {
				d = ins
			}
			if sub < d {
				d = sub
			}
			curr[j] = d
		}
		prev, curr = curr, prev
	}
	return prev[n]
}
