// Package score maps raw activity counters to comparable scalar scores.
//
// Both formulas use logarithmic damping so a single runaway counter (a
// viral channel, bot-like commit volume) cannot dominate the verdict. The
// weights encode that posting cadence matters more for channel signal than
// audience size, and commit volume more for code signal than audience.
package score

import "math"

// Code scores source-control activity. Non-decreasing in every argument,
// zero when all inputs are zero.
func Code(commits, followers, publicRepos int) int {
	total := math.Log10(float64(commits)+1)*15 +
		math.Log10(float64(followers)+1)*10 +
		math.Log10(float64(publicRepos)+1)*5
	return int(math.Round(total))
}

// Channel scores messaging-channel activity. Non-decreasing in every
// argument, zero when all inputs are zero.
func Channel(participants, posts int) int {
	total := math.Log10(float64(participants)+1)*10 +
		math.Log10(float64(posts)+1)*15
	return int(math.Round(total))
}
