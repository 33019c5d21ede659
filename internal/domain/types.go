// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"strings"
	"time"
)

// Source identifies which platform a handle belongs to.
type Source string

const (
	SourceCode    Source = "github"
	SourceChannel Source = "telegram"
)

// Winner is the verdict of a comparison.
type Winner string

const (
	WinnerLeft  Winner = "left"
	WinnerRight Winner = "right"
	WinnerDraw  Winner = "draw"
)

// ComparisonType distinguishes the two kinds of recorded comparisons.
type ComparisonType string

const (
	CompareUserVsChannel    ComparisonType = "user_vs_channel"
	CompareChannelVsChannel ComparisonType = "channel_vs_channel"
)

// ActivityProfile is the resolved set of activity counters for one
// source-control handle. The commit count is best-effort and may be
// approximate when the resolver had to degrade.
type ActivityProfile struct {
	Handle      string `json:"handle"`
	Name        string `json:"name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatarUrl"`
	ProfileURL  string `json:"profileUrl"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	PublicRepos int    `json:"publicRepos"`
	Commits     int    `json:"commits"`
}

// ChannelProfile is the resolved counters for one messaging channel.
// It is supplied wholesale by the channel-info collaborator.
type ChannelProfile struct {
	Handle       string `json:"handle"`
	Title        string `json:"title"`
	Posts        int    `json:"posts"`
	Participants int    `json:"participants"`
}

// OutcomeSide is one side of a persisted comparison.
type OutcomeSide struct {
	Handle    string `json:"handle"`
	Source    Source `json:"source"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ComparisonOutcome is the durable record of a single comparison. It is
// created once and superseded, never mutated, by later outcomes for the
// same handle pair.
type ComparisonOutcome struct {
	Type       ComparisonType `json:"type"`
	Left       OutcomeSide    `json:"left"`
	Right      OutcomeSide    `json:"right"`
	LeftScore  int            `json:"leftScore"`
	RightScore int            `json:"rightScore"`
	Winner     Winner         `json:"winner"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Candidate is a denormalized join of channel and code-activity counters
// for one previously observed handle, used by the match ranker.
type Candidate struct {
	Handle  string `json:"handle"`
	Posts   int    `json:"posts"`
	Commits int    `json:"commits"`
}

// MatchResult is a best-match recommendation. Handle is empty when the
// candidate pool had nothing to offer; CodeHandleGuess is empty when no
// plausible code-platform handle could be resolved.
type MatchResult struct {
	Handle          string `json:"handle"`
	Reason          string `json:"reason"`
	CodeHandleGuess string `json:"codeHandleGuess,omitempty"`
}

// DeriveWinner applies the verdict invariant: left wins iff its score is
// strictly greater, draw iff equal.
func DeriveWinner(leftScore, rightScore int) Winner {
	switch {
	case leftScore > rightScore:
		return WinnerLeft
	case rightScore > leftScore:
		return WinnerRight
	default:
		return WinnerDraw
	}
}

// NormalizeHandle strips leading "@" markers and surrounding whitespace.
// All handles cross component boundaries in this form.
func NormalizeHandle(handle string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(handle), "@"))
}
