// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gityap/gityap/internal/domain"
	"github.com/gityap/gityap/internal/gateway"
	"github.com/gityap/gityap/internal/match"
	"github.com/gityap/gityap/internal/score"
	"github.com/gityap/gityap/internal/storage"
)

const defaultRecentLimit = 10

// Reconciler composes the gateways, the scorer and the ranker into the
// public comparison and matching operations, recording outcomes through
// the persistence collaborator.
type Reconciler struct {
	code     gateway.CodeFetcher
	channels gateway.ChannelResolver
	store    storage.Store
	logger   zerolog.Logger
}

func NewReconciler(code gateway.CodeFetcher, channels gateway.ChannelResolver, store storage.Store, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		code:     code,
		channels: channels,
		store:    store,
		logger:   logger,
	}
}

// CompareResult is the JSON shape the presentation layer consumes for a
// code-vs-channel comparison.
type CompareResult struct {
	Code         domain.ActivityProfile `json:"github"`
	Channel      domain.ChannelProfile  `json:"telegram"`
	CodeScore    int                    `json:"githubScore"`
	ChannelScore int                    `json:"telegramScore"`
	Winner       domain.Winner          `json:"winner"`
}

// ChannelSide is one side of a channel-vs-channel comparison, enriched
// with a best-effort commit count.
type ChannelSide struct {
	domain.ChannelProfile
	Commits int `json:"commits"`
	Score   int `json:"score"`
}

type ChannelCompareResult struct {
	Left   ChannelSide   `json:"left"`
	Right  ChannelSide   `json:"right"`
	Winner domain.Winner `json:"winner"`
}

// ScoreSummary is a distribution summary over one counter across the
// whole leaderboard.
type ScoreSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
}

type LeaderboardSnapshot struct {
	Code                  []domain.ActivityProfile `json:"github"`
	Channels              []domain.ChannelProfile  `json:"telegram"`
	ChannelsBySubscribers []domain.ChannelProfile  `json:"telegramBySubscribers"`
	Comparisons           int                      `json:"comparisonsCount"`
	CommitSummary         ScoreSummary             `json:"commitSummary"`
	PostSummary           ScoreSummary             `json:"postSummary"`
}

// ResolveCodeProfile fetches the code profile, enriches it with the
// best-effort commit count and records the observation. A deadline that
// expires mid-enrichment surfaces as a timeout rather than a partial count.
func (r *Reconciler) ResolveCodeProfile(ctx context.Context, handle string) (domain.ActivityProfile, error) {
	profile, err := r.code.FetchUser(ctx, handle)
	if err != nil {
		return domain.ActivityProfile{}, r.translate(ctx, err)
	}

	profile.Commits = r.code.ResolveCommitCount(ctx, profile.Handle)
	if ctx.Err() != nil {
		return domain.ActivityProfile{}, domain.ErrTimeout
	}

	if err := r.store.UpsertCodeProfile(ctx, profile); err != nil {
		r.logger.Error().Err(err).Str("handle", profile.Handle).Msg("code profile upsert failed")
	}
	return profile, nil
}

// ResolveChannelProfile fetches the channel counters and records the
// observation.
func (r *Reconciler) ResolveChannelProfile(ctx context.Context, handle, session string) (domain.ChannelProfile, error) {
	profile, err := r.channels.ResolveChannel(ctx, handle, session)
	if err != nil {
		return domain.ChannelProfile{}, r.translate(ctx, err)
	}
	if err := r.store.UpsertChannelProfile(ctx, profile); err != nil {
		r.logger.Error().Err(err).Str("handle", profile.Handle).Msg("channel profile upsert failed")
	}
	return profile, nil
}

// CompareEntities resolves both sides in parallel, scores them, derives
// the verdict and persists the outcome. Profile existence failures on
// either side fail the whole operation; commit-count enrichment failures
// do not. Outcome recording is best-effort.
func (r *Reconciler) CompareEntities(ctx context.Context, codeHandle, channelHandle, session string) (*CompareResult, error) {
	codeHandle = domain.NormalizeHandle(codeHandle)
	channelHandle = domain.NormalizeHandle(channelHandle)
	if codeHandle == "" || channelHandle == "" {
		return nil, fmt.Errorf("%w: both handles are required", domain.ErrInvalidInput)
	}

	var (
		codeProfile    domain.ActivityProfile
		channelProfile domain.ChannelProfile
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		codeProfile, err = r.ResolveCodeProfile(egCtx, codeHandle)
		return err
	})
	eg.Go(func() error {
		var err error
		channelProfile, err = r.ResolveChannelProfile(egCtx, channelHandle, session)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, r.translate(ctx, err)
	}

	result := &CompareResult{
		Code:         codeProfile,
		Channel:      channelProfile,
		CodeScore:    score.Code(codeProfile.Commits, codeProfile.Followers, codeProfile.PublicRepos),
		ChannelScore: score.Channel(channelProfile.Participants, channelProfile.Posts),
	}
	result.Winner = domain.DeriveWinner(result.CodeScore, result.ChannelScore)

	r.record(ctx, domain.ComparisonOutcome{
		Type: domain.CompareUserVsChannel,
		Left: domain.OutcomeSide{
			Handle:    codeProfile.Handle,
			Source:    domain.SourceCode,
			AvatarURL: codeProfile.AvatarURL,
		},
		Right: domain.OutcomeSide{
			Handle:    channelProfile.Handle,
			Source:    domain.SourceChannel,
			AvatarURL: channelAvatarURL(channelProfile.Handle),
		},
		LeftScore:  result.CodeScore,
		RightScore: result.ChannelScore,
		Winner:     result.Winner,
	})

	return result, nil
}

// CompareChannels resolves two channels in parallel and scores them.
// Each side is additionally enriched with a commit count looked up in
// order: stored code profile for the hint (or the channel handle), live
// fetch, then fuzzy code-handle search. Every enrichment step is optional.
func (r *Reconciler) CompareChannels(ctx context.Context, leftHandle, rightHandle, leftCodeHint, rightCodeHint, session string) (*ChannelCompareResult, error) {
	leftHandle = domain.NormalizeHandle(leftHandle)
	rightHandle = domain.NormalizeHandle(rightHandle)
	if leftHandle == "" || rightHandle == "" {
		return nil, fmt.Errorf("%w: both channel handles are required", domain.ErrInvalidInput)
	}

	var left, right domain.ChannelProfile
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		left, err = r.ResolveChannelProfile(egCtx, leftHandle, session)
		return err
	})
	eg.Go(func() error {
		var err error
		right, err = r.ResolveChannelProfile(egCtx, rightHandle, session)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, r.translate(ctx, err)
	}

	result := &ChannelCompareResult{
		Left: ChannelSide{
			ChannelProfile: left,
			Commits:        r.commitsForChannel(ctx, left.Handle, leftCodeHint),
			Score:          score.Channel(left.Participants, left.Posts),
		},
		Right: ChannelSide{
			ChannelProfile: right,
			Commits:        r.commitsForChannel(ctx, right.Handle, rightCodeHint),
			Score:          score.Channel(right.Participants, right.Posts),
		},
	}
	result.Winner = domain.DeriveWinner(result.Left.Score, result.Right.Score)

	r.record(ctx, domain.ComparisonOutcome{
		Type: domain.CompareChannelVsChannel,
		Left: domain.OutcomeSide{
			Handle:    left.Handle,
			Source:    domain.SourceChannel,
			AvatarURL: channelAvatarURL(left.Handle),
		},
		Right: domain.OutcomeSide{
			Handle:    right.Handle,
			Source:    domain.SourceChannel,
			AvatarURL: channelAvatarURL(right.Handle),
		},
		LeftScore:  result.Left.Score,
		RightScore: result.Right.Score,
		Winner:     result.Winner,
	})

	return result, nil
}

// commitsForChannel looks up a commit count for a channel: stored profile
// under the hint (or the channel handle itself), then a live resolution,
// then a fuzzy search for a plausible code handle. Failures at every step
// are absorbed; zero means no code signal was found.
func (r *Reconciler) commitsForChannel(ctx context.Context, channelHandle, codeHint string) int {
	lookup := domain.NormalizeHandle(codeHint)
	if lookup == "" {
		lookup = channelHandle
	}

	if stored, ok, err := r.store.CodeProfile(ctx, lookup); err == nil && ok && stored.Commits > 0 {
		return stored.Commits
	}

	if profile, err := r.ResolveCodeProfile(ctx, lookup); err == nil && profile.Commits > 0 {
		return profile.Commits
	}

	if guess, ok := r.guessCodeHandle(ctx, lookup); ok {
		if profile, err := r.ResolveCodeProfile(ctx, guess); err == nil {
			return profile.Commits
		}
	}
	return 0
}

// FindCofounderMatch ranks the persisted candidate pool around the given
// channel and attempts to resolve a plausible code-platform handle for the
// winner. Guess resolution failure is non-fatal; the guess is omitted.
func (r *Reconciler) FindCofounderMatch(ctx context.Context, channelHandle, codeHint, excludeHandle string) (domain.MatchResult, bool, error) {
	channelHandle = domain.NormalizeHandle(channelHandle)
	if channelHandle == "" {
		return domain.MatchResult{}, false, fmt.Errorf("%w: channel handle is required", domain.ErrInvalidInput)
	}

	source := match.Source{Handle: channelHandle, Exclude: excludeHandle}
	if channel, ok, err := r.store.ChannelProfile(ctx, channelHandle); err != nil {
		return domain.MatchResult{}, false, err
	} else if ok {
		source.Posts = channel.Posts
	}

	codeLookup := domain.NormalizeHandle(codeHint)
	if codeLookup == "" {
		codeLookup = channelHandle
	}
	if code, ok, err := r.store.CodeProfile(ctx, codeLookup); err != nil {
		return domain.MatchResult{}, false, err
	} else if ok {
		source.Commits = code.Commits
	}

	pool, err := r.store.CandidatePool(ctx, channelHandle, excludeHandle)
	if err != nil {
		return domain.MatchResult{}, false, err
	}

	result, found := match.FindBestMatch(source, pool)
	if !found {
		return domain.MatchResult{}, false, nil
	}

	if guess, ok := r.guessCodeHandle(ctx, result.Handle); ok {
		result.CodeHandleGuess = guess
	}
	return result, true, nil
}

// guessCodeHandle searches the code platform for the handle and accepts
// only a high-confidence spelling match.
func (r *Reconciler) guessCodeHandle(ctx context.Context, handle string) (string, bool) {
	profiles, err := r.code.SearchUsers(ctx, handle)
	if err != nil {
		r.logger.Debug().Err(err).Str("handle", handle).Msg("code handle search failed")
		return "", false
	}
	for _, p := range profiles {
		if match.HighConfidenceMatch(handle, p.Handle) {
			return p.Handle, true
		}
	}
	return "", false
}

// SearchCodeUsers proxies the code-platform user search.
func (r *Reconciler) SearchCodeUsers(ctx context.Context, query string) ([]domain.ActivityProfile, error) {
	profiles, err := r.code.SearchUsers(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err)
	}
	return profiles, nil
}

// Leaderboard assembles the read-only snapshot. It never mutates
// persisted state.
func (r *Reconciler) Leaderboard(ctx context.Context) (*LeaderboardSnapshot, error) {
	code, err := r.store.TopCodeProfiles(ctx)
	if err != nil {
		return nil, err
	}
	channels, err := r.store.TopChannels(ctx, storage.OrderByPosts)
	if err != nil {
		return nil, err
	}
	bySubs, err := r.store.TopChannels(ctx, storage.OrderBySubscribers)
	if err != nil {
		return nil, err
	}
	comparisons, err := r.store.CountOutcomes(ctx)
	if err != nil {
		return nil, err
	}

	commits := make([]float64, len(code))
	for i, p := range code {
		commits[i] = float64(p.Commits)
	}
	posts := make([]float64, len(channels))
	for i, c := range channels {
		posts[i] = float64(c.Posts)
	}

	return &LeaderboardSnapshot{
		Code:                  code,
		Channels:              channels,
		ChannelsBySubscribers: bySubs,
		Comparisons:           comparisons,
		CommitSummary:         summarize(commits),
		PostSummary:           summarize(posts),
	}, nil
}

// RecentComparisons returns the latest persisted outcomes, newest first.
// Read-only.
func (r *Reconciler) RecentComparisons(ctx context.Context, limit int) ([]domain.ComparisonOutcome, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return r.store.RecentOutcomes(ctx, limit)
}

// record persists an outcome. Recording is best-effort: the comparison
// already computed, so a write failure is logged and the result stands.
func (r *Reconciler) record(ctx context.Context, outcome domain.ComparisonOutcome) {
	if err := r.store.RecordOutcome(ctx, outcome); err != nil {
		r.logger.Error().Err(err).
			Str("left", outcome.Left.Handle).
			Str("right", outcome.Right.Handle).
			Msg("outcome recording failed")
	}
}

func (r *Reconciler) translate(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return domain.ErrTimeout
	}
	return err
}

func summarize(values []float64) ScoreSummary {
	if len(values) == 0 {
		return ScoreSummary{}
	}
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	p90, _ := stats.Percentile(values, 90)
	return ScoreSummary{Mean: mean, Median: median, P90: p90}
}

func channelAvatarURL(handle string) string {
	return "https://t.me/i/userpic/320/" + handle + ".jpg"
}
