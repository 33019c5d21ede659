// Package gateway provides gateways to the external activity sources,
// abstracting away the underlying REST clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/gityap/gityap/internal/domain"
)

const (
	repoPageSize    = 100
	commitBatchSize = 10
	searchPageSize  = 10
	searchHydrated  = 5
)

// CodeFetcher defines the behavior of a gateway for fetching activity from
// the source-control platform.
type CodeFetcher interface {
	// FetchUser resolves the profile counters for a handle. It fails with
	// domain.ErrNotFound, domain.ErrRateLimited or domain.ErrUpstream; the
	// commit counter is not populated here.
	FetchUser(ctx context.Context, handle string) (domain.ActivityProfile, error)
	// ResolveCommitCount resolves a best-effort total commit count. It never
	// fails: every tier degrades to a partial or zero value instead.
	ResolveCommitCount(ctx context.Context, handle string) int
	// SearchUsers finds profiles whose login matches the query, hydrated
	// with full counters. Candidates that fail to hydrate are dropped.
	SearchUsers(ctx context.Context, query string) ([]domain.ActivityProfile, error)
}

// CodeGateway is the concrete CodeFetcher over the GitHub REST API.
type CodeGateway struct {
	client *github.Client
	logger zerolog.Logger
}

// NewCodeGateway builds a gateway whose transport waits out secondary rate
// limits and attaches the bearer credential when one is configured.
func NewCodeGateway(token string, logger zerolog.Logger) (*CodeGateway, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("create rate limit waiter: %w", err)
	}

	httpClient := &http.Client{Transport: waiter}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient.Transport = &oauth2.Transport{Base: waiter, Source: ts}
	}

	return &CodeGateway{
		client: github.NewClient(httpClient),
		logger: logger,
	}, nil
}

func (g *CodeGateway) FetchUser(ctx context.Context, handle string) (domain.ActivityProfile, error) {
	handle = domain.NormalizeHandle(handle)
	if handle == "" {
		return domain.ActivityProfile{}, fmt.Errorf("%w: empty handle", domain.ErrInvalidInput)
	}

	user, resp, err := g.client.Users.Get(ctx, handle)
	if err != nil {
		return domain.ActivityProfile{}, classifyUpstream(resp, err)
	}

	return domain.ActivityProfile{
		Handle:      user.GetLogin(),
		Name:        user.GetName(),
		Bio:         user.GetBio(),
		AvatarURL:   user.GetAvatarURL(),
		ProfileURL:  user.GetHTMLURL(),
		Followers:   user.GetFollowers(),
		Following:   user.GetFollowing(),
		PublicRepos: user.GetPublicRepos(),
	}, nil
}

// ResolveCommitCount resolves the total commit count for a handle via an
// ordered fallback: one aggregate commit-search call first, then
// per-repository enumeration. Commit count is enrichment, not a required
// field, so every failure path yields a partial or zero value.
func (g *CodeGateway) ResolveCommitCount(ctx context.Context, handle string) int {
	handle = domain.NormalizeHandle(handle)
	if handle == "" {
		return 0
	}

	total, err := g.searchCommitTotal(ctx, handle)
	if err == nil {
		return total
	}
	g.logger.Debug().Err(err).Str("handle", handle).Msg("commit search tier unavailable, enumerating repositories")

	return g.countCommitsByRepo(ctx, handle)
}

// searchCommitTotal is the aggregate tier: the search index's total count
// for author:handle. May undercount on index lag; accepted.
func (g *CodeGateway) searchCommitTotal(ctx context.Context, handle string) (int, error) {
	query := fmt.Sprintf("author:%s", handle)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 1}}
	result, resp, err := g.client.Search.Commits(ctx, query, opts)
	if err != nil {
		return 0, classifyUpstream(resp, err)
	}
	return result.GetTotal(), nil
}

// countCommitsByRepo is the enumeration tier: list every repository, then
// count commits per repository in batches of commitBatchSize concurrent
// requests. Batch i completes before batch i+1 starts; per-repository
// failures count as zero and never abort the batch.
func (g *CodeGateway) countCommitsByRepo(ctx context.Context, handle string) int {
	repos := g.listAllRepos(ctx, handle)
	if len(repos) == 0 {
		return 0
	}

	total := 0
	for start := 0; start < len(repos); start += commitBatchSize {
		end := start + commitBatchSize
		if end > len(repos) {
			end = len(repos)
		}
		batch := repos[start:end]

		counts := make([]int, len(batch))
		var eg errgroup.Group
		for i, repo := range batch {
			i, name := i, repo.GetName()
			eg.Go(func() error {
				counts[i] = g.countRepoCommits(ctx, handle, name)
				return nil
			})
		}
		_ = eg.Wait()

		for _, n := range counts {
			total += n
		}
		if ctx.Err() != nil {
			break
		}
	}
	return total
}

func (g *CodeGateway) listAllRepos(ctx context.Context, handle string) []*github.Repository {
	opts := &github.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: repoPageSize, Page: 1},
	}

	var all []*github.Repository
	for {
		repos, _, err := g.client.Repositories.ListByUser(ctx, handle, opts)
		if err != nil {
			// Partial repository set is acceptable for enrichment.
			g.logger.Debug().Err(err).Str("handle", handle).Int("page", opts.Page).Msg("repository page fetch failed")
			break
		}
		all = append(all, repos...)
		if len(repos) < repoPageSize {
			break
		}
		opts.Page++
	}
	return all
}

// countRepoCommits counts commits authored by handle in one repository.
// With per_page=1 the pagination rel="last" page number is the commit
// count; without a pagination marker the returned array length (0 or 1) is.
func (g *CodeGateway) countRepoCommits(ctx context.Context, handle, repo string) int {
	opts := &github.CommitsListOptions{
		Author:      handle,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, resp, err := g.client.Repositories.ListCommits(ctx, handle, repo, opts)
	if err != nil {
		return 0
	}
	if resp.LastPage > 0 {
		return resp.LastPage
	}
	return len(commits)
}

func (g *CodeGateway) SearchUsers(ctx context.Context, query string) ([]domain.ActivityProfile, error) {
	query = domain.NormalizeHandle(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: searchPageSize}}
	result, resp, err := g.client.Search.Users(ctx, query, opts)
	if err != nil {
		return nil, classifyUpstream(resp, err)
	}

	hits := result.Users
	if len(hits) > searchHydrated {
		hits = hits[:searchHydrated]
	}

	profiles := make([]domain.ActivityProfile, 0, len(hits))
	for _, hit := range hits {
		profile, err := g.FetchUser(ctx, hit.GetLogin())
		if err != nil {
			g.logger.Debug().Err(err).Str("handle", hit.GetLogin()).Msg("dropping search hit that failed to hydrate")
			continue
		}
		profile.Commits = g.ResolveCommitCount(ctx, profile.Handle)
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// classifyUpstream maps transport-level failures onto the domain taxonomy:
// 404 means the handle does not exist, 403 with an exhausted rate-limit
// header means quota, anything else non-2xx is a generic upstream error.
func classifyUpstream(resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return domain.ErrRateLimited
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return domain.ErrRateLimited
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return fmt.Errorf("%w: %s", domain.ErrUpstream, respErr.Response.Status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}
