package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gityap/gityap/internal/domain"
	"github.com/gityap/gityap/internal/gateway"
	"github.com/gityap/gityap/internal/storage"
	"github.com/gityap/gityap/internal/usecase"
)

type stubCode struct {
	profile domain.ActivityProfile
	commits int
	err     error
}

func (s stubCode) FetchUser(context.Context, string) (domain.ActivityProfile, error) {
	return s.profile, s.err
}

func (s stubCode) ResolveCommitCount(context.Context, string) int { return s.commits }

func (s stubCode) SearchUsers(context.Context, string) ([]domain.ActivityProfile, error) {
	return nil, s.err
}

type stubChannels struct {
	profile domain.ChannelProfile
	err     error
}

func (s stubChannels) ResolveChannel(_ context.Context, _, session string) (domain.ChannelProfile, error) {
	if session == "" {
		return domain.ChannelProfile{}, domain.ErrUnauthenticated
	}
	return s.profile, s.err
}

func newTestServer(t *testing.T, code gateway.CodeFetcher, channels gateway.ChannelResolver, store storage.Store) *httptest.Server {
	t.Helper()
	recon := usecase.NewReconciler(code, channels, store, zerolog.Nop())
	handler := NewHandler(recon, zerolog.Nop(), time.Second)
	server := httptest.NewServer(NewRouter(handler, zerolog.Nop()))
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, server *httptest.Server, path, session string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	require.NoError(t, err)
	if session != "" {
		req.Header.Set("Authorization", "Bearer "+session)
	}
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestRouter_Healthz(t *testing.T) {
	server := newTestServer(t, stubCode{}, stubChannels{}, storage.NewMemory())

	resp, body := getJSON(t, server, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestCompareEndpoint(t *testing.T) {
	server := newTestServer(t,
		stubCode{profile: domain.ActivityProfile{Handle: "dev", Followers: 9, PublicRepos: 9}, commits: 99},
		stubChannels{profile: domain.ChannelProfile{Handle: "buildlog", Posts: 9, Participants: 9}},
		storage.NewMemory(),
	)

	resp, body := getJSON(t, server, "/v1/compare?github=dev&telegram=buildlog", "sess")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "left", body["winner"])
	assert.EqualValues(t, 45, body["githubScore"])
	assert.EqualValues(t, 25, body["telegramScore"])

	github, ok := body["github"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "dev", github["handle"])
	assert.EqualValues(t, 99, github["commits"])

	telegram, ok := body["telegram"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "buildlog", telegram["handle"])
}

func TestCompareEndpoint_MissingParams(t *testing.T) {
	server := newTestServer(t, stubCode{}, stubChannels{}, storage.NewMemory())

	resp, body := getJSON(t, server, "/v1/compare?github=dev", "sess")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
}

func TestCodeProfileEndpoint_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "unknown handle", err: domain.ErrNotFound, expectedStatus: http.StatusNotFound, expectedCode: "NOT_FOUND"},
		{name: "quota exhausted", err: domain.ErrRateLimited, expectedStatus: http.StatusTooManyRequests, expectedCode: "RATE_LIMITED"},
		{name: "upstream failure", err: domain.ErrUpstream, expectedStatus: http.StatusBadGateway, expectedCode: "UPSTREAM_ERROR"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, stubCode{err: tc.err}, stubChannels{}, storage.NewMemory())

			resp, body := getJSON(t, server, "/v1/code/ghost", "")
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)

			errBody, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.expectedCode, errBody["code"])
		})
	}
}

func TestChannelEndpoint_MissingSession(t *testing.T) {
	server := newTestServer(t, stubCode{}, stubChannels{}, storage.NewMemory())

	resp, body := getJSON(t, server, "/v1/channel/buildlog", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "UNAUTHENTICATED", errBody["code"])
}

func TestMatchEndpoint_EmptyPoolSerializesNulls(t *testing.T) {
	server := newTestServer(t, stubCode{}, stubChannels{}, storage.NewMemory())

	resp, body := getJSON(t, server, "/v1/match?telegram=lonely", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	handle, present := body["handle"]
	assert.True(t, present, "handle key must be present")
	assert.Nil(t, handle)
	assert.Nil(t, body["reason"])
	_, present = body["githubUsername"]
	assert.False(t, present, "guess is omitted entirely when absent")
}

func TestMatchEndpoint_Found(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "srcchan", Posts: 20}))
	require.NoError(t, store.UpsertChannelProfile(ctx, domain.ChannelProfile{Handle: "other", Posts: 10}))

	server := newTestServer(t, stubCode{}, stubChannels{}, store)

	resp, body := getJSON(t, server, "/v1/match?telegram=srcchan", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "other", body["handle"])
	assert.NotEmpty(t, body["reason"])
}

func TestRecentComparisonsEndpoint(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.RecordOutcome(context.Background(), domain.ComparisonOutcome{
		Type:      domain.CompareUserVsChannel,
		Left:      domain.OutcomeSide{Handle: "dev", Source: domain.SourceCode},
		Right:     domain.OutcomeSide{Handle: "buildlog", Source: domain.SourceChannel},
		Winner:    domain.WinnerDraw,
		CreatedAt: time.Now(),
	}))

	server := newTestServer(t, stubCode{}, stubChannels{}, store)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/comparisons/recent?limit=5", nil)
	require.NoError(t, err)
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcomes []domain.ComparisonOutcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcomes))
	require.Len(t, outcomes, 1)
	assert.Equal(t, domain.WinnerDraw, outcomes[0].Winner)
}

func TestLeaderboardEndpoint(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.UpsertCodeProfile(context.Background(), domain.ActivityProfile{Handle: "dev", Commits: 12}))

	server := newTestServer(t, stubCode{}, stubChannels{}, store)

	resp, body := getJSON(t, server, "/v1/leaderboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	github, ok := body["github"].([]any)
	require.True(t, ok)
	assert.Len(t, github, 1)
	assert.EqualValues(t, 0, body["comparisonsCount"])
}
