package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gityap/gityap/internal/domain"
)

// ChannelResolver defines the channel-info collaborator: given a channel
// handle and an opaque session token it yields the channel's counters.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, handle, session string) (domain.ChannelProfile, error)
}

// ChannelBridge resolves channels through the messaging bridge sidecar,
// the process that holds the actual messaging-platform session. The wire
// protocol to the platform itself lives entirely on the other side of
// this HTTP boundary.
type ChannelBridge struct {
	client  *http.Client
	baseURL string
}

func NewChannelBridge(baseURL string) *ChannelBridge {
	return &ChannelBridge{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// channelPayload is the bridge's response shape. Untyped data never
// travels past this boundary.
type channelPayload struct {
	Title             string `json:"title"`
	Username          string `json:"username"`
	PostCount         int    `json:"post_count"`
	ParticipantsCount int    `json:"participants_count"`
}

func (b *ChannelBridge) ResolveChannel(ctx context.Context, handle, session string) (domain.ChannelProfile, error) {
	handle = domain.NormalizeHandle(handle)
	if handle == "" {
		return domain.ChannelProfile{}, fmt.Errorf("%w: empty channel handle", domain.ErrInvalidInput)
	}
	if session == "" {
		return domain.ChannelProfile{}, fmt.Errorf("%w: missing session", domain.ErrUnauthenticated)
	}

	endpoint := fmt.Sprintf("%s/channels/%s", b.baseURL, url.PathEscape(handle))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ChannelProfile{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+session)

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ChannelProfile{}, domain.ErrTimeout
		}
		return domain.ChannelProfile{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ChannelProfile{}, domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return domain.ChannelProfile{}, domain.ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.ChannelProfile{}, fmt.Errorf("%w: %s", domain.ErrUpstream, resp.Status)
	}

	var payload channelPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ChannelProfile{}, fmt.Errorf("%w: decode channel payload: %v", domain.ErrUpstream, err)
	}

	return validateChannel(handle, payload)
}

// validateChannel enforces the required fields at the collaborator
// boundary. The bridge may omit the username for private channels, in
// which case the requested handle stands in.
func validateChannel(requested string, payload channelPayload) (domain.ChannelProfile, error) {
	handle := domain.NormalizeHandle(payload.Username)
	if handle == "" {
		handle = requested
	}
	title := payload.Title
	if title == "" {
		title = handle
	}
	if payload.PostCount < 0 || payload.ParticipantsCount < 0 {
		return domain.ChannelProfile{}, fmt.Errorf("%w: negative channel counters", domain.ErrUpstream)
	}
	return domain.ChannelProfile{
		Handle:       handle,
		Title:        title,
		Posts:        payload.PostCount,
		Participants: payload.ParticipantsCount,
	}, nil
}
