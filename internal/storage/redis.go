package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gityap/gityap/internal/domain"
)

const (
	keyCodePrefix    = "gityap:code:"
	keyChannelPrefix = "gityap:channel:"
	keyOutcomePrefix = "gityap:outcome:"
	keyCodeByCommits = "gityap:code:by_commits"
	keyChanByPosts   = "gityap:channel:by_posts"
	keyChanBySubs    = "gityap:channel:by_subs"
	keyOutcomeRecent = "gityap:outcomes:recent"
)

// Redis is the durable Store. Profiles live as JSON values with sorted
// sets maintaining the leaderboard orderings; outcomes live under their
// pair key with a recency sorted set on top.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Connect accepts either a redis:// URL or a bare host:port address.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func codeKey(handle string) string {
	return keyCodePrefix + strings.ToLower(domain.NormalizeHandle(handle))
}

func channelKey(handle string) string {
	return keyChannelPrefix + strings.ToLower(domain.NormalizeHandle(handle))
}

func (s *Redis) UpsertCodeProfile(ctx context.Context, profile domain.ActivityProfile) error {
	member := strings.ToLower(domain.NormalizeHandle(profile.Handle))
	if member == "" {
		return domain.ErrInvalidInput
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal code profile: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyCodePrefix+member, raw, 0)
		p.ZAdd(ctx, keyCodeByCommits, redis.Z{Score: float64(profile.Commits), Member: member})
		return nil
	})
	return err
}

func (s *Redis) UpsertChannelProfile(ctx context.Context, profile domain.ChannelProfile) error {
	member := strings.ToLower(domain.NormalizeHandle(profile.Handle))
	if member == "" {
		return domain.ErrInvalidInput
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal channel profile: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyChannelPrefix+member, raw, 0)
		p.ZAdd(ctx, keyChanByPosts, redis.Z{Score: float64(profile.Posts), Member: member})
		p.ZAdd(ctx, keyChanBySubs, redis.Z{Score: float64(profile.Participants), Member: member})
		return nil
	})
	return err
}

func (s *Redis) CodeProfile(ctx context.Context, handle string) (domain.ActivityProfile, bool, error) {
	raw, err := s.client.Get(ctx, codeKey(handle)).Bytes()
	if err == redis.Nil {
		return domain.ActivityProfile{}, false, nil
	}
	if err != nil {
		return domain.ActivityProfile{}, false, err
	}
	var profile domain.ActivityProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.ActivityProfile{}, false, fmt.Errorf("unmarshal code profile: %w", err)
	}
	return profile, true, nil
}

func (s *Redis) ChannelProfile(ctx context.Context, handle string) (domain.ChannelProfile, bool, error) {
	raw, err := s.client.Get(ctx, channelKey(handle)).Bytes()
	if err == redis.Nil {
		return domain.ChannelProfile{}, false, nil
	}
	if err != nil {
		return domain.ChannelProfile{}, false, err
	}
	var profile domain.ChannelProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.ChannelProfile{}, false, fmt.Errorf("unmarshal channel profile: %w", err)
	}
	return profile, true, nil
}

func (s *Redis) CandidatePool(ctx context.Context, exclude ...string) ([]domain.Candidate, error) {
	skip := excludeSet(exclude)

	members, err := s.client.ZRevRange(ctx, keyChanByPosts, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	pool := make([]domain.Candidate, 0, len(members))
	for _, member := range members {
		if _, excluded := skip[member]; excluded {
			continue
		}
		channel, ok, err := s.ChannelProfile(ctx, member)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		candidate := domain.Candidate{Handle: channel.Handle, Posts: channel.Posts}
		if code, ok, err := s.CodeProfile(ctx, member); err != nil {
			return nil, err
		} else if ok {
			candidate.Commits = code.Commits
		}
		pool = append(pool, candidate)
	}
	return pool, nil
}

func (s *Redis) RecordOutcome(ctx context.Context, outcome domain.ComparisonOutcome) error {
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now()
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	key := pairKey(outcome)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keyOutcomePrefix+key)
		p.Set(ctx, keyOutcomePrefix+key, raw, 0)
		p.ZAdd(ctx, keyOutcomeRecent, redis.Z{Score: float64(outcome.CreatedAt.UnixNano()), Member: key})
		return nil
	})
	return err
}

func (s *Redis) RecentOutcomes(ctx context.Context, limit int) ([]domain.ComparisonOutcome, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	keys, err := s.client.ZRevRange(ctx, keyOutcomeRecent, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.ComparisonOutcome, 0, len(keys))
	for _, key := range keys {
		raw, err := s.client.Get(ctx, keyOutcomePrefix+key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var outcome domain.ComparisonOutcome
		if err := json.Unmarshal(raw, &outcome); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (s *Redis) CountOutcomes(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, keyOutcomeRecent).Result()
	return int(n), err
}

func (s *Redis) TopCodeProfiles(ctx context.Context) ([]domain.ActivityProfile, error) {
	members, err := s.client.ZRevRange(ctx, keyCodeByCommits, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	profiles := make([]domain.ActivityProfile, 0, len(members))
	for _, member := range members {
		profile, ok, err := s.CodeProfile(ctx, member)
		if err != nil {
			return nil, err
		}
		if ok {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}

func (s *Redis) TopChannels(ctx context.Context, order ChannelOrder) ([]domain.ChannelProfile, error) {
	key := keyChanByPosts
	if order == OrderBySubscribers {
		key = keyChanBySubs
	}
	members, err := s.client.ZRevRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	channels := make([]domain.ChannelProfile, 0, len(members))
	for _, member := range members {
		channel, ok, err := s.ChannelProfile(ctx, member)
		if err != nil {
			return nil, err
		}
		if ok {
			channels = append(channels, channel)
		}
	}
	return channels, nil
}
