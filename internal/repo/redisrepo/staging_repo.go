// Package redisrepo holds short-lived booking state in Redis: drafts staged
// while the customer waits for their confirmation code, and the per-session
// submit lock that keeps double-taps from racing.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playdaycuts/booking-api/internal/domain"
)

const (
	stagingPrefix = "booking:staged:"
	lockPrefix    = "booking:submitlock:"
)

// StagedDraft is the draft plus the pending code metadata, everything needed
// to resume a half-finished booking.
type StagedDraft struct {
	Draft    domain.Draft `json:"draft"`
	Code     string       `json:"code"`
	IssuedAt time.Time    `json:"issued_at"`
}

type StagingRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStagingRepo(client *redis.Client, ttl time.Duration) *StagingRepo {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &StagingRepo{client: client, ttl: ttl}
}

// Stage stores the draft under the session ID, replacing any earlier draft
// for that session. The TTL bounds how long an abandoned booking lingers.
func (r *StagingRepo) Stage(ctx context.Context, sessionID string, staged *StagedDraft) error {
	raw, err := json.Marshal(staged)
	if err != nil {
		return fmt.Errorf("marshal staged draft: %w", err)
	}
	return r.client.Set(ctx, stagingPrefix+sessionID, raw, r.ttl).Err()
}

// Fetch returns the staged draft for the session, or nil when none is staged
// or it expired.
func (r *StagingRepo) Fetch(ctx context.Context, sessionID string) (*StagedDraft, error) {
	raw, err := r.client.Get(ctx, stagingPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var staged StagedDraft
	if err := json.Unmarshal(raw, &staged); err != nil {
		return nil, fmt.Errorf("unmarshal staged draft: %w", err)
	}
	return &staged, nil
}

// Discard drops the staged draft, if any.
func (r *StagingRepo) Discard(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, stagingPrefix+sessionID).Err()
}

// AcquireSubmitLock takes the per-session lock guarding submission. Returns
// false when another submit for the same session is already in flight.
func (r *StagingRepo) AcquireSubmitLock(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return r.client.SetNX(ctx, lockPrefix+sessionID, "1", ttl).Result()
}

// ReleaseSubmitLock frees the lock early once the submit settles.
func (r *StagingRepo) ReleaseSubmitLock(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, lockPrefix+sessionID).Err()
}
