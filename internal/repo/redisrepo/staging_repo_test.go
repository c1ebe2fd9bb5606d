package redisrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playdaycuts/booking-api/internal/domain"
)

func newRepo(t *testing.T) (*StagingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStagingRepo(client, 30*time.Minute), mr
}

func staged() *StagedDraft {
	return &StagedDraft{
		Draft: domain.Draft{
			Name:  "Alex",
			Phone: "5551234567",
			Cut:   "Volume 1 Cut",
			Day:   "Saturday",
			Date:  "6/14",
			Time:  "12:00PM",
		},
		Code:     "QWXYZ",
		IssuedAt: time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestStageFetchRoundTrip(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Stage(ctx, "sess-1", staged()))

	got, err := repo.Fetch(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "QWXYZ", got.Code)
	assert.Equal(t, "Alex", got.Draft.Name)
	assert.True(t, got.IssuedAt.Equal(staged().IssuedAt))
}

func TestFetchMissingReturnsNil(t *testing.T) {
	repo, _ := newRepo(t)
	got, err := repo.Fetch(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStagedDraftExpires(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Stage(ctx, "sess-1", staged()))
	mr.FastForward(31 * time.Minute)

	got, err := repo.Fetch(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired drafts read as absent")
}

func TestDiscard(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Stage(ctx, "sess-1", staged()))
	require.NoError(t, repo.Discard(ctx, "sess-1"))

	got, err := repo.Fetch(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubmitLockIsExclusive(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()

	ok, err := repo.AcquireSubmitLock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := repo.AcquireSubmitLock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, again, "second submit while one is in flight must not proceed")

	// A different session is unaffected.
	other, err := repo.AcquireSubmitLock(ctx, "sess-2", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, other)

	require.NoError(t, repo.ReleaseSubmitLock(ctx, "sess-1"))
	ok, err = repo.AcquireSubmitLock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// The lock also frees itself if the holder dies.
	mr.FastForward(31 * time.Second)
	ok, err = repo.AcquireSubmitLock(ctx, "sess-1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
