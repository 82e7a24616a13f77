package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/helmkit/pkg/errors"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(config.RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Success(t *testing.T) {
	client, _ := newMiniredisClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond}, nil)
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func TestClient_Operations(t *testing.T) {
	client, _ := newMiniredisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foo", "bar", 0).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)

	n, err := client.Exists(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	deleted, err := client.Del(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestClient_Close(t *testing.T) {
	client, _ := newMiniredisClient(t)

	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Set(ctx, "foo", "bar", 0).Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Exists(ctx, "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 10).Err())
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
}

func TestCanonicalCache_Miniredis(t *testing.T) {
	client, mr := newMiniredisClient(t)
	cache := NewCanonicalCache(client, nil, WithPrefix("it:"), WithTTL(time.Hour))
	ctx := context.Background()

	entry := &CanonicalEntry{Canonical: "PEPTIDE1{A}$$$$", Candidates: 1}
	require.NoError(t, cache.Set(ctx, "PEPTIDE1{A}$$$$V2.0", entry))
	assert.Equal(t, time.Hour, mr.TTL(Key("it:", "PEPTIDE1{A}$$$$V2.0")))

	got, err := cache.Get(ctx, "PEPTIDE1{A}$$$$V2.0")
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	require.NoError(t, mr.Set("it:other", "kept"))
	n, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, mr.Exists("it:other"))

	mr.FastForward(2 * time.Hour)
	_, err = cache.Get(ctx, "PEPTIDE1{A}$$$$V2.0")
	assert.Equal(t, ErrCacheMiss, err)
}

func TestCanonicalCache_SingleFlight(t *testing.T) {
	client, _ := newMiniredisClient(t)
	cache := NewCanonicalCache(client, nil)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (*CanonicalEntry, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &CanonicalEntry{Canonical: "PEPTIDE1{A}$$$$", Candidates: 1}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*CanonicalEntry, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, _, err := cache.GetOrCompute(ctx, "PEPTIDE1{A}$$$$V2.0", compute)
			assert.NoError(t, err)
			results[i] = e
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, e := range results {
		require.NotNil(t, e)
		assert.Equal(t, "PEPTIDE1{A}$$$$", e.Canonical)
	}

	// Subsequent callers hit the stored entry.
	_, hit, err := cache.GetOrCompute(ctx, "PEPTIDE1{A}$$$$V2.0", compute)
	require.NoError(t, err)
	assert.True(t, hit)
}
