package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingFetch(calls *int32, data interface{}, err error) FetchFunc {
	return func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(calls, 1)
		return data, err
	}
}

func Test_getOrFetch_staleServe(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	fetch := countingFetch(&calls, "payload", nil)

	res, err := s.GetOrFetch(ctx, "k", fetch, false)
	require.NoError(t, err)
	assert.Equal(t, "payload", res.Data)
	assert.False(t, res.Loading)
	assert.False(t, res.UpdatedAt.IsZero())

	// second read serves the stored data without invoking fetch again
	res, err = s.GetOrFetch(ctx, "k", fetch, false)
	require.NoError(t, err)
	assert.Equal(t, "payload", res.Data)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func Test_getOrFetch_firstFailureLeavesKeyAbsent(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	boom := errors.New("boom")
	var calls int32

	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, nil, boom), false)
	assert.Equal(t, boom, errors.Cause(err))

	_, ok := s.Peek("k")
	assert.False(t, ok)

	// a later fetch starts clean
	res, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, 42, nil), false)
	require.NoError(t, err)
	assert.Equal(t, 42, res.Data)
}

func Test_refresh_failurePreservesData(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "d1", nil), false)
	require.NoError(t, err)

	// swap in a failing fetch and refresh silently
	boom := errors.New("network down")
	_, err = s.GetOrFetch(ctx, "k", countingFetch(&calls, nil, boom), false)
	require.NoError(t, err) // stale serve, no fetch

	res, err := s.Refresh(ctx, "k", true)
	assert.Equal(t, boom, errors.Cause(err))
	assert.Equal(t, "d1", res.Data) // previous data retained
	assert.Equal(t, boom, errors.Cause(res.Err))

	peek, ok := s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "d1", peek.Data)
}

func Test_refresh_unknownKey(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Refresh(context.Background(), "nope", false)
	assert.Equal(t, ErrUnknownKey, errors.Cause(err))
}

func Test_refresh_loadingFlag(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := func(ctx context.Context) (interface{}, error) {
		started <- struct{}{}
		<-release
		return "fresh", nil
	}

	var calls int32
	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "stale", nil), false)
	require.NoError(t, err)
	_, _ = s.GetOrFetch(ctx, "k", blocking, false) // register blocking fetch

	// silent refresh: the observable loading flag never flips
	refreshed := make(chan struct{})
	go func() {
		defer close(refreshed)
		_, _ = s.Refresh(ctx, "k", true)
	}()
	<-started
	res, ok := s.Peek("k")
	require.True(t, ok)
	assert.False(t, res.Loading)
	assert.Equal(t, "stale", res.Data) // old data still visible
	close(release)
	<-refreshed

	res, ok = s.Peek("k")
	require.True(t, ok)
	assert.Equal(t, "fresh", res.Data)
	assert.False(t, res.Loading)
}

func Test_refresh_foregroundSetsLoading(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "d1", nil), false)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	_, _ = s.GetOrFetch(ctx, "k", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return "d2", nil
	}, false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(ctx, "k", false)
	}()
	<-started
	res, ok := s.Peek("k")
	require.True(t, ok)
	assert.True(t, res.Loading)
	close(release)
	<-done

	res, ok = s.Peek("k")
	require.True(t, ok)
	assert.False(t, res.Loading)
	assert.Equal(t, "d2", res.Data)
}

func Test_singleInFlightPerKey(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "once", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.GetOrFetch(ctx, "k", fetch, false)
			assert.NoError(t, err)
			assert.Equal(t, "once", res.Data)
		}()
	}

	// let both callers reach the flight before releasing the fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func Test_invalidate_exactAndPrefix(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	for _, k := range []string{"dashboard:stats:2025", "dashboard:stats:2024", "users:list"} {
		_, err := s.GetOrFetch(ctx, k, countingFetch(&calls, k, nil), false)
		require.NoError(t, err)
	}

	s.Invalidate("dashboard:")
	_, ok := s.Peek("dashboard:stats:2025")
	assert.False(t, ok)
	_, ok = s.Peek("dashboard:stats:2024")
	assert.False(t, ok)
	_, ok = s.Peek("users:list")
	assert.True(t, ok)

	s.Invalidate("users:list")
	_, ok = s.Peek("users:list")
	assert.False(t, ok)

	// next read fetches fresh
	res, err := s.GetOrFetch(ctx, "users:list", countingFetch(&calls, "fresh", nil), false)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Data)
}

func Test_invalidate_supersedesInFlightFetch(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "d1", nil), false)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	_, _ = s.GetOrFetch(ctx, "k", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return "superseded", nil
	}, false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(ctx, "k", true)
	}()
	<-started
	s.Invalidate("k") // supersedes the in-flight refresh
	close(release)
	<-done

	// the superseded result must not have been written back
	_, ok := s.Peek("k")
	assert.False(t, ok)
}

func Test_flush(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.GetOrFetch(ctx, k, countingFetch(&calls, k, nil), false)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.Len())

	s.Flush()
	assert.Equal(t, 0, s.Len())
}

func Test_backgroundRevalidation(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	var calls int32
	_, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "v1", nil), false)
	require.NoError(t, err)

	// stale is served immediately; a silent revalidation runs behind
	res, err := s.GetOrFetch(ctx, "k", countingFetch(&calls, "v2", nil), true)
	require.NoError(t, err)
	assert.Equal(t, "v1", res.Data)
	assert.False(t, res.Loading)

	assert.Eventually(t, func() bool {
		res, ok := s.Peek("k")
		return ok && res.Data == "v2"
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
