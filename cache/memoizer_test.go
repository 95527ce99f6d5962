package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingCompute tracks calls and returns configured results.
type countingCompute struct {
	calls  atomic.Int32
	result []byte
	err    error
}

func (c *countingCompute) run(context.Context) ([]byte, error) {
	c.calls.Add(1)
	return c.result, c.err
}

func TestMemoizer_CacheHit(t *testing.T) {
	m := NewMemoizer(NewMemoryCache(), DefaultPolicy())
	compute := &countingCompute{result: []byte(`{"result":[{"name":"red","score":0.99}]}`)}
	ctx := context.Background()

	first, hit, err := m.Do(ctx, "classify:p:ff00ff00ff00ff00", 0, compute.run)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if hit {
		t.Error("first call reported a hit")
	}

	second, hit, err := m.Do(ctx, "classify:p:ff00ff00ff00ff00", 0, compute.run)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !hit {
		t.Error("second call reported a miss")
	}
	if string(first) != string(second) {
		t.Errorf("hit returned %s, want %s", second, first)
	}
	if n := compute.calls.Load(); n != 1 {
		t.Errorf("compute called %d times, want 1", n)
	}
}

func TestMemoizer_ErrorsNotCached(t *testing.T) {
	m := NewMemoizer(NewMemoryCache(), DefaultPolicy())
	failing := &countingCompute{err: errors.New("provider down")}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := m.Do(ctx, "k:1", 0, failing.run); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}
	if n := failing.calls.Load(); n != 2 {
		t.Errorf("compute called %d times, want 2", n)
	}
}

func TestMemoizer_TTL(t *testing.T) {
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	m := NewMemoizer(c, DefaultPolicy())
	compute := &countingCompute{result: []byte("v")}
	ctx := context.Background()

	_, _, _ = m.Do(ctx, "k:1", 15*time.Minute, compute.run)
	now = now.Add(16 * time.Minute)
	_, hit, _ := m.Do(ctx, "k:1", 15*time.Minute, compute.run)
	if hit {
		t.Error("entry should have expired after its TTL")
	}
	if n := compute.calls.Load(); n != 2 {
		t.Errorf("compute called %d times, want 2", n)
	}
}

func TestMemoizer_InvalidKeyBypassesCache(t *testing.T) {
	c := NewMemoryCache()
	m := NewMemoizer(c, DefaultPolicy())
	compute := &countingCompute{result: []byte("v")}

	_, _, _ = m.Do(context.Background(), "bad\nkey", 0, compute.run)
	if c.Len() != 0 {
		t.Errorf("invalid key was stored, Len() = %d", c.Len())
	}
}

func TestMemoizer_LookupObserver(t *testing.T) {
	var hits, misses int
	m := NewMemoizer(NewMemoryCache(), DefaultPolicy(), WithLookupObserver(func(_ context.Context, key string, hit bool) {
		if Namespace(key) != "view" {
			t.Errorf("observer got key %q", key)
		}
		if hit {
			hits++
		} else {
			misses++
		}
	}))
	compute := &countingCompute{result: []byte("v")}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, _ = m.Do(ctx, "view:/ts-model/history", 0, compute.run)
	}
	if hits != 2 || misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", hits, misses)
	}
}

func TestMemoizer_ConcurrentMisses(t *testing.T) {
	tests := []struct {
		name     string
		opts     []MemoizerOption
		maxCalls int32
	}{
		{name: "duplicates tolerated", opts: nil, maxCalls: 8},
		{name: "coalesced", opts: []MemoizerOption{WithCoalescing()}, maxCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemoizer(NewMemoryCache(), DefaultPolicy(), tt.opts...)
			release := make(chan struct{})
			var calls atomic.Int32
			fn := func(context.Context) ([]byte, error) {
				calls.Add(1)
				<-release
				return []byte("v"), nil
			}

			var wg sync.WaitGroup
			var started sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				started.Add(1)
				go func() {
					defer wg.Done()
					started.Done()
					v, _, err := m.Do(context.Background(), "k:1", 0, fn)
					if err != nil || string(v) != "v" {
						t.Errorf("Do() = %q, %v", v, err)
					}
				}()
			}
			started.Wait()
			time.Sleep(20 * time.Millisecond)
			close(release)
			wg.Wait()

			n := calls.Load()
			if n < 1 || n > tt.maxCalls {
				t.Errorf("compute called %d times, want 1..%d", n, tt.maxCalls)
			}
		})
	}
}

func TestMemoizer_CoalescedLeaderCancel(t *testing.T) {
	m := NewMemoizer(NewMemoryCache(), DefaultPolicy(), WithCoalescing())
	entered := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]byte, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []byte("v"), nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := m.Do(leaderCtx, "k:1", 0, fn)
		leaderErr <- err
	}()
	<-entered

	type result struct {
		v   []byte
		err error
	}
	follower := make(chan result, 1)
	go func() {
		v, _, err := m.Do(context.Background(), "k:1", 0, fn)
		follower <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want context.Canceled", err)
	}
	close(release)

	got := <-follower
	if got.err != nil || string(got.v) != "v" {
		t.Errorf("follower Do() = %q, %v; want v, nil", got.v, got.err)
	}
	if cached, ok := m.Cache().Get(context.Background(), "k:1"); !ok || string(cached) != "v" {
		t.Errorf("cache after shared compute = %q, %v", cached, ok)
	}
}
