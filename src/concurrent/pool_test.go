package concurrent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParallelMapKeepsOrder(t *testing.T) {
	in := []int{5, 1, 4, 2, 3}
	out, err := ParallelMap(context.Background(), in, func(n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * n, nil
	}, 2)
	if err != nil {
		t.Fatalf("ParallelMap returned error: %v", err)
	}
	want := []int{25, 1, 16, 4, 9}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("index %d: got %d want %d", i, out[i], want[i])
		}
	}
}

func TestParallelMapReturnsFirstErrorByIndex(t *testing.T) {
	boom := errors.New("boom")
	_, err := ParallelMap(context.Background(), []int{1, 2, 3}, func(n int) (int, error) {
		if n >= 2 {
			return 0, boom
		}
		return n, nil
	}, 0)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestParallelMapEmpty(t *testing.T) {
	out, err := ParallelMap(context.Background(), nil, func(n int) (int, error) { return n, nil }, 3)
	if err != nil || out != nil {
		t.Fatalf("expected nil, nil; got %v, %v", out, err)
	}
}

func TestParallelMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)
	_, err := ParallelMap(context.Background(), items, func(int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 0, nil
	}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := atomic.LoadInt32(&peak); p > 3 {
		t.Fatalf("peak concurrency %d exceeds limit", p)
	}
}

func TestLimiterHonoursCancelledContext(t *testing.T) {
	l := NewLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Occupy the only slot so the select must pick ctx.Done().
	l.sem <- struct{}{}
	defer func() { <-l.sem }()

	called := false
	err := l.Do(ctx, func() error { called = true; return nil })
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("expected context.Canceled without call, got %v (called=%v)", err, called)
	}
}
