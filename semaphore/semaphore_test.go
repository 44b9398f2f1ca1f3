package semaphore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The grailbio logger behind ctxsync starts a flush goroutine on load.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("v.io/x/lib/llog.(*Log).flushDaemon"))
}

func TestNewRejectsNegativeCount(t *testing.T) {
	t.Parallel()
	s, err := New(-1)
	if !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("expected ErrNegativeCount, got %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil semaphore on error, got %v", s)
	}
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustNew(-1) did not panic")
		}
	}()
	MustNew(-1)
}

func TestWaitTakesInitialPermits(t *testing.T) {
	t.Parallel()
	s := MustNew(2)
	s.Wait()
	s.Wait()
	if got := s.Available(); got != 0 {
		t.Fatalf("expected 0 permits left, got %d", got)
	}
	if s.TryWait() {
		t.Fatal("TryWait succeeded on an empty semaphore")
	}
	s.Notify()
	if !s.TryWait() {
		t.Fatal("TryWait failed after Notify")
	}
}

func TestWaitBlocksUntilNotify(t *testing.T) {
	t.Parallel()
	s := MustNew(0)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Wait returned without a permit")
	case <-time.After(20 * time.Millisecond):
	}
	s.Notify()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Notify")
	}
}

func TestNoLostWakeup(t *testing.T) {
	t.Parallel()
	const N = 64
	s := MustNew(0)
	var returned atomic.Int64
	var waiters sync.WaitGroup
	waiters.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer waiters.Done()
			s.Wait()
			returned.Add(1)
		}()
	}
	var notifiers sync.WaitGroup
	notifiers.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer notifiers.Done()
			s.Notify()
		}()
	}
	notifiers.Wait()

	done := make(chan struct{})
	go func() {
		waiters.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("only %d of %d waiters returned", returned.Load(), N)
	}
	if got := s.Available(); got != 0 {
		t.Fatalf("expected all permits consumed, %d left", got)
	}
}

func TestNoLostWakeupMixedWaiters(t *testing.T) {
	t.Parallel()
	const N = 32
	s := MustNew(0)
	var wg sync.WaitGroup
	errs := make(chan error, N)
	wg.Add(2 * N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			s.Wait()
		}()
		go func() {
			defer wg.Done()
			errs <- s.WaitContext(context.Background())
		}()
	}
	for i := 0; i < 2*N; i++ {
		go s.Notify()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every waiter returned")
	}
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected WaitContext error: %v", err)
		}
	}
}

func TestBoundedConcurrency(t *testing.T) {
	t.Parallel()
	const permits = 3
	const workers = 10
	s := MustNew(permits)
	var cur, maxSeen, completed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			s.Wait()
			c := cur.Add(1)
			for {
				m := maxSeen.Load()
				if c <= m || maxSeen.CompareAndSwap(m, c) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			cur.Add(-1)
			s.Notify()
			completed.Add(1)
		}()
	}
	wg.Wait()
	if observed := maxSeen.Load(); observed > permits {
		t.Fatalf("observed %d holders, limit is %d", observed, permits)
	}
	if got := completed.Load(); got != workers {
		t.Fatalf("expected %d workers to complete, got %d", workers, got)
	}
	if got := s.Available(); got != permits {
		t.Fatalf("expected %d permits after all workers finished, got %d", permits, got)
	}
}

func TestCountStaysWithinBounds(t *testing.T) {
	t.Parallel()
	const initial = 4
	const rounds = 200
	s := MustNew(initial)
	var wg sync.WaitGroup
	var bad atomic.Int64
	wg.Add(8)
	for g := 0; g < 8; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				s.Wait()
				if n := s.Available(); n < 0 || n > initial {
					bad.Add(1)
				}
				s.Notify()
			}
		}()
	}
	wg.Wait()
	if bad.Load() != 0 {
		t.Fatalf("permit count left [0, %d] %d times", initial, bad.Load())
	}
	if got := s.Available(); got != initial {
		t.Fatalf("expected %d permits, got %d", initial, got)
	}
}

func TestWaitContextCancel(t *testing.T) {
	t.Parallel()
	s := MustNew(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := s.WaitContext(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("WaitContext took %v to observe the deadline", elapsed)
	}
	// The abandoned wait must not swallow a later permit.
	s.Notify()
	if got := s.Available(); got != 1 {
		t.Fatalf("expected 1 permit, got %d", got)
	}
}

func TestWaitContextWokenByNotify(t *testing.T) {
	t.Parallel()
	s := MustNew(0)
	errc := make(chan error, 1)
	go func() {
		errc <- s.WaitContext(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	s.Notify()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitContext was not woken by Notify")
	}
	if got := s.Available(); got != 0 {
		t.Fatalf("expected permit to be taken, %d left", got)
	}
}
