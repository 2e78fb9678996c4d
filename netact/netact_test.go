package netact

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type testStack struct {
	suspends  atomic.Int32
	resumes   atomic.Int32
	onSuspend chan struct{}
	failWith  error
}

func newTestStack() *testStack {
	return &testStack{onSuspend: make(chan struct{}, 16)}
}

func (s *testStack) Suspend() error {
	if s.failWith != nil {
		return s.failWith
	}
	s.suspends.Add(1)
	s.onSuspend <- struct{}{}
	return nil
}

func (s *testStack) Resume() error {
	s.resumes.Add(1)
	return nil
}

func TestWaitNetSuspendIdleThenWake(t *testing.T) {
	stack := newTestStack()
	h := NewHandler(stack, Config{})
	go func() {
		<-stack.onSuspend
		time.Sleep(5 * time.Millisecond)
		h.Mark()
	}()
	res, err := h.WaitNetSuspend(context.Background(), WaitForever, 20*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultSuspended {
		t.Fatalf("got %s, want suspended", res)
	}
	if stack.suspends.Load() != 1 || stack.resumes.Load() != 1 {
		t.Errorf("suspend/resume calls: %d/%d", stack.suspends.Load(), stack.resumes.Load())
	}
	if h.Suspended() {
		t.Error("handler still suspended after returning")
	}
	stats := h.Stats()
	if stats.Suspends != 1 || stats.Frames != 1 || stats.LastSuspended <= 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestWaitNetSuspendTimeoutOnBusyNetwork(t *testing.T) {
	stack := newTestStack()
	h := NewHandler(stack, Config{PollPeriod: time.Millisecond})
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				h.Mark()
			}
		}
	}()
	res, err := h.WaitNetSuspend(context.Background(), 60*time.Millisecond, 20*time.Millisecond, 15*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultTimeout {
		t.Fatalf("got %s, want timeout", res)
	}
	if stack.suspends.Load() != 0 {
		t.Error("stack suspended on a busy network")
	}
	if h.Stats().Timeouts != 1 {
		t.Error("timeout not counted")
	}
}

func TestWaitNetSuspendTimeoutWhileSuspended(t *testing.T) {
	stack := newTestStack()
	h := NewHandler(stack, Config{})
	start := time.Now()
	res, err := h.WaitNetSuspend(context.Background(), 50*time.Millisecond, 10*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultSuspended {
		t.Fatalf("got %s, want suspended", res)
	}
	if elapsed := time.Since(start); elapsed < 45*time.Millisecond {
		t.Errorf("returned after %s, before the timeout", elapsed)
	}
	if stack.resumes.Load() != 1 {
		t.Error("stack not resumed after timeout")
	}
}

func TestWaitNetSuspendCancelled(t *testing.T) {
	stack := newTestStack()
	h := NewHandler(stack, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stack.onSuspend
		cancel()
	}()
	_, err := h.WaitNetSuspend(ctx, WaitForever, 10*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got err %v, want context.Canceled", err)
	}
	if stack.resumes.Load() != 1 {
		t.Error("cancelled suspension must still resume the stack")
	}
}

func TestWaitNetSuspendBadArgs(t *testing.T) {
	h := NewHandler(newTestStack(), Config{})
	ctx := context.Background()
	if _, err := h.WaitNetSuspend(ctx, WaitForever, 0, time.Millisecond); err == nil {
		t.Error("expected error for zero interval")
	}
	if _, err := h.WaitNetSuspend(ctx, WaitForever, time.Millisecond, -1); err == nil {
		t.Error("expected error for negative window")
	}
	if _, err := h.WaitNetSuspend(ctx, WaitForever, time.Millisecond, 2*time.Millisecond); err == nil {
		t.Error("expected error for window larger than interval")
	}
}

func TestWaitNetSuspendStackError(t *testing.T) {
	stack := newTestStack()
	stack.failWith = errors.New("stack busy")
	h := NewHandler(stack, Config{})
	_, err := h.WaitNetSuspend(context.Background(), WaitForever, 10*time.Millisecond, 5*time.Millisecond)
	if !errors.Is(err, stack.failWith) {
		t.Fatalf("got %v, want wrapped stack error", err)
	}
	if h.Suspended() {
		t.Error("handler marked suspended after failed suspend")
	}
}

func TestWaitNetSuspendWindowInsideInterval(t *testing.T) {
	stack := newTestStack()
	h := NewHandler(stack, Config{PollPeriod: time.Millisecond})
	go func() {
		// Busy for the first 10ms of the interval, then silent.
		end := time.Now().Add(10 * time.Millisecond)
		for time.Now().Before(end) {
			h.Mark()
			time.Sleep(time.Millisecond)
		}
	}()
	res, err := h.WaitNetSuspend(context.Background(), 200*time.Millisecond, 40*time.Millisecond, 15*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultSuspended {
		t.Fatalf("got %s, want suspended", res)
	}
	stats := h.Stats()
	if stats.Timeouts != 0 || stats.Suspends != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Frames == 0 {
		t.Error("no frames marked before the idle window")
	}
}
