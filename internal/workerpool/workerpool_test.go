package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSubmitRunsTasks(t *testing.T) {
	p := New(2, 5, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer cancel()

	var count int64
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		p.Submit(func() {
			atomic.AddInt64(&count, 1)
			wg.Done()
		})
	}
	wg.Wait()
	if got := atomic.LoadInt64(&count); got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	p := New(1, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	p.Start(ctx)
	p.Submit(func() { <-block })

	time.Sleep(10 * time.Millisecond)
	p.Submit(func() {})
	p.Submit(func() {})
	p.Submit(func() {})

	close(block)
	time.Sleep(10 * time.Millisecond)

	if p.DroppedTasks() == 0 {
		t.Fatalf("expected at least one dropped task")
	}
}

func TestRunSafelyRecoversPanic(t *testing.T) {
	p := New(1, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	defer cancel()

	var ran int64
	p.Submit(func() { panic("boom") })
	p.Submit(func() { atomic.AddInt64(&ran, 1) })

	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("worker did not continue after panic")
	}
}

func TestStopDrainsPendingTasks(t *testing.T) {
	p := New(2, 8, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var count int64
	for i := 0; i < 8; i++ {
		p.Submit(func() { atomic.AddInt64(&count, 1) })
	}
	p.Stop()

	if got := atomic.LoadInt64(&count); got != 8 {
		t.Fatalf("count = %d, want 8", got)
	}
}

func TestQueueDepthReflectsPendingTasks(t *testing.T) {
	p := New(1, 4, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	p.Start(ctx)
	p.Submit(func() { <-block })
	p.Submit(func() {})
	p.Submit(func() {})

	time.Sleep(10 * time.Millisecond)
	if depth := p.QueueDepth(); depth == 0 {
		t.Fatalf("expected nonzero queue depth, got %d", depth)
	}
	close(block)
}
