package adapters

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestBoundedCaller_LimitsConcurrency(t *testing.T) {
	bc := NewBoundedCaller(1000, 2)
	var inFlight int32
	var maxObserved int32
	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_ = bc.Call(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					max := atomic.LoadInt32(&maxObserved)
					if n <= max || atomic.CompareAndSwapInt32(&maxObserved, max, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		<-done
	}
	if atomic.LoadInt32(&maxObserved) > 2 {
		t.Fatalf("expected concurrency capped at 2, observed %d", maxObserved)
	}
}

func TestBoundedCaller_RespectsCancellation(t *testing.T) {
	bc := NewBoundedCaller(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bc.Call(ctx, func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected cancellation to surface an error")
	}
}
