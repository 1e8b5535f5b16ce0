package engine

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStatusBus_DeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	bus := NewStatusBus(nil, func(ctx context.Context, ev StatusEvent) {
		mu.Lock()
		got = append(got, ev.Message)
		mu.Unlock()
	})
	go bus.Run(context.Background())

	bus.Publish(StatusEvent{Level: LevelInfo, Message: "first", At: time.Now()})
	bus.Publish(StatusEvent{Level: LevelSuccess, Message: "second", At: time.Now()})
	bus.Close()

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("delivered %v, want [first second]", got)
	}
}

func TestStatusBus_SinkPanicDoesNotStopDelivery(t *testing.T) {
	var delivered int
	bus := NewStatusBus(nil,
		func(ctx context.Context, ev StatusEvent) { panic("broken sink") },
		func(ctx context.Context, ev StatusEvent) { delivered++ },
	)
	go bus.Run(context.Background())

	bus.Publish(StatusEvent{Level: LevelError, Message: "boom"})
	bus.Close()

	if delivered != 1 {
		t.Errorf("second sink saw %d events, want 1", delivered)
	}
}
