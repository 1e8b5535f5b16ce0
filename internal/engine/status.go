package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Level classifies a status event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// StatusEvent is one progress or failure notification. Ephemeral: emitted
// per meaningful transition and handed to the sink, never stored by the
// engine itself.
type StatusEvent struct {
	Level      Level
	Message    string
	Screenshot string
	At         time.Time
}

// Sink receives status events. Implementations must not block for long;
// the bus serializes delivery on a single consumer goroutine.
type Sink func(ctx context.Context, ev StatusEvent)

// StatusBus decouples emitters from sinks through a buffered channel with a
// single consumer. Sink panics are swallowed and logged so a broken sink can
// never take down a run.
type StatusBus struct {
	ch    chan StatusEvent
	sinks []Sink
	log   *zap.Logger
	done  chan struct{}
}

func NewStatusBus(log *zap.Logger, sinks ...Sink) *StatusBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusBus{
		ch:    make(chan StatusEvent, 64),
		sinks: sinks,
		log:   log,
		done:  make(chan struct{}),
	}
}

// Run consumes events until the context ends or Close drains the channel.
func (b *StatusBus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.ch:
			if !ok {
				return
			}
			b.deliver(ctx, ev)
		}
	}
}

// Publish enqueues an event, dropping it if the bus is saturated. Losing a
// progress line is preferable to stalling the interaction flow.
func (b *StatusBus) Publish(ev StatusEvent) {
	select {
	case b.ch <- ev:
	default:
		b.log.Warn("status bus full, dropping event", zap.String("message", ev.Message))
	}
}

// Close stops intake and waits for in-flight deliveries.
func (b *StatusBus) Close() {
	close(b.ch)
	<-b.done
}

func (b *StatusBus) deliver(ctx context.Context, ev StatusEvent) {
	for _, s := range b.sinks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Warn("status sink panicked", zap.Any("panic", r))
				}
			}()
			s(ctx, ev)
		}()
	}
}
