// Package events fans job status updates out to live subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/dps-agent/internal/engine"
)

// JobEvent is the wire form of a status update, tagged with the job it
// belongs to.
type JobEvent struct {
	JobID      int64     `json:"job_id"`
	Level      string    `json:"level"`
	Message    string    `json:"message"`
	Screenshot string    `json:"screenshot,omitempty"`
	At         time.Time `json:"at"`
}

// Broadcaster publishes job events on per-job Redis channels so web
// clients can follow a run as it happens. Publish failures are logged and
// dropped; live updates are best effort.
type Broadcaster struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewBroadcaster(rdb *redis.Client, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{rdb: rdb, log: log}
}

func channelFor(jobID int64) string {
	return fmt.Sprintf("dpsagent:job:%d:events", jobID)
}

// Sink adapts the broadcaster to the engine's status sink for one job.
func (b *Broadcaster) Sink(jobID int64) engine.Sink {
	return func(ctx context.Context, ev engine.StatusEvent) {
		b.Publish(ctx, JobEvent{
			JobID:      jobID,
			Level:      string(ev.Level),
			Message:    ev.Message,
			Screenshot: ev.Screenshot,
			At:         ev.At,
		})
	}
}

func (b *Broadcaster) Publish(ctx context.Context, ev JobEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("marshaling job event", zap.Error(err))
		return
	}
	if err := b.rdb.Publish(ctx, channelFor(ev.JobID), payload).Err(); err != nil {
		b.log.Warn("publishing job event", zap.Int64("job_id", ev.JobID), zap.Error(err))
	}
}

// Subscribe streams events for one job until the context ends. The channel
// closes when the subscription does.
func (b *Broadcaster) Subscribe(ctx context.Context, jobID int64) (<-chan JobEvent, error) {
	sub := b.rdb.Subscribe(ctx, channelFor(jobID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribing to job %d: %w", jobID, err)
	}

	out := make(chan JobEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev JobEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn("bad job event payload", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
