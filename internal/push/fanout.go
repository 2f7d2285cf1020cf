package push

import (
	"context"

	"go.uber.org/zap"

	"github.com/trogers1052/stock-sentiment-service/internal/metrics"
	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

// Broadcaster delivers a sentiment update to one kind of subscriber
type Broadcaster interface {
	Broadcast(ctx context.Context, update models.SentimentUpdate) error
}

type sink struct {
	name string
	b    Broadcaster
}

// Fanout forwards each update to every registered sink. A failing sink is
// logged and does not stop delivery to the others.
type Fanout struct {
	sinks []sink
	log   *zap.SugaredLogger
}

// NewFanout creates a fanout with no sinks
func NewFanout(log *zap.SugaredLogger) *Fanout {
	return &Fanout{log: log.With("component", "push_fanout")}
}

// Add registers a named sink
func (f *Fanout) Add(name string, b Broadcaster) *Fanout {
	f.sinks = append(f.sinks, sink{name: name, b: b})
	return f
}

// Broadcast delivers update to all sinks. It never fails.
func (f *Fanout) Broadcast(ctx context.Context, update models.SentimentUpdate) error {
	for _, s := range f.sinks {
		err := s.b.Broadcast(ctx, update)
		metrics.RecordBroadcast(s.name, err)
		if err != nil {
			f.log.Warnw("Broadcast failed", "sink", s.name, "error", err)
		}
	}
	return nil
}
