package events

import (
	"context"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/common"
	logger "github.com/sirupsen/logrus"
)

// Observer consumes events from its channel until ctx is done.
// Run it as a separate goroutine.
type Observer interface {
	Channel() chan agreement.Event
	Run(ctx context.Context)
}

// EventLog appends events to durable storage.
type EventLog interface {
	AddEvent(ev agreement.Event) error
}

// Checkpointer persists the current state of the escrow or order an event
// is about.
type Checkpointer interface {
	Checkpoint(ev agreement.Event) error
}

// LogObserver writes every event to the log.
type LogObserver struct {
	Ch chan agreement.Event
}

func NewLogObserver(bufferSize int) *LogObserver {
	return &LogObserver{Ch: make(chan agreement.Event, bufferSize)}
}

func (o *LogObserver) Channel() chan agreement.Event { return o.Ch }

func (o *LogObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.Ch:
			logger.WithFields(logger.Fields{
				"kind":    ev.Kind(),
				"subject": common.Shorten(ev.Subject().String(), 8),
			}).Info(ev)
		}
	}
}

// StoreObserver appends every event to an EventLog.
type StoreObserver struct {
	backend EventLog
	Ch      chan agreement.Event
}

func NewStoreObserver(backend EventLog, bufferSize int) *StoreObserver {
	return &StoreObserver{
		backend: backend,
		Ch:      make(chan agreement.Event, bufferSize),
	}
}

func (o *StoreObserver) Channel() chan agreement.Event { return o.Ch }

func (o *StoreObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.Ch:
			if err := o.backend.AddEvent(ev); err != nil {
				logger.WithFields(logger.Fields{
					"kind":    ev.Kind(),
					"subject": ev.Subject().String(),
				}).Errorf("failed to store event: %v", err)
			}
		}
	}
}

// SnapshotObserver checkpoints the subject of every event.
type SnapshotObserver struct {
	backend Checkpointer
	Ch      chan agreement.Event
}

func NewSnapshotObserver(backend Checkpointer, bufferSize int) *SnapshotObserver {
	return &SnapshotObserver{
		backend: backend,
		Ch:      make(chan agreement.Event, bufferSize),
	}
}

func (o *SnapshotObserver) Channel() chan agreement.Event { return o.Ch }

func (o *SnapshotObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-o.Ch:
			if err := o.backend.Checkpoint(ev); err != nil {
				logger.WithFields(logger.Fields{
					"kind":    ev.Kind(),
					"subject": ev.Subject().String(),
				}).Errorf("failed to checkpoint: %v", err)
			}
		}
	}
}

// Start registers the observers with p and runs each of them in its own
// goroutine. p is stopped once ctx is done.
func Start(ctx context.Context, p *Publisher, observers ...Observer) {
	for _, o := range observers {
		p.Register(o.Channel())
		go o.Run(ctx)
	}
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
}
