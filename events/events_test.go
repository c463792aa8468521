package events

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/TEENet-io/escrow-go/agreement"
	"github.com/TEENet-io/escrow-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLog struct {
	mu     sync.Mutex
	events []agreement.Event
}

func (m *memLog) AddEvent(ev agreement.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memLog) Checkpoint(ev agreement.Event) error {
	return m.AddEvent(ev)
}

func (m *memLog) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestPublisherFanOut(t *testing.T) {
	p := NewPublisher()
	ch1 := make(chan agreement.Event, 4)
	ch2 := make(chan agreement.Event, 4)
	p.Register(ch1)
	p.Register(ch2)

	ev := &agreement.CancellationCompletedEvent{EscrowID: common.RandHash()}
	p.Emit(ev)

	assert.Equal(t, ev, <-ch1)
	assert.Equal(t, ev, <-ch2)
}

func TestPublisherDoesNotBlock(t *testing.T) {
	p := NewPublisher()
	ch := make(chan agreement.Event)
	p.Register(ch)

	done := make(chan struct{})
	go func() {
		p.Emit(&agreement.CancellationCompletedEvent{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full observer")
	}
	// the event is still delivered once the observer reads
	<-ch
}

func TestPublisherStop(t *testing.T) {
	p := NewPublisher()
	ch := make(chan agreement.Event)
	p.Register(ch)

	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		p.Emit(&agreement.CancellationCompletedEvent{})
	}
	assert.GreaterOrEqual(t, runtime.NumGoroutine(), before)

	// pending deliveries give up once stopped
	p.Stop()
	p.Stop()
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, time.Second, 10*time.Millisecond)

	buffered := make(chan agreement.Event, 1)
	p.Register(buffered)
	p.Emit(&agreement.CancellationCompletedEvent{})
	assert.Len(t, buffered, 0)
}

func TestStartStopsPublisherOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPublisher()
	Start(ctx, p, NewLogObserver(1))
	cancel()

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("publisher not stopped after cancel")
	}
}

func TestObservers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memLog{}
	snapshots := &memLog{}
	p := NewPublisher()
	Start(ctx, p,
		NewLogObserver(8),
		NewStoreObserver(store, 8),
		NewSnapshotObserver(snapshots, 8),
	)

	for i := 0; i < 5; i++ {
		p.Emit(&agreement.DepositReceivedEvent{EscrowID: common.RandHash(), Amount: uint64(i + 1)})
	}

	require.Eventually(t, func() bool {
		return store.len() == 5 && snapshots.len() == 5
	}, time.Second, 10*time.Millisecond)
}
