// Package events fans out the events emitted by escrows and orders to
// observers running in their own goroutines.
package events

import (
	"sync"

	"github.com/TEENet-io/escrow-go/agreement"
)

type Config struct {
	// ChannelSize is the buffer size of each observer channel.
	ChannelSize int
}

// Publisher is a concurrent-safe agreement.EventSink that notifies the
// channels of every registered observer. Register observers before the
// first Emit.
//
// Events reach an observer in emission order as long as its channel has
// room. Once it is full, deliveries are handed to goroutines and may arrive
// out of order; consumers that need order should sort by the event log seq
// or size the channel for their peak load.
type Publisher struct {
	mu        sync.Mutex
	observers []chan agreement.Event

	done     chan struct{}
	stopOnce sync.Once
}

func NewPublisher() *Publisher {
	return &Publisher{
		observers: make([]chan agreement.Event, 0),
		done:      make(chan struct{}),
	}
}

// Stop releases pending deliveries to lagging observers and drops every
// later event. It is safe to call more than once.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

func (p *Publisher) Register(ch chan agreement.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observers = append(p.observers, ch)
}

// Emit never blocks the caller.
func (p *Publisher) Emit(ev agreement.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.done:
		return
	default:
	}

	for _, observer := range p.observers {
		select {
		case observer <- ev:
		default:
			// observer is lagging behind
			go func(obs chan agreement.Event) {
				select {
				case obs <- ev:
				case <-p.done:
				}
			}(observer)
		}
	}
}
