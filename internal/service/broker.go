package service

import (
	"sync/atomic"

	"ledger-wallet/internal/core/domain"
)

const (
	subscriberBuffer = 64
	publishBuffer    = 256
)

// Subscription receives live events of the kinds it asked for. C is closed
// when the subscription ends.
type Subscription struct {
	C <-chan domain.Event

	ch    chan domain.Event
	kinds map[domain.EventKind]struct{}
}

func (s *Subscription) wants(e domain.Event) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[e.Kind]
	return ok
}

// Broker fans recorded events out to in-process subscribers.
//
// A single loop goroutine owns the subscriber set; public methods talk to it
// over channels. A subscriber whose buffer is full misses the event instead
// of stalling the publisher.
type Broker struct {
	subscribeCh   chan *Subscription
	unsubscribeCh chan *Subscription
	publishCh     chan domain.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
	dropped atomic.Uint64
}

// NewBroker starts the broker loop.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan *Subscription),
		unsubscribeCh: make(chan *Subscription),
		publishCh:     make(chan domain.Event, publishBuffer),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[*Subscription]struct{})

	broadcast := func(e domain.Event) {
		for s := range subs {
			if !s.wants(e) {
				continue
			}
			select {
			case s.ch <- e:
			default:
				b.dropped.Add(1)
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			// Deliver what was already queued before closing.
		drain:
			for {
				select {
				case e := <-b.publishCh:
					broadcast(e)
				default:
					break drain
				}
			}
			for s := range subs {
				close(s.ch)
			}
			return

		case s := <-b.subscribeCh:
			subs[s] = struct{}{}

		case s := <-b.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case e := <-b.publishCh:
			broadcast(e)

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Subscribe registers a subscriber. No kinds means every kind.
func (b *Broker) Subscribe(kinds ...domain.EventKind) *Subscription {
	s := &Subscription{ch: make(chan domain.Event, subscriberBuffer)}
	s.C = s.ch
	if len(kinds) > 0 {
		s.kinds = make(map[domain.EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = struct{}{}
		}
	}

	if b.closed.Load() {
		close(s.ch)
		return s
	}
	select {
	case b.subscribeCh <- s:
	case <-b.stopped:
		close(s.ch)
	}
	return s
}

// Unsubscribe removes s and closes its channel.
func (b *Broker) Unsubscribe(s *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- s:
	case <-b.stopped:
	}
}

// Publish queues e for delivery.
func (b *Broker) Publish(e domain.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// SubscriberCount returns the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}
