// Package bus implements Flighthook's single process-wide broadcast channel
// (§4.1): a fixed-capacity, multi-producer multi-consumer fan-out of
// FlighthookMessage envelopes, with sender/receiver wrappers, a lag-skip
// policy for slow subscribers, and an always-on drain subscriber.
//
// The subscriber-channel-per-actor ownership model is grounded on the
// teacher's bollywood/mailbox.go and bollywood/address.go (one channel per
// addressee, closed independently of the others); the broadcast fan-out loop
// with non-blocking per-subscriber sends is grounded on the
// tab-fuku bus.go sample in other_examples.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Capacity is the fixed bus channel size (§4.1).
const Capacity = 1024

// ErrNoMessage is returned by Poll when the subscriber's queue is empty.
var ErrNoMessage = errors.New("bus: no message")

// ErrShutdown is returned by Poll once the receiver's shutdown flag is set
// or the bus has closed the underlying channel.
var ErrShutdown = errors.New("bus: shutdown")

type subscriber struct {
	id     uint64
	ch     chan Message
	lagged atomic.Bool
}

// Bus is the single process-wide broadcast channel.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      uint64
	closed      bool
	log         *zap.SugaredLogger
}

// New constructs an empty Bus.
func New(log *zap.SugaredLogger) *Bus {
	return &Bus{
		subscribers: make(map[uint64]*subscriber),
		log:         log,
	}
}

// NewSender returns a Sender stamped with ownerID. shutdown, if non-nil, is
// consulted by every Receiver this Sender later creates via Subscribe.
func (b *Bus) NewSender(ownerID string, shutdown *atomic.Bool) *Sender {
	return &Sender{bus: b, ownerID: ownerID, shutdown: shutdown}
}

// subscribe registers a new subscriber channel and returns its id + channel.
func (b *Bus) subscribe() (uint64, chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{id: id, ch: make(chan Message, Capacity)}
	b.subscribers[id] = sub
	return id, sub.ch
}

// unsubscribe removes and closes a subscriber's channel.
func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// publish fans the message out to every subscriber. A subscriber at
// capacity has its oldest buffered message dropped so the newest always
// gets through — lag is logged, never propagated as an error (§4.1, §7).
func (b *Bus) publish(msg Message) {
	b.mu.RLock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		subs = append(subs, s)
	}
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	for _, s := range subs {
		select {
		case s.ch <- msg:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- msg:
			default:
			}
			if !s.lagged.Swap(true) && b.log != nil {
				b.log.Warnw("bus: subscriber lagging, skipped to newest message", "subscriber", s.id)
			}
		}
	}
}

// Shutdown closes every subscriber channel. Subsequent Poll calls return any
// messages still buffered for that subscriber, then ErrShutdown.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}

// Sender is constructed per actor with that actor's global ID; it stamps
// every published message with that ID so a sender can never forge another
// source (§4.1).
type Sender struct {
	bus      *Bus
	ownerID  string
	shutdown *atomic.Bool
}

// Send stamps source/timestamp and publishes the event.
func (s *Sender) Send(event Event, raw RawPayload) {
	s.bus.publish(Message{
		Source:     s.ownerID,
		Timestamp:  time.Now().UTC(),
		RawPayload: raw,
		Event:      event,
	})
}

// OwnerID returns the actor ID this sender stamps messages with.
func (s *Sender) OwnerID() string { return s.ownerID }

// Subscribe returns a fresh Receiver bound to this sender's shutdown flag
// (if any).
func (s *Sender) Subscribe() *Receiver {
	id, ch := s.bus.subscribe()
	return &Receiver{bus: s.bus, id: id, ch: ch, shutdown: s.shutdown}
}

// Receiver polls the bus non-blockingly for this subscriber's next message.
type Receiver struct {
	bus      *Bus
	id       uint64
	ch       chan Message
	shutdown *atomic.Bool
}

// Poll returns the next available envelope, ErrNoMessage if the queue is
// currently empty, or ErrShutdown if the owning actor has been told to stop
// or the bus channel has closed.
func (r *Receiver) Poll() (Message, error) {
	if r.IsShutdown() {
		return Message{}, ErrShutdown
	}
	select {
	case msg, ok := <-r.ch:
		if !ok {
			return Message{}, ErrShutdown
		}
		return msg, nil
	default:
		return Message{}, ErrNoMessage
	}
}

// IsShutdown is a cheap predicate over the per-actor shutdown flag.
func (r *Receiver) IsShutdown() bool {
	return r.shutdown != nil && r.shutdown.Load()
}

// Close unsubscribes this receiver from the bus.
func (r *Receiver) Close() {
	r.bus.unsubscribe(r.id)
}

// Subscribe returns a fresh, unowned Receiver (no shutdown flag) — used by
// transient consumers such as WebSocket connections and HTTP request/reply
// waiters that have their own lifecycle mechanism (§4.7, §4.8).
func (b *Bus) Subscribe() *Receiver {
	id, ch := b.subscribe()
	return &Receiver{bus: b, id: id, ch: ch}
}

// StartDrain runs the always-on drain subscriber described in §4.1: it
// discards every message so the bus never fills up when the only real
// consumers are transient. Stop by closing the returned channel.
func (b *Bus) StartDrain() (stop chan<- struct{}) {
	stopCh := make(chan struct{})
	receiver := b.Subscribe()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				receiver.Close()
				return
			case <-ticker.C:
				for {
					if _, err := receiver.Poll(); err != nil {
						break
					}
				}
			}
		}
	}()
	return stopCh
}
