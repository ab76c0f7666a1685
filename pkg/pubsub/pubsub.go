// Package pubsub fans circuit events out to in-process subscribers such as
// WebSocket streams, the broadcast socket and the terminal UI.
package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

// Topics published by the broker.
const (
	TopicState    = "circuit.state"
	TopicActivity = "circuit.activity"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 100

// ErrShutdown is returned when subscribing to a broker that has shut down.
var ErrShutdown = errors.New("pubsub: broker is shut down")

// Event is one message on a topic. Exactly one of Changes or Activity is set.
type Event struct {
	Topic    string                 `json:"topic"`
	Seq      uint64                 `json:"seq"`
	Time     time.Time              `json:"time"`
	Changes  []circuit.StateChange  `json:"changes,omitempty"`
	Activity *circuit.ActivityEntry `json:"activity,omitempty"`
}

// Broker provides publish/subscribe for circuit events. It implements
// circuit.Notifier, so it can be handed straight to circuit.WithNotifier.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	isShutdown  bool
	seq         atomic.Uint64
	buffer      int
}

// Subscription receives events for a set of topics.
type Subscription struct {
	topics    []string
	channel   chan Event
	broker    *Broker
	cancel    context.CancelFunc
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// NewBroker creates a broker whose subscriptions buffer `buffer` events each.
// A non-positive buffer selects DefaultBuffer.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		subscribers: make(map[string]map[*Subscription]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers for the given topics (both topics if none are named).
// The subscription ends when ctx is cancelled, Unsubscribe is called, or the
// broker shuts down; its channel is then closed.
func (b *Broker) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		topics = []string{TopicState, TopicActivity}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topics:  topics,
		channel: make(chan Event, b.buffer),
		broker:  b,
		cancel:  cancel,
	}

	b.mu.Lock()
	if b.isShutdown {
		b.mu.Unlock()
		cancel()
		return nil, ErrShutdown
	}
	for _, topic := range topics {
		if b.subscribers[topic] == nil {
			b.subscribers[topic] = make(map[*Subscription]struct{})
		}
		b.subscribers[topic][sub] = struct{}{}
	}
	b.mu.Unlock()

	go func() {
		<-subCtx.Done()
		sub.Unsubscribe()
	}()

	return sub, nil
}

// Publish delivers an event to every subscriber of its topic. Seq and Time are
// filled in here.
func (b *Broker) Publish(ev Event) {
	ev.Seq = b.seq.Add(1)
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	// Sends are non-blocking, so holding the read lock is fine and keeps
	// Shutdown from closing a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.isShutdown {
		return
	}
	for sub := range b.subscribers[ev.Topic] {
		select {
		case sub.channel <- ev:
		default:
			sub.dropped.Add(1)
		}
	}
}

// StateChanged publishes a recomputation's changes on TopicState.
func (b *Broker) StateChanged(changes []circuit.StateChange) {
	cp := make([]circuit.StateChange, len(changes))
	copy(cp, changes)
	b.Publish(Event{Topic: TopicState, Changes: cp})
}

// ActivityLogged publishes an activity line on TopicActivity.
func (b *Broker) ActivityLogged(entry circuit.ActivityEntry) {
	b.Publish(Event{Topic: TopicActivity, Time: entry.Time, Activity: &entry})
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions. Later publishes are discarded.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isShutdown {
		return
	}
	b.isShutdown = true
	for topic, subs := range b.subscribers {
		for sub := range subs {
			sub.cancel()
			sub.close()
		}
		delete(b.subscribers, topic)
	}
}

// C returns the subscription's event channel
func (s *Subscription) C() <-chan Event {
	return s.channel
}

// Dropped reports how many events were skipped because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscription and closes its channel. It is safe to
// call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	for _, topic := range s.topics {
		if subs := s.broker.subscribers[topic]; subs != nil {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.broker.subscribers, topic)
			}
		}
	}
	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
