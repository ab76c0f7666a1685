package broadcast

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var addrSeq atomic.Uint64

func inprocAddr() string {
	return fmt.Sprintf("inproc://circuit-broadcast-%d", addrSeq.Add(1))
}

type recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorder) RecordBroadcast(topic string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	if err == nil {
		r.counts[topic]++
	}
}

func (r *recorder) count(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[topic]
}

func TestEncodeDecode(t *testing.T) {
	entry := circuit.ActivityEntry{Time: time.Unix(100, 0).UTC(), Message: `Added light "Light"`}
	ev := pubsub.Event{Topic: pubsub.TopicActivity, Seq: 7, Activity: &entry}

	msg, err := encodeEvent(ev)
	require.NoError(t, err)
	assert.Contains(t, string(msg), "circuit.activity:")

	got, err := Decode(msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Seq)
	require.NotNil(t, got.Activity)
	assert.Equal(t, entry.Message, got.Activity.Message)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"no prefix", `{"topic":"circuit.state"}`},
		{"bad json", `circuit.state:{`},
		{"topic mismatch", `circuit.state:{"topic":"circuit.activity"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.msg))
			assert.Error(t, err)
		})
	}
}

func TestBroadcaster_ForwardsEvents(t *testing.T) {
	addr := inprocAddr()
	broker := pubsub.NewBroker(0)
	defer broker.Shutdown()
	rec := &recorder{}
	b := New(broker, Config{Address: addr}, rec, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount(pubsub.TopicState) == 1
	}, 2*time.Second, 5*time.Millisecond)

	l, err := Dial(addr, 50*time.Millisecond, pubsub.TopicState)
	require.NoError(t, err)
	defer l.Close()

	// PUB drops messages until the SUB connection is established, so keep
	// publishing until one arrives.
	change := circuit.StateChange{ComponentID: "light-1", Type: circuit.TypeLight, IsOn: true}
	var got pubsub.Event
	require.Eventually(t, func() bool {
		broker.StateChanged([]circuit.StateChange{change})
		broker.ActivityLogged(circuit.ActivityEntry{Message: "ignored by the topic filter"})
		ev, err := l.Next()
		if err != nil {
			return false
		}
		got = ev
		return true
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, pubsub.TopicState, got.Topic)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, change, got.Changes[0])
	assert.Positive(t, rec.count(pubsub.TopicState))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBroadcaster_CircuitNotifier(t *testing.T) {
	addr := inprocAddr()
	broker := pubsub.NewBroker(0)
	defer broker.Shutdown()
	c := circuit.New(circuit.WithLogger(logging.NewNopLogger()), circuit.WithNotifier(broker))
	b := New(broker, Config{Address: addr}, nil, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	require.Eventually(t, func() bool {
		return broker.SubscriberCount(pubsub.TopicActivity) == 1
	}, 2*time.Second, 5*time.Millisecond)

	l, err := Dial(addr, 50*time.Millisecond, pubsub.TopicActivity)
	require.NoError(t, err)
	defer l.Close()

	require.Eventually(t, func() bool {
		if _, err := c.AddComponent(circuit.TypeJunction, circuit.Position{}); err != nil {
			return false
		}
		ev, err := l.Next()
		return err == nil && ev.Activity != nil && ev.Activity.Message == `Added junction "Junction"`
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBroadcaster_BadAddress(t *testing.T) {
	broker := pubsub.NewBroker(0)
	defer broker.Shutdown()
	b := New(broker, Config{Address: "bogus://nowhere"}, nil, logging.NewNopLogger())
	assert.Error(t, b.Run(context.Background()))
}

func TestBroadcaster_RejectsSecondRun(t *testing.T) {
	broker := pubsub.NewBroker(0)
	defer broker.Shutdown()
	b := New(broker, Config{Address: inprocAddr()}, nil, logging.NewNopLogger())
	assert.Error(t, b.Ping())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = b.Run(ctx) }()
	require.Eventually(t, func() bool {
		return broker.SubscriberCount(pubsub.TopicState) == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.NoError(t, b.Ping())
	assert.ErrorIs(t, b.Run(ctx), ErrAlreadyRunning)
}
