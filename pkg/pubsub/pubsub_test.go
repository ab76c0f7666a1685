package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
	return Event{}
}

// TestBrokerAsNotifier drives the broker from a real circuit
func TestBrokerAsNotifier(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	sub, err := b.Subscribe(context.Background(), TopicState)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	c := circuit.New(circuit.WithNotifier(b))
	sw, _ := c.AddComponent(circuit.TypeSwitch, circuit.Position{})
	light, _ := c.AddComponent(circuit.TypeLight, circuit.Position{X: 100})
	if _, err := c.Connect(sw.ID, circuit.PortOutput, light.ID, circuit.PortInput); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.ToggleSwitch(sw.ID); err != nil {
		t.Fatalf("ToggleSwitch: %v", err)
	}

	ev := receive(t, sub)
	if ev.Topic != TopicState {
		t.Errorf("Topic = %q, want %q", ev.Topic, TopicState)
	}
	// The connect pass reported nothing new, so the first state event is the toggle.
	got := map[string]bool{}
	for _, ch := range ev.Changes {
		got[ch.ComponentID] = ch.IsOn
	}
	if !got[sw.ID] || !got[light.ID] {
		t.Errorf("Expected switch and light on, got %+v", ev.Changes)
	}
}

func TestTopicIsolation(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	ctx := context.Background()
	state, _ := b.Subscribe(ctx, TopicState)
	activity, _ := b.Subscribe(ctx, TopicActivity)
	defer state.Unsubscribe()
	defer activity.Unsubscribe()

	b.ActivityLogged(circuit.ActivityEntry{Time: time.Now(), Message: "Added light \"Light 1\""})

	ev := receive(t, activity)
	if ev.Activity == nil || ev.Activity.Message != "Added light \"Light 1\"" {
		t.Errorf("unexpected activity event %+v", ev)
	}

	select {
	case ev := <-state.C():
		t.Errorf("state subscriber received %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeAllTopicsByDefault(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	sub, _ := b.Subscribe(context.Background())
	defer sub.Unsubscribe()

	if b.SubscriberCount(TopicState) != 1 || b.SubscriberCount(TopicActivity) != 1 {
		t.Fatalf("Expected one subscriber on each topic")
	}

	b.StateChanged([]circuit.StateChange{{ComponentID: "light-1", Type: circuit.TypeLight, IsOn: true}})
	b.ActivityLogged(circuit.ActivityEntry{Message: "x"})

	first := receive(t, sub)
	second := receive(t, sub)
	if first.Topic != TopicState || second.Topic != TopicActivity {
		t.Errorf("Expected state then activity, got %s then %s", first.Topic, second.Topic)
	}
	if second.Seq <= first.Seq {
		t.Errorf("Seq not increasing: %d then %d", first.Seq, second.Seq)
	}
}

func TestStateChangedCopiesSlice(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	sub, _ := b.Subscribe(context.Background(), TopicState)
	changes := []circuit.StateChange{{ComponentID: "light-1", IsOn: true}}
	b.StateChanged(changes)
	changes[0].IsOn = false

	ev := receive(t, sub)
	if !ev.Changes[0].IsOn {
		t.Error("event shares the caller's slice")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	sub, _ := b.Subscribe(context.Background(), TopicActivity)
	sub.Unsubscribe()
	sub.Unsubscribe()

	if b.SubscriberCount(TopicActivity) != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.SubscriberCount(TopicActivity))
	}
	if _, ok := <-sub.C(); ok {
		t.Error("Expected closed channel after unsubscribe")
	}

	// Publishing with no subscribers is a no-op.
	b.ActivityLogged(circuit.ActivityEntry{Message: "ignored"})
}

func TestContextCancellation(t *testing.T) {
	b := NewBroker(0)
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := b.Subscribe(ctx, TopicState)

	done := make(chan struct{})
	go func() {
		for range sub.C() {
		}
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscription channel did not close on context cancellation")
	}
}

func TestFullBufferDrops(t *testing.T) {
	b := NewBroker(2)
	defer b.Shutdown()

	sub, _ := b.Subscribe(context.Background(), TopicActivity)
	for i := 0; i < 5; i++ {
		b.ActivityLogged(circuit.ActivityEntry{Message: "tick"})
	}

	if got := sub.Dropped(); got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}
	if len(sub.C()) != 2 {
		t.Errorf("buffered = %d, want 2", len(sub.C()))
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := NewBroker(200)
	defer b.Shutdown()

	sub, _ := b.Subscribe(context.Background(), TopicActivity)
	defer sub.Unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.ActivityLogged(circuit.ActivityEntry{Message: "concurrent"})
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		ev := receive(t, sub)
		if seen[ev.Seq] {
			t.Fatalf("duplicate seq %d", ev.Seq)
		}
		seen[ev.Seq] = true
	}
}

func TestShutdown(t *testing.T) {
	b := NewBroker(0)

	sub, _ := b.Subscribe(context.Background(), TopicState)

	done := make(chan struct{})
	go func() {
		for range sub.C() {
		}
		close(done)
	}()

	b.Shutdown()
	b.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Subscription channel did not close on shutdown")
	}

	if _, err := b.Subscribe(context.Background(), TopicState); err != ErrShutdown {
		t.Errorf("Subscribe after shutdown = %v, want ErrShutdown", err)
	}
	b.StateChanged(nil)
}
