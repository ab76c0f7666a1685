// Package broadcast republishes circuit events on a nanomsg PUB socket so
// processes outside circuitd can follow the circuit without HTTP.
//
// Each message is the event topic, a colon, then the JSON-encoded
// pubsub.Event, e.g. "circuit.state:{...}". SUB sockets filter on the topic
// prefix.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"

	// Register all transports (tcp, ipc, inproc, ws)
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
)

// ErrAlreadyRunning is returned by Run when the broadcaster is already running.
var ErrAlreadyRunning = errors.New("broadcaster already running")

// Recorder counts broadcast outcomes (metrics.Registry implements it).
type Recorder interface {
	RecordBroadcast(topic string, err error)
}

// Config configures a Broadcaster.
type Config struct {
	Address      string
	SendDeadline time.Duration
}

// Broadcaster forwards broker events to a PUB socket.
type Broadcaster struct {
	broker   *pubsub.Broker
	config   Config
	recorder Recorder
	logger   logging.Logger

	mu      sync.Mutex
	running bool
	sock    mangos.Socket
}

// New creates a broadcaster. The socket is not opened until Run.
func New(broker *pubsub.Broker, config Config, recorder Recorder, logger logging.Logger) *Broadcaster {
	if config.SendDeadline <= 0 {
		config.SendDeadline = time.Second
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Broadcaster{
		broker:   broker,
		config:   config,
		recorder: recorder,
		logger:   logger.With(logging.Component("broadcast")),
	}
}

// Run binds the PUB socket and forwards events until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	sock, err := b.open()
	if err != nil {
		return err
	}
	defer b.close()

	events, err := b.broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to circuit events: %w", err)
	}
	defer events.Unsubscribe()

	b.logger.Info("broadcast socket listening", logging.String("address", b.config.Address))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("broadcast socket closed", logging.Uint64("dropped", events.Dropped()))
			return nil
		case ev, ok := <-events.C():
			if !ok {
				return nil
			}
			err := send(sock, ev)
			if err != nil {
				b.logger.Warn("broadcast send failed", logging.Topic(ev.Topic), logging.Error(err))
			}
			if b.recorder != nil {
				b.recorder.RecordBroadcast(ev.Topic, err)
			}
		}
	}
}

func (b *Broadcaster) open() (mangos.Socket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil, ErrAlreadyRunning
	}

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}
	if err := sock.SetOption(mangos.OptionSendDeadline, b.config.SendDeadline); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to set send deadline: %w", err)
	}
	if err := sock.Listen(b.config.Address); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to bind PUB socket to %s: %w", b.config.Address, err)
	}
	b.sock = sock
	b.running = true
	return sock, nil
}

// Ping reports an error unless the PUB socket is bound. It backs the
// broadcast health check.
func (b *Broadcaster) Ping() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return errors.New("broadcast socket is not bound")
	}
	return nil
}

func (b *Broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sock != nil {
		if err := b.sock.Close(); err != nil {
			b.logger.Warn("failed to close broadcast socket", logging.Error(err))
		}
		b.sock = nil
	}
	b.running = false
}

func send(sock mangos.Socket, ev pubsub.Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return sock.Send(msg)
}

func encodeEvent(ev pubsub.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding event: %w", err)
	}
	return Encode(ev.Topic, data), nil
}

// Encode prefixes a payload with its topic.
func Encode(topic string, payload []byte) []byte {
	msg := make([]byte, 0, len(topic)+1+len(payload))
	msg = append(msg, topic...)
	msg = append(msg, ':')
	return append(msg, payload...)
}

// Decode splits a broadcast message into its event.
func Decode(msg []byte) (pubsub.Event, error) {
	for i, c := range msg {
		if c != ':' {
			continue
		}
		var ev pubsub.Event
		if err := json.Unmarshal(msg[i+1:], &ev); err != nil {
			return pubsub.Event{}, fmt.Errorf("decoding event: %w", err)
		}
		if ev.Topic != string(msg[:i]) {
			return pubsub.Event{}, fmt.Errorf("topic prefix %q does not match event topic %q", msg[:i], ev.Topic)
		}
		return ev, nil
	}
	return pubsub.Event{}, errors.New("message has no topic prefix")
}

// Listener is a SUB socket reading broadcast events. `circuitd watch` uses it
// to follow a running daemon.
type Listener struct {
	sock mangos.Socket
}

// Dial connects a listener to addr, receiving only the given topics (all
// topics when none are given).
func Dial(addr string, recvDeadline time.Duration, topics ...string) (*Listener, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create SUB socket: %w", err)
	}
	if len(topics) == 0 {
		topics = []string{""}
	}
	for _, t := range topics {
		prefix := []byte(t)
		if t != "" {
			prefix = append(prefix, ':')
		}
		if err := sock.SetOption(mangos.OptionSubscribe, prefix); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to subscribe to %q: %w", t, err)
		}
	}
	if recvDeadline > 0 {
		if err := sock.SetOption(mangos.OptionRecvDeadline, recvDeadline); err != nil {
			sock.Close()
			return nil, fmt.Errorf("failed to set receive deadline: %w", err)
		}
	}
	if err := sock.Dial(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Listener{sock: sock}, nil
}

// Next blocks for the next event or the receive deadline.
func (l *Listener) Next() (pubsub.Event, error) {
	msg, err := l.sock.Recv()
	if err != nil {
		return pubsub.Event{}, err
	}
	return Decode(msg)
}

// Close closes the socket.
func (l *Listener) Close() error {
	return l.sock.Close()
}
