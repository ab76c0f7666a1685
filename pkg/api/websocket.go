package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dd0wney/cluso-circuits/pkg/circuit"
	"github.com/dd0wney/cluso-circuits/pkg/logging"
	"github.com/dd0wney/cluso-circuits/pkg/pubsub"
	"github.com/dd0wney/cluso-circuits/pkg/validation"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 64 << 10

	transportWebSocket = "websocket"
)

// Outbound message types.
const (
	wsTypeSession = "session"
	wsTypeEvent   = "event"
	wsTypeResult  = "result"
)

// WSCommand is one client request on the socket. Args is op-specific.
type WSCommand struct {
	ID   string          `json:"id,omitempty"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// WSMessage is everything the server sends.
type WSMessage struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Snapshot  *circuit.Snapshot `json:"snapshot,omitempty"`
	Event     *pubsub.Event     `json:"event,omitempty"`
	ID        string            `json:"id,omitempty"`
	OK        bool              `json:"ok,omitempty"`
	Error     string            `json:"error,omitempty"`
	Status    int               `json:"status,omitempty"`
	Data      any               `json:"data,omitempty"`
}

type wsArgs struct {
	ID     string  `json:"id"`
	Active bool    `json:"active"`
	Steps  int     `json:"steps"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// wsSession serialises writes; gorilla connections allow one writer at a time.
type wsSession struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  logging.Logger
}

func (ws *wsSession) send(msg WSMessage) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := ws.conn.WriteJSON(msg); err != nil {
		ws.logger.Debug("websocket write failed", logging.Error(err))
		return err
	}
	return nil
}

func (ws *wsSession) ping() error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return ws.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// checkOrigin accepts same-host pages and origins the CORS config allows.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	return slices.Contains(s.config.CORS.AllowedOrigins, "*") || slices.Contains(s.config.CORS.AllowedOrigins, origin)
}

// handleWebSocket upgrades to a bidirectional session: a snapshot first, then
// every broker event, while commands from the client are applied and answered
// with result messages carrying the command id.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.respondError(w, http.StatusServiceUnavailable, "event stream is not enabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := s.broker.Subscribe(ctx)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer func() {
		sub.Unsubscribe()
		if s.metrics != nil {
			s.metrics.RecordStreamDropped(sub.Dropped())
		}
	}()

	session := &wsSession{
		id:   uuid.NewString(),
		conn: conn,
	}
	session.logger = s.logger.With(logging.String("session", session.id))
	session.logger.Info("websocket client connected")
	if s.metrics != nil {
		s.metrics.StreamClientConnected(transportWebSocket, 1)
		defer s.metrics.StreamClientConnected(transportWebSocket, -1)
	}

	snap := s.circuit.Snapshot()
	if err := session.send(WSMessage{Type: wsTypeSession, SessionID: session.id, Snapshot: &snap}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.pumpEvents(ctx, session, sub)
	}()

	conn.SetReadLimit(wsMaxMessage)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var cmd WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.logger.Warn("websocket read failed", logging.Error(err))
			}
			break
		}
		if err := session.send(s.dispatch(cmd)); err != nil {
			break
		}
	}

	session.logger.Info("websocket client disconnected")
	cancel()
	<-done
}

func (s *Server) pumpEvents(ctx context.Context, session *wsSession, sub *pubsub.Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := session.send(WSMessage{Type: wsTypeEvent, Event: &ev}); err != nil {
				return
			}
			if s.metrics != nil {
				s.metrics.RecordStreamEvent(transportWebSocket, ev.Topic)
			}
		case <-ticker.C:
			if err := session.ping(); err != nil {
				return
			}
		}
	}
}

// errUnknownOp is returned for commands the socket does not understand.
var errUnknownOp = errors.New("unknown op")

// componentOps take a component id in args.id.
var componentOps = map[string]bool{
	"delete": true, "toggle": true, "toggle_light": true, "press": true, "release": true,
	"set_sensor": true, "start_timer": true, "stop_timer": true, "rename": true, "move": true,
}

// dispatch applies one command and builds its reply.
func (s *Server) dispatch(cmd WSCommand) WSMessage {
	data, err := s.runCommand(cmd)
	reply := WSMessage{Type: wsTypeResult, ID: cmd.ID}
	if err != nil {
		reply.Error = err.Error()
		reply.Status = http.StatusBadRequest
		var cerr *circuit.CircuitError
		if errors.As(err, &cerr) {
			reply.Status = statusForError(err)
		}
		return reply
	}
	reply.OK = true
	reply.Data = data
	return reply
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}

func (s *Server) runCommand(cmd WSCommand) (any, error) {
	// Requests that carry their own validated struct.
	switch cmd.Op {
	case "add":
		var req validation.AddComponentRequest
		if err := decodeArgs(cmd.Args, &req); err != nil {
			return nil, err
		}
		if err := validation.ValidateRequest(&req); err != nil {
			return nil, err
		}
		return s.circuit.AddComponent(circuit.ComponentType(req.Type), circuit.Position{X: req.X, Y: req.Y})
	case "connect":
		var req validation.ConnectRequest
		if err := decodeArgs(cmd.Args, &req); err != nil {
			return nil, err
		}
		if err := validation.ValidateRequest(&req); err != nil {
			return nil, err
		}
		return s.circuit.Connect(req.SourceID, circuit.Port(req.SourcePort), req.TargetID, circuit.Port(req.TargetPort))
	case "begin_connection", "complete_connection":
		var req validation.GestureRequest
		if err := decodeArgs(cmd.Args, &req); err != nil {
			return nil, err
		}
		if err := validation.ValidateRequest(&req); err != nil {
			return nil, err
		}
		if cmd.Op == "complete_connection" {
			return s.circuit.CompleteConnection(req.ComponentID, circuit.Port(req.Port))
		}
		if err := validation.ValidateComponentID(req.ComponentID); err != nil {
			return nil, err
		}
		if err := s.circuit.BeginConnection(req.ComponentID, circuit.Port(req.Port)); err != nil {
			return nil, err
		}
		return s.gestureResponse(), nil
	case "configure":
		var req struct {
			ID    string                    `json:"id"`
			Patch validation.ComponentPatch `json:"patch"`
		}
		if err := decodeArgs(cmd.Args, &req); err != nil {
			return nil, err
		}
		if err := validation.ValidateComponentID(req.ID); err != nil {
			return nil, err
		}
		if err := s.circuit.Configure(req.ID, req.Patch); err != nil {
			return nil, err
		}
		return s.componentOrNil(req.ID), nil
	}

	var args wsArgs
	if err := decodeArgs(cmd.Args, &args); err != nil {
		return nil, err
	}

	if componentOps[cmd.Op] {
		if err := validation.ValidateComponentID(args.ID); err != nil {
			return nil, err
		}
	}

	var err error
	switch cmd.Op {
	case "snapshot":
		return s.circuit.Snapshot(), nil
	case "recompute":
		return nonNil(s.circuit.RecomputeAll()), nil
	case "loops":
		return s.circuit.Loops(), nil
	case "cancel_connection":
		if err := s.circuit.CancelConnection(); err != nil {
			return nil, err
		}
		return s.gestureResponse(), nil
	case "advance_timers":
		if err := validation.ValidateRequest(&validation.AdvanceTimersRequest{Steps: args.Steps}); err != nil {
			return nil, err
		}
		changes := s.circuit.AdvanceTimers(args.Steps)
		if s.metrics != nil {
			s.metrics.RecordTimerTicks(args.Steps)
		}
		return nonNil(changes), nil
	case "disconnect":
		if err := s.circuit.Disconnect(args.ID); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": args.ID}, nil
	case "delete":
		if err := s.circuit.DeleteComponent(args.ID); err != nil {
			return nil, err
		}
		return map[string]string{"deleted": args.ID}, nil
	case "toggle":
		err = s.circuit.ToggleSwitch(args.ID)
	case "toggle_light":
		err = s.circuit.ToggleLight(args.ID)
	case "press":
		err = s.circuit.PushButtonDown(args.ID)
	case "release":
		err = s.circuit.PushButtonUp(args.ID)
	case "set_sensor":
		err = s.circuit.SetSensor(args.ID, args.Active)
	case "start_timer":
		err = s.circuit.StartTimer(args.ID)
	case "stop_timer":
		err = s.circuit.StopTimer(args.ID)
	case "rename":
		err = s.circuit.RenameComponent(args.ID, args.Name)
	case "move":
		err = s.circuit.MoveComponent(args.ID, circuit.Position{X: args.X, Y: args.Y})
	default:
		return nil, fmt.Errorf("%w %q", errUnknownOp, cmd.Op)
	}
	if err != nil {
		return nil, err
	}
	return s.componentOrNil(args.ID), nil
}

func (s *Server) componentOrNil(id string) any {
	if comp, ok := s.circuit.Component(id); ok {
		return comp
	}
	return nil
}
