package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcbet/livefeed/internal/telemetry"
)

// State is the connectivity state of a Socket.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateErrored      State = "error"
)

const (
	defaultMinBackoff = 1 * time.Second
	defaultMaxBackoff = 30 * time.Second
	defaultHeartbeat  = 30 * time.Second
	readTimeout       = 90 * time.Second
	writeTimeout      = 5 * time.Second
)

// Socket is one shared channel transport for the process lifetime.
// It multiplexes many topic subscriptions over a single WebSocket and
// reconnects on failure with exponential backoff, rejoining every
// registered channel once the connection is back.
//
// Gorilla/websocket supports one concurrent reader and one concurrent
// writer, so all writes are serialized through mu.
type Socket struct {
	url            string
	heartbeatEvery time.Duration
	minBackoff     time.Duration
	maxBackoff     time.Duration

	mu           sync.Mutex
	conn         *websocket.Conn
	state        State
	refSeq       int64
	channels     map[string]*Channel // topic → registered channel
	pendingJoins map[string]*Channel // join ref → channel awaiting phx_reply
	statusFns    []func(State)
	rawFn        func(topic, event string, raw []byte)
	done         chan struct{}
}

func NewSocket(url string) *Socket {
	return &Socket{
		url:            url,
		heartbeatEvery: defaultHeartbeat,
		minBackoff:     defaultMinBackoff,
		maxBackoff:     defaultMaxBackoff,
		state:          StateDisconnected,
		channels:       make(map[string]*Channel),
		pendingJoins:   make(map[string]*Channel),
		done:           make(chan struct{}),
	}
}

// SetBackoff overrides the reconnect backoff bounds.
func (s *Socket) SetBackoff(min, max time.Duration) {
	if min > 0 {
		s.minBackoff = min
	}
	if max > 0 {
		s.maxBackoff = max
	}
}

// SetHeartbeat overrides the heartbeat push interval.
func (s *Socket) SetHeartbeat(d time.Duration) {
	if d > 0 {
		s.heartbeatEvery = d
	}
}

// OnStatus registers a callback invoked on every state transition.
// Must be called before Connect.
func (s *Socket) OnStatus(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFns = append(s.statusFns, fn)
}

// OnRaw registers a hook that receives every inbound message before
// dispatch. Used for the raw message archive. Must be called before Connect.
func (s *Socket) OnRaw(fn func(topic, event string, raw []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawFn = fn
}

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Socket) Connected() bool {
	return s.State() == StateConnected
}

// Connect dials the server and starts the read/reconnect loop.
// Returns an error only if the first dial fails; later drops are retried
// with exponential backoff until ctx is cancelled.
func (s *Socket) Connect(ctx context.Context) error {
	s.setState(StateConnecting)
	if err := s.dial(ctx); err != nil {
		s.setState(StateErrored)
		return err
	}
	go s.runLoop(ctx)
	return nil
}

func (s *Socket) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

// runLoop reads messages and reconnects on failure with exponential backoff.
func (s *Socket) runLoop(ctx context.Context) {
	defer close(s.done)

	first := true
	for {
		if first {
			telemetry.Infof("socket: connected to %s", s.url)
			first = false
		} else {
			telemetry.Infof("socket: reconnected")
			telemetry.Metrics.Reconnects.Inc()
		}

		s.setState(StateConnected)
		s.rejoinAll()

		stopHB := make(chan struct{})
		go s.heartbeatLoop(stopHB)
		s.readLoop(ctx)
		close(stopHB)

		// replies can no longer arrive for the dead connection; a lingering
		// ref must not make the next rejoinAll skip its channel
		s.mu.Lock()
		s.pendingJoins = make(map[string]*Channel)
		s.mu.Unlock()

		s.setState(StateDisconnected)

		select {
		case <-ctx.Done():
			return
		default:
		}

		attempt := 0
		connStart := time.Now()
		for {
			if time.Since(connStart) > time.Minute {
				attempt = 0
			}
			attempt++
			backoff := time.Duration(float64(s.minBackoff) * math.Pow(2, float64(min(attempt-1, 5))))
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
			telemetry.Warnf("socket: reconnecting (attempt %d) in %s", attempt, backoff)
			s.setState(StateConnecting)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if err := s.dial(ctx); err != nil {
				telemetry.Warnf("socket: dial failed: %v", err)
				continue
			}
			break
		}
	}
}

func (s *Socket) readLoop(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeTimeout))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			telemetry.Warnf("socket: read error: %v", err)
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		telemetry.Metrics.MessagesReceived.Inc()
		s.dispatch(raw)
	}
}

func (s *Socket) dispatch(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		telemetry.Metrics.ParseErrors.Inc()
		telemetry.Warnf("socket: unmarshal message: %v", err)
		return
	}

	s.mu.Lock()
	rawFn := s.rawFn
	s.mu.Unlock()
	if rawFn != nil {
		rawFn(msg.Topic, msg.Event, raw)
	}

	if msg.Event == EventReply {
		s.resolveReply(msg)
		return
	}

	s.mu.Lock()
	ch := s.channels[msg.Topic]
	s.mu.Unlock()
	if ch == nil {
		// update for a topic we already left — can race with a leave
		telemetry.Debugf("socket: message for unsubscribed topic %q", msg.Topic)
		return
	}
	ch.handle(msg.Event, msg.Payload)
}

// resolveReply routes a phx_reply to the channel whose join is in flight.
// Replies with unknown refs (heartbeat acks, leave acks) are ignored.
func (s *Socket) resolveReply(msg Message) {
	reply, err := ParseReply(msg.Payload)
	if err != nil {
		telemetry.Warnf("socket: bad reply on %q: %v", msg.Topic, err)
		return
	}

	s.mu.Lock()
	ch := s.pendingJoins[msg.Ref]
	delete(s.pendingJoins, msg.Ref)
	if ch != nil && reply.Status != StatusOK {
		// failed join: entry is removed; the reconciler may retry later
		delete(s.channels, ch.topic)
	}
	s.mu.Unlock()

	if ch == nil {
		return
	}
	ch.resolveJoin(reply)
}

// rejoinAll re-sends a join for every registered channel.
// Called after each successful connection/reconnection: all previously
// joined channels were invalidated by the transport loss. Channels whose
// join is already in flight on this connection are skipped — the connected
// status callback may have joined them just before this runs.
func (s *Socket) rejoinAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.channels {
		if ref := ch.currentJoinRef(); ref != "" && s.pendingJoins[ref] == ch {
			continue
		}
		ch.markPending()
		s.sendJoinLocked(ch)
	}
}

// sendJoinLocked assigns a fresh ref and writes the join. Caller holds mu.
func (s *Socket) sendJoinLocked(ch *Channel) {
	ref := s.nextRefLocked()
	ch.setJoinRef(ref)
	s.pendingJoins[ref] = ch
	if err := s.writeLocked(Message{
		Topic:   ch.topic,
		Event:   EventJoin,
		Payload: emptyPayload,
		Ref:     ref,
		JoinRef: ref,
	}); err != nil {
		telemetry.Warnf("socket: join %q failed to send: %v", ch.topic, err)
		delete(s.pendingJoins, ref)
	}
}

func (s *Socket) heartbeatLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			err := s.writeLocked(Message{
				Topic:   TopicHeartbeat,
				Event:   EventHeartbeat,
				Payload: emptyPayload,
				Ref:     s.nextRefLocked(),
			})
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// writeLocked writes a message to the live connection. Caller must hold mu.
func (s *Socket) writeLocked(msg Message) error {
	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(msg)
}

func (s *Socket) nextRefLocked() string {
	s.refSeq++
	return strconv.FormatInt(s.refSeq, 10)
}

func (s *Socket) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	fns := make([]func(State), len(s.statusFns))
	copy(fns, s.statusFns)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (s *Socket) Done() <-chan struct{} {
	return s.done
}
