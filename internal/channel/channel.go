package channel

import (
	"encoding/json"
	"sync"

	"github.com/arcbet/livefeed/internal/telemetry"
)

// ChanState is the lifecycle state of a single topic subscription:
// pending (join requested) → joined (ok received) or failed (error received);
// closed on explicit leave. A transport loss drops every channel back to
// pending until the socket rejoins it.
type ChanState string

const (
	ChanPending ChanState = "pending"
	ChanJoined  ChanState = "joined"
	ChanFailed  ChanState = "failed"
	ChanClosed  ChanState = "closed"
)

// Channel is a single topic subscription on a Socket. Handlers are bound to
// the topic captured at creation time; they never consult ambient state.
type Channel struct {
	sock  *Socket
	topic string

	mu        sync.Mutex
	state     ChanState
	joinRef   string
	handlers  map[string][]func(json.RawMessage)
	resultFns []func(ok bool, reason string)
}

// Channel returns the registered channel for a topic, creating one if absent.
// The channel is inert until Join is called.
func (s *Socket) Channel(topic string) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[topic]; ok {
		return ch
	}
	return &Channel{
		sock:     s,
		topic:    topic,
		state:    ChanPending,
		handlers: make(map[string][]func(json.RawMessage)),
	}
}

func (c *Channel) Topic() string { return c.topic }

func (c *Channel) State() ChanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers a handler for a data event. Must be called before Join.
func (c *Channel) On(event string, h func(payload json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// OnResult registers a callback for the join outcome. Must be called before
// Join. Invoked again after every rejoin following a reconnect.
func (c *Channel) OnResult(fn func(ok bool, reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultFns = append(c.resultFns, fn)
}

// Join registers the channel on the socket and requests the topic join.
// If the socket is not connected the join is sent once it is. Joining an
// already-registered topic is a no-op.
func (c *Channel) Join() {
	s := c.sock
	s.mu.Lock()
	if existing, ok := s.channels[c.topic]; ok && existing != c {
		s.mu.Unlock()
		telemetry.Warnf("channel: duplicate join for %q ignored", c.topic)
		return
	}
	s.channels[c.topic] = c
	c.markPending()
	if s.state == StateConnected && s.conn != nil {
		s.sendJoinLocked(c)
	}
	s.mu.Unlock()
}

// Leave removes the channel from the socket and requests the topic close.
// Safe to call regardless of connectivity; when disconnected the server-side
// subscription is already gone with the transport.
func (c *Channel) Leave() {
	s := c.sock
	s.mu.Lock()
	delete(s.channels, c.topic)
	c.mu.Lock()
	if c.joinRef != "" {
		delete(s.pendingJoins, c.joinRef)
	}
	c.state = ChanClosed
	c.mu.Unlock()
	if s.state == StateConnected && s.conn != nil {
		if err := s.writeLocked(Message{
			Topic:   c.topic,
			Event:   EventLeave,
			Payload: emptyPayload,
			Ref:     s.nextRefLocked(),
		}); err != nil {
			telemetry.Debugf("channel: leave %q failed to send: %v", c.topic, err)
		}
	}
	s.mu.Unlock()
}

func (c *Channel) markPending() {
	c.mu.Lock()
	c.state = ChanPending
	c.mu.Unlock()
}

func (c *Channel) currentJoinRef() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joinRef
}

func (c *Channel) setJoinRef(ref string) {
	c.mu.Lock()
	c.joinRef = ref
	c.mu.Unlock()
}

// resolveJoin applies the join reply and notifies result callbacks.
// Called off the socket mutex.
func (c *Channel) resolveJoin(reply Reply) {
	c.mu.Lock()
	var reason string
	if reply.Status == StatusOK {
		c.state = ChanJoined
	} else {
		c.state = ChanFailed
		reason = string(reply.Response)
	}
	ok := c.state == ChanJoined
	fns := make([]func(bool, string), len(c.resultFns))
	copy(fns, c.resultFns)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ok, reason)
	}
}

// handle dispatches a data event to registered handlers.
// Called off the socket mutex.
func (c *Channel) handle(event string, payload json.RawMessage) {
	c.mu.Lock()
	hs := make([]func(json.RawMessage), len(c.handlers[event]))
	copy(hs, c.handlers[event])
	c.mu.Unlock()

	for _, h := range hs {
		h(payload)
	}
}
