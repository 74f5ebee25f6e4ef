package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/arcbet/livefeed/internal/config"
	"github.com/arcbet/livefeed/internal/events"
	"github.com/arcbet/livefeed/internal/telemetry"
)

// Subscription is one open (or opening) channel. The join result callback
// must be delivered asynchronously, never from inside Join.
type Subscription interface {
	On(event string, h func(payload json.RawMessage))
	OnResult(fn func(ok bool, reason string))
	Join()
	Leave()
}

// Transport hands out topic subscriptions over a shared connection.
type Transport interface {
	Connected() bool
	Subscribe(topic string) Subscription
}

type subState string

const (
	subPending subState = "pending"
	subJoined  subState = "joined"
)

type subEntry struct {
	topic string
	sub   Subscription
	state subState
}

// Manager keeps the set of open channels exactly equal to the set of
// currently interesting match identifiers, and routes every inbound update
// into the shared collection.
//
// The interesting set is derived from the selected sport, the expanded sport
// set, the loaded match summaries, and the viewed match. Reconciliation runs
// on every input change: it opens channels for desired keys absent from the
// registry and closes channels for registry keys no longer desired. The
// registry is the single source of truth — an entry is recorded pending
// before its join resolves, so a second pass cannot double-open.
type Manager struct {
	tr     Transport
	col    *Collection
	detail *Detail
	bus    *events.Bus
	limits config.SubLimits

	mu        sync.Mutex
	connected bool
	selected  events.Sport
	expanded  map[events.Sport]bool
	viewSport events.Sport
	viewID    string

	subs    map[string]*subEntry
	retryAt map[string]time.Time
	retryN  map[string]int

	now func() time.Time // stubbed in tests
}

func NewManager(tr Transport, col *Collection, detail *Detail, bus *events.Bus, limits config.SubLimits) *Manager {
	return &Manager{
		tr:       tr,
		col:      col,
		detail:   detail,
		bus:      bus,
		limits:   limits,
		expanded: make(map[events.Sport]bool),
		subs:     make(map[string]*subEntry),
		retryAt:  make(map[string]time.Time),
		retryN:   make(map[string]int),
		now:      time.Now,
	}
}

// SetConnected feeds the transport state machine into the reconciler.
// While not connected, desired-set computation still happens but joins are
// deferred; on connect the deferred set is opened in one pass.
func (m *Manager) SetConnected(connected bool) {
	m.mu.Lock()
	m.connected = connected
	if connected {
		m.reconcileLocked()
	}
	m.mu.Unlock()

	m.publish(events.Event{
		Type:      events.EventConnStatus,
		Timestamp: time.Now(),
		Payload:   events.ConnStatus{Connected: connected},
	})
}

// SelectSport switches the primary sport filter.
func (m *Manager) SelectSport(sport events.Sport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == sport {
		return
	}
	m.selected = sport
	m.reconcileLocked()
}

// ExpandSport adds a sport to the expanded sidebar set.
func (m *Manager) ExpandSport(sport events.Sport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expanded[sport] {
		return
	}
	m.expanded[sport] = true
	m.reconcileLocked()
}

// CollapseSport removes a sport from the expanded set.
func (m *Manager) CollapseSport(sport events.Sport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.expanded[sport] {
		return
	}
	delete(m.expanded, sport)
	m.reconcileLocked()
}

// ViewMatch marks one match as viewed: its detail channel becomes desired
// and its sport is expanded. The previous viewed match's detail channel is
// closed in the same pass, before any new key is opened.
func (m *Manager) ViewMatch(sport events.Sport, matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewSport == sport && m.viewID == matchID {
		return
	}
	m.viewSport = sport
	m.viewID = matchID
	m.expanded[sport] = true
	m.detail.Reset(sport, matchID)
	m.reconcileLocked()
}

// ClearView drops the viewed match: its detail channel is closed and the
// detail state cleared, so a later re-view starts from a fresh payload.
func (m *Manager) ClearView() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewID == "" {
		return
	}
	m.viewSport = ""
	m.viewID = ""
	m.detail.Clear()
	m.reconcileLocked()
}

// Reconcile runs a reconciliation pass with unchanged inputs. Idempotent:
// with no input change it opens and closes nothing (failed joins whose
// retry backoff has elapsed are the one exception).
func (m *Manager) Reconcile() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconcileLocked()
}

// OpenTopics returns the topics currently registered (pending or joined).
func (m *Manager) OpenTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.subs))
	for t := range m.subs {
		out = append(out, t)
	}
	return out
}

func (m *Manager) interestingLocked() map[events.Sport]bool {
	sports := make(map[events.Sport]bool)
	if m.selected != "" {
		sports[m.selected] = true
	}
	for s := range m.expanded {
		sports[s] = true
	}
	if m.viewSport != "" {
		sports[m.viewSport] = true
	}
	return sports
}

func (m *Manager) desiredLocked(sports map[events.Sport]bool) map[string]bool {
	desired := make(map[string]bool)
	for sport := range sports {
		desired[bulkTopic(sport)] = true
		for _, id := range m.col.IDs(sport, m.limits.MaxFor(string(sport))) {
			desired[matchTopic(sport, id)] = true
		}
	}
	if m.viewID != "" {
		desired[detailTopic(m.viewSport, m.viewID)] = true
	}
	return desired
}

func (m *Manager) reconcileLocked() {
	sports := m.interestingLocked()

	// match summaries live only while their parent sport is interesting
	for _, loaded := range m.col.Sports() {
		if !sports[loaded] {
			m.col.DropSport(loaded)
		}
	}

	if !m.connected {
		return
	}

	desired := m.desiredLocked(sports)

	for topic, e := range m.subs {
		if desired[topic] {
			continue
		}
		e.sub.Leave()
		delete(m.subs, topic)
		delete(m.retryAt, topic)
		delete(m.retryN, topic)
		telemetry.Metrics.ChannelsClosed.Inc()
		telemetry.Metrics.OpenChannels.Dec()
	}

	now := m.now()
	for topic := range desired {
		if _, ok := m.subs[topic]; ok {
			continue
		}
		if at, ok := m.retryAt[topic]; ok && now.Before(at) {
			continue
		}
		m.openLocked(topic)
	}
}

// openLocked records the registry entry before requesting the join, then
// wires handlers bound to the identifiers parsed from the topic — never to
// ambient selection state read at delivery time.
func (m *Manager) openLocked(topic string) {
	sub := m.tr.Subscribe(topic)
	m.subs[topic] = &subEntry{topic: topic, sub: sub, state: subPending}
	telemetry.Metrics.OpenChannels.Inc()

	if sport, id, ok := splitMatchTopic(topic); ok {
		if isDetailTopic(topic) {
			m.wireDetail(sub, sport, id)
		} else {
			m.wireMatch(sub, sport, id)
		}
	} else if sport, ok := splitBulkTopic(topic); ok {
		m.wireBulk(sub, sport)
	}

	t := topic
	sub.OnResult(func(ok bool, reason string) { m.onJoinResult(t, ok, reason) })
	sub.Join()
}

func (m *Manager) onJoinResult(topic string, ok bool, reason string) {
	m.mu.Lock()
	e, exists := m.subs[topic]
	if !exists {
		// the key stopped being interesting while the join was in flight;
		// the close was already requested when the entry was removed
		m.mu.Unlock()
		return
	}
	if ok {
		e.state = subJoined
		delete(m.retryAt, topic)
		delete(m.retryN, topic)
		m.mu.Unlock()
		telemetry.Metrics.ChannelsJoined.Inc()
		telemetry.Debugf("feed: joined %q", topic)
		return
	}

	// one failed key leaves the others alone; it stays unsubscribed until a
	// later reconciliation pass retries it, with bounded backoff
	delete(m.subs, topic)
	m.retryN[topic]++
	m.retryAt[topic] = m.now().Add(m.retryBackoffLocked(m.retryN[topic]))
	m.mu.Unlock()

	telemetry.Metrics.JoinErrors.Inc()
	telemetry.Metrics.OpenChannels.Dec()
	telemetry.Warnf("feed: join %q failed: %s", topic, reason)
}

func (m *Manager) retryBackoffLocked(attempt int) time.Duration {
	backoff := m.limits.JoinRetryMin()
	for i := 1; i < attempt && backoff < m.limits.JoinRetryMax(); i++ {
		backoff *= 2
	}
	if ceil := m.limits.JoinRetryMax(); backoff > ceil {
		backoff = ceil
	}
	return backoff
}

// wireBulk handles the matches:{sport} channel: initial data and bulk
// updates replace the sport's collection; removals drop one match.
func (m *Manager) wireBulk(sub Subscription, sport events.Sport) {
	sub.On(string(events.EventInitialMatches), func(payload json.RawMessage) {
		m.handleBulk(sport, events.EventInitialMatches, payload)
	})
	sub.On(string(events.EventMatchesUpdated), func(payload json.RawMessage) {
		m.handleBulk(sport, events.EventMatchesUpdated, payload)
	})
	sub.On(string(events.EventMatchRemoved), func(payload json.RawMessage) {
		var body struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.ID == "" {
			return
		}
		m.col.Remove(sport, body.ID)
		m.mu.Lock()
		m.reconcileLocked()
		m.mu.Unlock()
		m.publish(events.Event{
			Type:      events.EventMatchRemoved,
			Sport:     sport,
			MatchID:   body.ID,
			Timestamp: time.Now(),
		})
	})
}

func (m *Manager) handleBulk(sport events.Sport, typ events.EventType, payload json.RawMessage) {
	var body struct {
		Matches []League `json:"matches"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		telemetry.Metrics.ParseErrors.Inc()
		telemetry.Warnf("feed: bad %s payload for %s: %v", typ, sport, err)
		return
	}

	m.col.ReplaceSport(sport, body.Matches)
	m.mu.Lock()
	m.reconcileLocked() // the loaded id set changed
	m.mu.Unlock()

	m.publish(events.Event{
		Type:      typ,
		Sport:     sport,
		Timestamp: time.Now(),
		Payload:   body.Matches,
	})
}

// wireMatch handles a match:{sport}:{id} channel. sport and id are the
// identifiers captured at subscribe time.
func (m *Manager) wireMatch(sub Subscription, sport events.Sport, matchID string) {
	sub.On(string(events.EventMatchUpdate), func(payload json.RawMessage) {
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			telemetry.Metrics.ParseErrors.Inc()
			return
		}

		start := time.Now()
		if m.col.Apply(sport, matchID, body.Data) {
			telemetry.Metrics.UpdatesApplied.Inc()
		} else {
			// not in any loaded league — snapshot race, dropped silently
			telemetry.Metrics.UpdatesDropped.Inc()
			return
		}
		m.detail.ApplySummary(sport, matchID, body.Data)
		telemetry.Metrics.UpdateLatency.Record(time.Since(start))

		m.publish(events.Event{
			Type:      events.EventMatchUpdate,
			Sport:     sport,
			MatchID:   matchID,
			Timestamp: time.Now(),
			Payload:   events.ParseMatchData(body.Data),
		})
	})
}

// wireDetail handles a match_details:{sport}:{id} channel.
func (m *Manager) wireDetail(sub Subscription, sport events.Sport, matchID string) {
	sub.On(string(events.EventMatchDetailUpdate), func(payload json.RawMessage) {
		var body struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			telemetry.Metrics.ParseErrors.Inc()
			return
		}

		if !m.detail.Apply(sport, matchID, body.Data) {
			return
		}
		m.publish(events.Event{
			Type:      events.EventMatchDetailUpdate,
			Sport:     sport,
			MatchID:   matchID,
			Timestamp: time.Now(),
		})
	})
}

func (m *Manager) publish(evt events.Event) {
	if m.bus != nil {
		m.bus.Publish(evt)
	}
}
