package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/arcbet/livefeed/internal/events"
)

// trailKeep is how many ball positions the tracker trail retains.
const trailKeep = 10

// Detail holds the richer state for the one currently viewed match: the full
// detail payload, odds markets, event history, and the ball-position trail.
// It exists only while its match is viewed; Reset re-keys it and Clear empties
// it, so a fresh view never sees a stale payload.
type Detail struct {
	mu      sync.RWMutex
	sport   events.Sport
	matchID string
	data    *events.DetailData
	summary json.RawMessage
	trail   []events.BallPosition
	updated time.Time
}

func NewDetail() *Detail {
	return &Detail{}
}

// Reset keys the detail state to a new match, discarding previous state.
func (d *Detail) Reset(sport events.Sport, matchID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sport = sport
	d.matchID = matchID
	d.data = nil
	d.summary = nil
	d.trail = nil
	d.updated = time.Time{}
}

// Clear empties the detail state entirely (no match viewed).
func (d *Detail) Clear() {
	d.Reset("", "")
}

// Apply merges a detail payload. Payloads keyed to a different match are
// dropped: the handler passes the key it was subscribed with, never the
// currently-viewed key.
func (d *Detail) Apply(sport events.Sport, matchID string, payload json.RawMessage) bool {
	var data events.DetailData
	if err := json.Unmarshal(payload, &data); err != nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if sport != d.sport || matchID != d.matchID {
		return false
	}
	d.data = &data
	if data.BallPosition != nil {
		d.trail = append(d.trail, *data.BallPosition)
		if len(d.trail) > trailKeep {
			d.trail = d.trail[len(d.trail)-trailKeep:]
		}
	}
	d.updated = time.Now()
	return true
}

// ApplySummary mirrors a summary update into the detail view when the
// updated match is the viewed one.
func (d *Detail) ApplySummary(sport events.Sport, matchID string, payload json.RawMessage) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if sport != d.sport || matchID != d.matchID {
		return false
	}
	d.summary = payload
	d.updated = time.Now()
	return true
}

// View is a point-in-time copy of the detail state.
type View struct {
	Sport     events.Sport
	MatchID   string
	Data      *events.DetailData
	Summary   json.RawMessage
	BallTrail []events.BallPosition
	UpdatedAt time.Time
}

func (d *Detail) Snapshot() View {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v := View{
		Sport:     d.sport,
		MatchID:   d.matchID,
		Summary:   d.summary,
		UpdatedAt: d.updated,
	}
	if d.data != nil {
		dataCopy := *d.data
		v.Data = &dataCopy
	}
	if len(d.trail) > 0 {
		v.BallTrail = make([]events.BallPosition, len(d.trail))
		copy(v.BallTrail, d.trail)
	}
	return v
}
