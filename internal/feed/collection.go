package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/arcbet/livefeed/internal/events"
)

// Match is one match summary inside a league. Data is the sport-dependent
// payload, replaced wholesale on every update — never deep-merged.
type Match struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Version   int64           `json:"-"`
	UpdatedAt time.Time       `json:"-"`
}

// League is a server-ordered group of matches. The order is preserved as
// delivered; the client never re-sorts it.
type League struct {
	Name    string  `json:"league"`
	Matches []Match `json:"matches"`
}

// Collection is the shared in-memory match collection: per-sport ordered
// league lists, mutated in place by identifier on every inbound update.
//
// The RWMutex protects the maps and slices; payloads themselves are
// immutable once stored (replaced, never edited).
type Collection struct {
	mu         sync.RWMutex
	sports     map[events.Sport][]League
	lastUpdate time.Time
}

func NewCollection() *Collection {
	return &Collection{
		sports: make(map[events.Sport][]League),
	}
}

// ReplaceSport installs a fresh snapshot for a sport, replacing whatever was
// loaded before. Subsequent per-match updates layer on top by identifier.
func (c *Collection) ReplaceSport(sport events.Sport, leagues []League) {
	now := time.Now()
	for i := range leagues {
		for j := range leagues[i].Matches {
			m := &leagues[i].Matches[j]
			m.UpdatedAt = now
			m.Version = events.ParseMatchData(m.Data).Seq
		}
	}

	c.mu.Lock()
	c.sports[sport] = leagues
	c.lastUpdate = now
	c.mu.Unlock()
}

// DropSport removes a sport's leagues entirely (sport no longer interesting).
func (c *Collection) DropSport(sport events.Sport) {
	c.mu.Lock()
	delete(c.sports, sport)
	c.mu.Unlock()
}

// Apply replaces the payload of exactly one match, located by identifier.
// All sibling matches and the league ordering are untouched. Updates for
// unknown identifiers are dropped — a snapshot race, not an error. Payloads
// carrying a seq older than the applied one are dropped as stale.
func (c *Collection) Apply(sport events.Sport, matchID string, data json.RawMessage) bool {
	seq := events.ParseMatchData(data).Seq

	c.mu.Lock()
	defer c.mu.Unlock()

	leagues := c.sports[sport]
	for i := range leagues {
		for j := range leagues[i].Matches {
			m := &leagues[i].Matches[j]
			if m.ID != matchID {
				continue
			}
			if seq > 0 && m.Version > 0 && seq <= m.Version {
				return false
			}
			m.Data = data
			if seq > 0 {
				m.Version = seq
			}
			m.UpdatedAt = time.Now()
			c.lastUpdate = m.UpdatedAt
			return true
		}
	}
	return false
}

// Remove deletes one match from its league. League order of the remaining
// matches is preserved.
func (c *Collection) Remove(sport events.Sport, matchID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	leagues := c.sports[sport]
	for i := range leagues {
		for j := range leagues[i].Matches {
			if leagues[i].Matches[j].ID != matchID {
				continue
			}
			leagues[i].Matches = append(leagues[i].Matches[:j], leagues[i].Matches[j+1:]...)
			c.lastUpdate = time.Now()
			return true
		}
	}
	return false
}

// Find returns a copy of one match summary.
func (c *Collection) Find(sport events.Sport, matchID string) (Match, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, lg := range c.sports[sport] {
		for _, m := range lg.Matches {
			if m.ID == matchID {
				return m, true
			}
		}
	}
	return Match{}, false
}

// IDs returns the identifiers of all loaded matches for a sport, in league
// order. limit > 0 caps the result.
func (c *Collection) IDs(sport events.Sport, limit int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for _, lg := range c.sports[sport] {
		for _, m := range lg.Matches {
			if limit > 0 && len(out) >= limit {
				return out
			}
			out = append(out, m.ID)
		}
	}
	return out
}

// Leagues returns a deep-enough copy of a sport's league list for iteration.
func (c *Collection) Leagues(sport events.Sport) []League {
	c.mu.RLock()
	defer c.mu.RUnlock()

	src := c.sports[sport]
	out := make([]League, len(src))
	for i, lg := range src {
		out[i] = League{Name: lg.Name, Matches: make([]Match, len(lg.Matches))}
		copy(out[i].Matches, lg.Matches)
	}
	return out
}

// Sports returns the sports currently loaded.
func (c *Collection) Sports() []events.Sport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]events.Sport, 0, len(c.sports))
	for s := range c.sports {
		out = append(out, s)
	}
	return out
}

// LastUpdate is display-only observability: when any payload last changed.
func (c *Collection) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}
