package rest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arcbet/livefeed/internal/events"
	"github.com/arcbet/livefeed/internal/telemetry"
)

// Dictionaries is a fetch-once, cache-forever store of the per-sport lookup
// tables: market id → name and match-event code → name. A failed fetch
// leaves the sport absent; lookups then fall back to a synthesized label.
// Concurrent fetches for the same sport are coalesced.
type Dictionaries struct {
	client *Client

	mu      sync.RWMutex
	markets map[events.Sport]map[int]string
	codes   map[events.Sport]map[string]string
	sf      singleflight.Group
}

func NewDictionaries(client *Client) *Dictionaries {
	return &Dictionaries{
		client:  client,
		markets: make(map[events.Sport]map[int]string),
		codes:   make(map[events.Sport]map[string]string),
	}
}

// Ensure fetches and caches the dictionaries for a sport if not yet cached.
func (d *Dictionaries) Ensure(ctx context.Context, sport events.Sport) error {
	d.mu.RLock()
	_, ok := d.markets[sport]
	d.mu.RUnlock()
	if ok {
		return nil
	}

	_, err, _ := d.sf.Do(string(sport), func() (any, error) {
		markets, matchEvents, err := d.client.Markets(ctx, sport)
		if err != nil {
			// sport stays absent; callers get fallback labels
			return nil, err
		}

		mm := make(map[int]string, len(markets))
		for _, m := range markets {
			mm[m.ID] = m.Name
		}
		cm := make(map[string]string, len(matchEvents))
		for _, e := range matchEvents {
			cm[e.ID] = e.Name
		}

		d.mu.Lock()
		d.markets[sport] = mm
		d.codes[sport] = cm
		d.mu.Unlock()

		telemetry.Metrics.DictionaryFetches.Inc()
		telemetry.Infof("rest: cached %d markets, %d event codes for %s", len(mm), len(cm), sport)
		return nil, nil
	})
	return err
}

// MarketName resolves a market id for a sport. Unknown ids (or an uncached
// sport) yield "Market {id}".
func (d *Dictionaries) MarketName(sport events.Sport, id int) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.markets[sport][id]; ok {
		return name
	}
	return fmt.Sprintf("Market %d", id)
}

// EventName resolves a match-event code for a sport. Unknown codes yield
// "Event {code}".
func (d *Dictionaries) EventName(sport events.Sport, code string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if name, ok := d.codes[sport][code]; ok {
		return name
	}
	return fmt.Sprintf("Event %s", code)
}

// Cached reports whether a sport's dictionaries are loaded.
func (d *Dictionaries) Cached(sport events.Sport) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.markets[sport]
	return ok
}
