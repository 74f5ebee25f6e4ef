package events

import "time"

type Sport string

const (
	SportSoccer     Sport = "soccer"
	SportBasketball Sport = "basketball"
	SportTennis     Sport = "tennis"
	SportHockey     Sport = "hockey"
	SportBaseball   Sport = "baseball"
	SportFootball   Sport = "football"
	SportVolleyball Sport = "volleyball"
)

// Event is the envelope that flows through the event bus.
// Every feed event (snapshot load, match update, detail update, connection
// status change) is wrapped in one.
type Event struct {
	Type      EventType
	Sport     Sport
	MatchID   string
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Bulk channel events (matches:{sport})
	EventInitialMatches EventType = "initial_matches"
	EventMatchesUpdated EventType = "matches_updated"
	EventMatchRemoved   EventType = "match_removed"
	// Per-match channel events
	EventMatchUpdate       EventType = "match_update"
	EventMatchDetailUpdate EventType = "match_detail_update"
	// Transport status
	EventConnStatus EventType = "conn_status"
)
