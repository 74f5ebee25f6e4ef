package events

import "encoding/json"

// TeamData is one side of a match payload.
type TeamData struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// MatchData is the common part of a match summary payload. The payload shape
// is sport-dependent; fields not listed here (sets, innings, quarter scores,
// corners) stay in the raw payload and are not interpreted by the feed layer.
// Missing fields decode to zero values.
type MatchData struct {
	T1     TeamData `json:"t1"`
	T2     TeamData `json:"t2"`
	Time   int      `json:"time"` // elapsed seconds
	Period int      `json:"period"`

	// Seq is a monotonic version the server may attach to a payload.
	// Zero when absent.
	Seq int64 `json:"seq,omitempty"`
}

// ParseMatchData decodes the common fields of a summary payload.
// Malformed payloads yield the zero value rather than an error.
func ParseMatchData(raw json.RawMessage) MatchData {
	var md MatchData
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &md)
	}
	return md
}

// DetailData is the full payload streamed on a match_details channel:
// odds markets plus event history, ball position, and live stats.
type DetailData struct {
	T1           TeamData      `json:"t1"`
	T2           TeamData      `json:"t2"`
	Time         int           `json:"time"`
	Odds         []OddsMarket  `json:"odds"`
	Events       []MatchEvent  `json:"events"`
	BallPosition *BallPosition `json:"ball_position"`
	Stats        *MatchStats   `json:"stats"`
}

// OddsMarket is one market in a detail payload. ID resolves to a display
// name through the per-sport market dictionary.
type OddsMarket struct {
	ID      int         `json:"id"`
	HA      *float64    `json:"ha,omitempty"` // handicap value, nil = no handicap
	Blocked int         `json:"bl,omitempty"` // 1 = market blocked
	O       []OddsEntry `json:"o"`
}

type OddsEntry struct {
	Name    string  `json:"n"`
	Value   float64 `json:"v"`
	Blocked int     `json:"bl,omitempty"`
}

// MatchEvent is one entry of the event history ("goal", "corner",
// "yellow_card", ...). Type resolves through the match-event dictionary.
type MatchEvent struct {
	Type   string `json:"type"`
	Time   int    `json:"time"` // seconds of play
	Player string `json:"player,omitempty"`
}

// BallPosition is a field coordinate in percent (0-100 each axis).
type BallPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type MatchStats struct {
	Possession int `json:"possession"`
	Shots      int `json:"shots"`
	Corners    int `json:"corners"`
}

// ConnStatus is the payload of an EventConnStatus event.
type ConnStatus struct {
	Connected bool `json:"connected"`
}
