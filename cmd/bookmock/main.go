// bookmock simulates the sportsbook backend locally. It serves the REST API
// and a channel socket that replies to joins, accepts heartbeats, and pushes
// synthetic match updates to exercise the full feed pipeline.
//
// Usage:
//
//	go run cmd/bookmock/main.go
//
// Then run cmd/livefeed/main.go with the defaults (localhost:4100).
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcbet/livefeed/internal/channel"
)

const listenAddr = ":4100"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type mockMatch struct {
	mu        sync.Mutex
	id        string
	league    string
	home      string
	away      string
	homeScore int
	awayScore int
	elapsed   int
	period    int
	seq       int64
}

var soccerMatches = []*mockMatch{
	{id: "m-1001", league: "English Premier League", home: "Arsenal", away: "Chelsea", period: 1},
	{id: "m-1002", league: "English Premier League", home: "Liverpool", away: "Everton", period: 1},
	{id: "m-1003", league: "La Liga", home: "Real Madrid", away: "Barcelona", period: 1},
}

var tennisMatches = []*mockMatch{
	{id: "m-2001", league: "ATP Cincinnati", home: "Alcaraz C.", away: "Sinner J.", period: 1},
}

func matchesBySport(sport string) []*mockMatch {
	switch sport {
	case "soccer":
		return soccerMatches
	case "tennis":
		return tennisMatches
	default:
		return nil
	}
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sports", handleSports)
	mux.HandleFunc("/api/matches/", handleMatches)
	mux.HandleFunc("/api/markets/", handleMarkets)
	mux.HandleFunc("/api/pregame/sports/", handlePregameLeagues)
	mux.HandleFunc("/api/pregame/matches", handlePregameMatches)
	mux.HandleFunc("/api/pregame/match/", handlePregameMatch)
	mux.HandleFunc("/socket", handleSocket)

	fmt.Fprintf(os.Stderr, "bookmock listening on %s\n", listenAddr)
	fmt.Fprintf(os.Stderr, "  REST:   http://localhost%s/api\n", listenAddr)
	fmt.Fprintf(os.Stderr, "  Socket: ws://localhost%s/socket\n", listenAddr)

	go tickMatches()

	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// ── REST ────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func handleSports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"sports": []map[string]any{
			{"name": "soccer", "match_count": len(soccerMatches)},
			{"name": "tennis", "match_count": len(tennisMatches)},
		},
	})
}

func handleMatches(w http.ResponseWriter, r *http.Request) {
	sport := strings.TrimPrefix(r.URL.Path, "/api/matches/")
	matches := matchesBySport(sport)
	if matches == nil {
		http.Error(w, "unknown sport", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"matches": buildLeagues(matches)})
}

func handleMarkets(w http.ResponseWriter, r *http.Request) {
	sport := strings.TrimPrefix(r.URL.Path, "/api/markets/")
	if matchesBySport(sport) == nil {
		http.Error(w, "unknown sport", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"markets": []map[string]any{
			{"id": 1, "name": "Match Winner"},
			{"id": 8, "name": "Total Goals"},
			{"id": 17, "name": "Asian Handicap"},
		},
		"match_events": []map[string]any{
			{"id": "goal", "name": "Goal"},
			{"id": "corner", "name": "Corner"},
			{"id": "yellow_card", "name": "Yellow Card"},
		},
	})
}

func handlePregameLeagues(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"leagues": []map[string]any{
			{"country": "England", "leagues": []string{"Premier League", "Championship"}},
			{"country": "Spain", "leagues": []string{"La Liga"}},
		},
	})
}

func handlePregameMatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"matches": []map[string]any{
			{
				"country": "England",
				"leagues": []map[string]any{
					{
						"league": "Premier League",
						"matches": []map[string]any{
							{
								"match_id":   "p-5001",
								"team1_name": "Tottenham",
								"team2_name": "West Ham",
								"start_time": time.Now().Add(3 * time.Hour).Unix(),
							},
						},
					},
				},
			},
		},
	})
}

func handlePregameMatch(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"match": map[string]any{
			"match_id":   "p-5001",
			"team1_name": "Tottenham",
			"team2_name": "West Ham",
			"start_time": time.Now().Add(3 * time.Hour).Unix(),
			"markets": map[string]any{
				"Match Winner": []map[string]any{
					{"name": "1", "value": 2.1},
					{"name": "X", "value": 3.4},
					{"name": "2", "value": 3.2},
				},
			},
		},
	})
}

func buildLeagues(matches []*mockMatch) []map[string]any {
	byLeague := map[string][]map[string]any{}
	var order []string
	for _, m := range matches {
		if _, ok := byLeague[m.league]; !ok {
			order = append(order, m.league)
		}
		byLeague[m.league] = append(byLeague[m.league], map[string]any{
			"id":   m.id,
			"data": buildSummary(m),
		})
	}
	leagues := make([]map[string]any, 0, len(order))
	for _, name := range order {
		leagues = append(leagues, map[string]any{
			"league":  name,
			"matches": byLeague[name],
		})
	}
	return leagues
}

func buildSummary(m *mockMatch) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"t1":     map[string]any{"name": m.home, "score": m.homeScore},
		"t2":     map[string]any{"name": m.away, "score": m.awayScore},
		"time":   m.elapsed,
		"period": m.period,
		"seq":    m.seq,
	}
}

func buildDetail(m *mockMatch) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]any{
		"t1":   map[string]any{"name": m.home, "score": m.homeScore},
		"t2":   map[string]any{"name": m.away, "score": m.awayScore},
		"time": m.elapsed,
		"odds": []map[string]any{
			{
				"id": 1,
				"o": []map[string]any{
					{"n": "1", "v": 2.5},
					{"n": "X", "v": 3.2},
					{"n": "2", "v": 2.8},
				},
			},
		},
		"ball_position": map[string]any{
			"x": rand.Float64() * 100,
			"y": rand.Float64() * 100,
		},
		"stats": map[string]any{
			"possession": 40 + rand.Intn(20),
			"shots":      m.homeScore + m.awayScore + 3,
			"corners":    rand.Intn(10),
		},
	}
}

// ── Channel socket ──────────────────────────────────────────────

type session struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	topics map[string]bool
}

func (s *session) send(msg channel.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

func (s *session) reply(in channel.Message, status string) {
	payload, _ := channel.ReplyPayload(status, map[string]any{})
	s.send(channel.Message{
		Topic:   in.Topic,
		Event:   channel.EventReply,
		Payload: payload,
		Ref:     in.Ref,
		JoinRef: in.JoinRef,
	})
}

func (s *session) push(topic, event string, payload any) error {
	raw, _ := json.Marshal(payload)
	return s.send(channel.Message{Topic: topic, Event: event, Payload: raw})
}

func handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := &session{conn: conn, topics: make(map[string]bool)}
	fmt.Fprintf(os.Stderr, "socket: client connected from %s\n", r.RemoteAddr)

	stop := make(chan struct{})
	defer close(stop)
	go pushLoop(sess, stop)

	for {
		var msg channel.Message
		if err := conn.ReadJSON(&msg); err != nil {
			fmt.Fprintf(os.Stderr, "socket: read: %v\n", err)
			return
		}

		switch msg.Event {
		case channel.EventHeartbeat:
			sess.reply(msg, channel.StatusOK)

		case channel.EventJoin:
			if !validTopic(msg.Topic) {
				sess.reply(msg, channel.StatusError)
				continue
			}
			sess.reply(msg, channel.StatusOK)
			sess.mu.Lock()
			sess.topics[msg.Topic] = true
			sess.mu.Unlock()

			// Bulk channels get the initial snapshot right after the join ack.
			if sport, ok := strings.CutPrefix(msg.Topic, "matches:"); ok {
				sess.push(msg.Topic, "initial_matches", map[string]any{
					"matches": buildLeagues(matchesBySport(sport)),
				})
			}

		case channel.EventLeave:
			sess.mu.Lock()
			delete(sess.topics, msg.Topic)
			sess.mu.Unlock()
			sess.reply(msg, channel.StatusOK)
		}
	}
}

func validTopic(topic string) bool {
	if sport, ok := strings.CutPrefix(topic, "matches:"); ok {
		return matchesBySport(sport) != nil
	}
	for _, prefix := range []string{"match:", "match_details:"} {
		if rest, ok := strings.CutPrefix(topic, prefix); ok {
			parts := strings.SplitN(rest, ":", 2)
			if len(parts) != 2 {
				return false
			}
			return findMatch(parts[0], parts[1]) != nil
		}
	}
	return false
}

func findMatch(sport, id string) *mockMatch {
	for _, m := range matchesBySport(sport) {
		if m.id == id {
			return m
		}
	}
	return nil
}

// pushLoop streams updates for every joined topic once a second.
func pushLoop(sess *session, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		sess.mu.Lock()
		topics := make([]string, 0, len(sess.topics))
		for t := range sess.topics {
			topics = append(topics, t)
		}
		sess.mu.Unlock()

		for _, topic := range topics {
			var err error
			switch {
			case strings.HasPrefix(topic, "match:"):
				parts := strings.SplitN(strings.TrimPrefix(topic, "match:"), ":", 2)
				if m := findMatch(parts[0], parts[1]); m != nil {
					err = sess.push(topic, "match_update", map[string]any{"data": buildSummary(m)})
				}
			case strings.HasPrefix(topic, "match_details:"):
				parts := strings.SplitN(strings.TrimPrefix(topic, "match_details:"), ":", 2)
				if m := findMatch(parts[0], parts[1]); m != nil {
					err = sess.push(topic, "match_detail_update", map[string]any{"data": buildDetail(m)})
				}
			}
			if err != nil {
				return
			}
		}
	}
}

// tickMatches advances elapsed time and occasionally scores.
func tickMatches() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	all := append(append([]*mockMatch{}, soccerMatches...), tennisMatches...)

	for range ticker.C {
		for _, m := range all {
			m.mu.Lock()
			m.elapsed++
			m.seq++

			// ~2% chance of a score per tick.
			if rand.Float64() < 0.02 {
				if rand.Float64() < 0.5 {
					m.homeScore++
				} else {
					m.awayScore++
				}
			}

			if m.period == 1 && m.elapsed >= 2700 {
				m.period = 2
				m.elapsed = 0
			}
			m.mu.Unlock()
		}
	}
}
