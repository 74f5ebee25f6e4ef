package feed

import (
	"fmt"
	"strings"

	"github.com/arcbet/livefeed/internal/events"
)

// Topic naming convention of the sportsbook channel server.
//
//	matches:{sport}                 bulk feed for a sport
//	match:{sport}:{matchId}         per-match summary updates
//	match_details:{sport}:{matchId} full detail payloads for one match
func bulkTopic(sport events.Sport) string {
	return fmt.Sprintf("matches:%s", sport)
}

func matchTopic(sport events.Sport, matchID string) string {
	return fmt.Sprintf("match:%s:%s", sport, matchID)
}

func detailTopic(sport events.Sport, matchID string) string {
	return fmt.Sprintf("match_details:%s:%s", sport, matchID)
}

// splitMatchTopic returns (sport, matchID) for match: and match_details:
// topics, or ok=false for anything else.
func splitMatchTopic(topic string) (events.Sport, string, bool) {
	parts := strings.SplitN(topic, ":", 3)
	if len(parts) != 3 {
		return "", "", false
	}
	if parts[0] != "match" && parts[0] != "match_details" {
		return "", "", false
	}
	return events.Sport(parts[1]), parts[2], true
}

// splitBulkTopic returns the sport of a matches:{sport} topic.
func splitBulkTopic(topic string) (events.Sport, bool) {
	rest, ok := strings.CutPrefix(topic, "matches:")
	if !ok || rest == "" {
		return "", false
	}
	return events.Sport(rest), true
}

func isDetailTopic(topic string) bool {
	return strings.HasPrefix(topic, "match_details:")
}
