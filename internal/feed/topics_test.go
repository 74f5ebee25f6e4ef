package feed

import (
	"testing"

	"github.com/arcbet/livefeed/internal/events"
)

func TestTopicRoundTrip(t *testing.T) {
	if got := bulkTopic(events.SportSoccer); got != "matches:soccer" {
		t.Fatalf("bulk topic = %q", got)
	}

	topic := matchTopic(events.SportSoccer, "m1")
	sport, id, ok := splitMatchTopic(topic)
	if !ok || sport != events.SportSoccer || id != "m1" {
		t.Fatalf("split %q = %q %q %v", topic, sport, id, ok)
	}
	if isDetailTopic(topic) {
		t.Fatalf("%q classified as detail", topic)
	}

	topic = detailTopic(events.SportTennis, "m2")
	sport, id, ok = splitMatchTopic(topic)
	if !ok || sport != events.SportTennis || id != "m2" {
		t.Fatalf("split %q = %q %q %v", topic, sport, id, ok)
	}
	if !isDetailTopic(topic) {
		t.Fatalf("%q not classified as detail", topic)
	}

	if sport, ok := splitBulkTopic("matches:soccer"); !ok || sport != events.SportSoccer {
		t.Fatalf("split bulk = %q %v", sport, ok)
	}
	if _, _, ok := splitMatchTopic("matches:soccer"); ok {
		t.Fatalf("bulk topic split as match topic")
	}
	if _, ok := splitBulkTopic("match:soccer:m1"); ok {
		t.Fatalf("match topic split as bulk topic")
	}
}
