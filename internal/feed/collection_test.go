package feed

import (
	"encoding/json"
	"testing"

	"github.com/arcbet/livefeed/internal/events"
)

func snapshot() []League {
	return []League{
		{Name: "English Premier League", Matches: []Match{
			{ID: "m1", Data: json.RawMessage(`{"t1":{"name":"Arsenal","score":0},"t2":{"name":"Chelsea","score":0}}`)},
			{ID: "m2", Data: json.RawMessage(`{"t1":{"name":"Liverpool","score":1},"t2":{"name":"Everton","score":0}}`)},
		}},
		{Name: "La Liga", Matches: []Match{
			{ID: "m3", Data: json.RawMessage(`{"t1":{"name":"Real Madrid","score":0},"t2":{"name":"Barcelona","score":0}}`)},
		}},
	}
}

func TestCollection_ApplyReplacesOneMatchOnly(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())

	update := json.RawMessage(`{"t1":{"name":"Arsenal","score":1},"t2":{"name":"Chelsea","score":0}}`)
	if !col.Apply(events.SportSoccer, "m1", update) {
		t.Fatalf("apply to known match should succeed")
	}

	m1, _ := col.Find(events.SportSoccer, "m1")
	if events.ParseMatchData(m1.Data).T1.Score != 1 {
		t.Fatalf("m1 payload not replaced")
	}
	m2, _ := col.Find(events.SportSoccer, "m2")
	if events.ParseMatchData(m2.Data).T1.Score != 1 {
		t.Fatalf("sibling m2 payload changed")
	}
	m3, _ := col.Find(events.SportSoccer, "m3")
	if events.ParseMatchData(m3.Data).T1.Name != "Real Madrid" {
		t.Fatalf("other league changed")
	}
}

func TestCollection_ApplyUnknownIDDropped(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())

	if col.Apply(events.SportSoccer, "ghost", json.RawMessage(`{}`)) {
		t.Fatalf("apply to unknown id should be dropped")
	}
	if col.Apply(events.SportTennis, "m1", json.RawMessage(`{}`)) {
		t.Fatalf("apply to unloaded sport should be dropped")
	}
}

func TestCollection_ApplyStaleSeqDropped(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, []League{
		{Name: "EPL", Matches: []Match{
			{ID: "m1", Data: json.RawMessage(`{"seq":10}`)},
		}},
	})

	if col.Apply(events.SportSoccer, "m1", json.RawMessage(`{"seq":9}`)) {
		t.Fatalf("stale seq should be dropped")
	}
	if col.Apply(events.SportSoccer, "m1", json.RawMessage(`{"seq":10}`)) {
		t.Fatalf("equal seq should be dropped")
	}
	if !col.Apply(events.SportSoccer, "m1", json.RawMessage(`{"seq":11}`)) {
		t.Fatalf("newer seq should apply")
	}
	// Payloads without a seq always apply.
	if !col.Apply(events.SportSoccer, "m1", json.RawMessage(`{"t1":{"score":1}}`)) {
		t.Fatalf("unversioned payload should apply")
	}
}

func TestCollection_OrderPreserved(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())

	col.Apply(events.SportSoccer, "m2", json.RawMessage(`{"t1":{"score":2}}`))

	ids := col.IDs(events.SportSoccer, 0)
	want := []string{"m1", "m2", "m3"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestCollection_RemoveKeepsSiblings(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())

	if !col.Remove(events.SportSoccer, "m1") {
		t.Fatalf("remove known match should succeed")
	}
	if col.Remove(events.SportSoccer, "m1") {
		t.Fatalf("second remove should report missing")
	}

	ids := col.IDs(events.SportSoccer, 0)
	if len(ids) != 2 || ids[0] != "m2" || ids[1] != "m3" {
		t.Fatalf("ids after remove = %v", ids)
	}
}

func TestCollection_IDsLimit(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())

	ids := col.IDs(events.SportSoccer, 2)
	if len(ids) != 2 {
		t.Fatalf("limit 2 returned %d ids", len(ids))
	}
}

func TestCollection_DropSport(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, snapshot())
	col.DropSport(events.SportSoccer)

	if ids := col.IDs(events.SportSoccer, 0); len(ids) != 0 {
		t.Fatalf("dropped sport still has matches: %v", ids)
	}
}

func TestCollection_ReplaceSportSeedsVersions(t *testing.T) {
	col := NewCollection()
	col.ReplaceSport(events.SportSoccer, []League{
		{Name: "EPL", Matches: []Match{
			{ID: "m1", Data: json.RawMessage(`{"seq":5}`)},
		}},
	})

	// A live update older than the snapshot must lose.
	if col.Apply(events.SportSoccer, "m1", json.RawMessage(`{"seq":4}`)) {
		t.Fatalf("update older than snapshot should be dropped")
	}
}
