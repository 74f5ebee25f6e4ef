package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/arcbet/livefeed/internal/events"
)

func TestClient_Matches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/matches/soccer" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"matches":[
			{"league":"EPL","matches":[
				{"id":"m1","data":{"t1":{"name":"Arsenal","score":0}}},
				{"id":"m2","data":{"t1":{"name":"Liverpool","score":1}}}
			]},
			{"league":"La Liga","matches":[{"id":"m3","data":{}}]}
		]}`))
	}))
	defer srv.Close()

	leagues, err := NewClient(srv.URL).Matches(context.Background(), events.SportSoccer)
	if err != nil {
		t.Fatalf("matches: %v", err)
	}
	if len(leagues) != 2 || leagues[0].Name != "EPL" || len(leagues[0].Matches) != 2 {
		t.Fatalf("leagues = %+v", leagues)
	}
	if leagues[0].Matches[0].ID != "m1" {
		t.Fatalf("first match = %+v", leagues[0].Matches[0])
	}
}

func TestClient_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Sports(context.Background()); err == nil {
		t.Fatalf("502 should surface as an error")
	}
}

func TestClient_PregameMatchesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("sport") != "soccer" || q.Get("filter") != FilterThreeHours {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if got := q["leagues"]; len(got) != 2 || got[0] != "England:Premier League" {
			t.Errorf("leagues = %v", got)
		}
		w.Write([]byte(`{"matches":[{"country":"England","leagues":[
			{"league":"Premier League","matches":[{"match_id":"p1","team1_name":"A","team2_name":"B"}]}
		]}]}`))
	}))
	defer srv.Close()

	countries, err := NewClient(srv.URL).PregameMatches(context.Background(), events.SportSoccer,
		FilterThreeHours, []string{"England:Premier League", "England:Championship"})
	if err != nil {
		t.Fatalf("pregame matches: %v", err)
	}
	if len(countries) != 1 || countries[0].Leagues[0].Matches[0].MatchID != "p1" {
		t.Fatalf("countries = %+v", countries)
	}
}

func TestClient_PregameLeagues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pregame/sports/soccer" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("filter"); got != FilterToday {
			t.Errorf("filter = %q", got)
		}
		w.Write([]byte(`{"leagues":[
			{"country":"England","leagues":["Premier League","Championship"]},
			{"country":"Spain","leagues":["La Liga"]}
		]}`))
	}))
	defer srv.Close()

	groups, err := NewClient(srv.URL).PregameLeagues(context.Background(), events.SportSoccer, FilterToday)
	if err != nil {
		t.Fatalf("pregame leagues: %v", err)
	}
	if len(groups) != 2 || groups[0].Country != "England" || len(groups[0].Leagues) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestClient_PregameMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pregame/match/soccer/p-5001" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"match":{
			"match_id":"p-5001","team1_name":"Tottenham","team2_name":"West Ham",
			"start_time":1756500000,
			"markets":{"Match Winner":[{"name":"1","value":2.1},{"name":"2","value":3.2}]}
		}}`))
	}))
	defer srv.Close()

	m, err := NewClient(srv.URL).PregameMatch(context.Background(), events.SportSoccer, "p-5001")
	if err != nil {
		t.Fatalf("pregame match: %v", err)
	}
	if m == nil || m.MatchID != "p-5001" || m.Team1Name != "Tottenham" {
		t.Fatalf("match = %+v", m)
	}
	odds := m.Markets["Match Winner"]
	if len(odds) != 2 || odds[0].Name != "1" || odds[0].Value != 2.1 {
		t.Fatalf("markets = %+v", m.Markets)
	}
}

func TestPregameFilters(t *testing.T) {
	for _, key := range []string{FilterOneHour, FilterThreeHours, FilterSixHours, FilterTwelveHours, FilterToday, FilterAll} {
		if !ValidFilter(key) {
			t.Errorf("ValidFilter(%q) = false", key)
		}
		if FilterLabel(key) == "Unknown" {
			t.Errorf("FilterLabel(%q) has no label", key)
		}
	}
	if ValidFilter("next_week") {
		t.Errorf("unknown filter accepted")
	}
	if got := FilterLabel("next_week"); got != "Unknown" {
		t.Errorf("unknown filter label = %q", got)
	}
	if got := FilterLabel(FilterThreeHours); got != "3 Hours" {
		t.Errorf("label = %q", got)
	}
}

func TestDictionaries_FetchOnceAndFallback(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{
			"markets":[{"id":1,"name":"Match Winner"}],
			"match_events":[{"id":"goal","name":"Goal"}]
		}`))
	}))
	defer srv.Close()

	d := NewDictionaries(NewClient(srv.URL))

	if err := d.Ensure(context.Background(), events.SportSoccer); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := d.Ensure(context.Background(), events.SportSoccer); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("dictionary fetched %d times, want 1", n)
	}

	if got := d.MarketName(events.SportSoccer, 1); got != "Match Winner" {
		t.Fatalf("market name = %q", got)
	}
	if got := d.MarketName(events.SportSoccer, 42); got != "Market 42" {
		t.Fatalf("unknown market = %q", got)
	}
	if got := d.EventName(events.SportSoccer, "goal"); got != "Goal" {
		t.Fatalf("event name = %q", got)
	}
	if got := d.EventName(events.SportSoccer, "corner"); got != "Event corner" {
		t.Fatalf("unknown event = %q", got)
	}

	// Uncached sport falls back without a fetch having succeeded.
	if got := d.MarketName(events.SportTennis, 7); got != "Market 7" {
		t.Fatalf("uncached sport market = %q", got)
	}
}

func TestDictionaries_FailureLeavesSportAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDictionaries(NewClient(srv.URL))
	if err := d.Ensure(context.Background(), events.SportSoccer); err == nil {
		t.Fatalf("failed fetch should return error")
	}
	if d.Cached(events.SportSoccer) {
		t.Fatalf("failed fetch cached the sport")
	}
	if got := d.MarketName(events.SportSoccer, 1); got != "Market 1" {
		t.Fatalf("fallback = %q", got)
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Süper Lig", "super lig"},
		{"  Premier   League ", "premier league"},
		{"LIGUE 1", "ligue 1"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalizeLabel(c.in); got != c.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if !MatchLeagueFilter("Süper Lig", []string{"super lig"}) {
		t.Fatalf("diacritic variant should match")
	}
	if !MatchLeagueFilter("anything", nil) {
		t.Fatalf("empty filter set should match all")
	}
	if MatchLeagueFilter("La Liga", []string{"EPL"}) {
		t.Fatalf("non-matching league matched")
	}
}
