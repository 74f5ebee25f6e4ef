package rest

import (
	"context"
	"fmt"
	"net/url"

	"github.com/arcbet/livefeed/internal/events"
	"github.com/arcbet/livefeed/internal/feed"
	"github.com/arcbet/livefeed/internal/telemetry"
)

// Sports fetches the sport list with current match counts.
func (c *Client) Sports(ctx context.Context) ([]SportInfo, error) {
	var resp struct {
		Sports []SportInfo `json:"sports"`
	}
	if err := c.getJSON(ctx, "/api/sports", &resp); err != nil {
		return nil, err
	}
	return resp.Sports, nil
}

// Matches fetches the current league/match snapshot for a sport. The caller
// replaces the whole per-sport collection with the result; real-time updates
// layer on top by identifier.
func (c *Client) Matches(ctx context.Context, sport events.Sport) ([]feed.League, error) {
	var resp struct {
		Matches []feed.League `json:"matches"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/matches/%s", sport), &resp); err != nil {
		return nil, err
	}
	telemetry.Metrics.SnapshotFetches.Inc()
	return resp.Matches, nil
}

// Markets fetches the per-sport market and match-event dictionaries.
func (c *Client) Markets(ctx context.Context, sport events.Sport) ([]MarketEntry, []MatchEventEntry, error) {
	var resp struct {
		Markets     []MarketEntry     `json:"markets"`
		MatchEvents []MatchEventEntry `json:"match_events"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/api/markets/%s", sport), &resp); err != nil {
		return nil, nil, err
	}
	return resp.Markets, resp.MatchEvents, nil
}

// PregameLeagues fetches the country/league groupings for pregame browsing.
func (c *Client) PregameLeagues(ctx context.Context, sport events.Sport, filter string) ([]PregameLeagueGroup, error) {
	var resp struct {
		Leagues []PregameLeagueGroup `json:"leagues"`
	}
	path := fmt.Sprintf("/api/pregame/sports/%s?filter=%s", sport, url.QueryEscape(filter))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Leagues, nil
}

// PregameMatches fetches grouped pregame listings. leagues holds
// "{country}:{league}" keys; empty means all leagues.
func (c *Client) PregameMatches(ctx context.Context, sport events.Sport, filter string, leagues []string) ([]PregameCountry, error) {
	q := url.Values{}
	q.Set("sport", string(sport))
	q.Set("filter", filter)
	for _, lg := range leagues {
		q.Add("leagues", lg)
	}

	var resp struct {
		Matches []PregameCountry `json:"matches"`
	}
	if err := c.getJSON(ctx, "/api/pregame/matches?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// PregameMatch fetches a single pregame match with its full market map.
func (c *Client) PregameMatch(ctx context.Context, sport events.Sport, matchID string) (*PregameMatch, error) {
	var resp struct {
		Match *PregameMatch `json:"match"`
	}
	path := fmt.Sprintf("/api/pregame/match/%s/%s", sport, url.PathEscape(matchID))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Match, nil
}
