package rest

// SportInfo is one entry of GET /api/sports.
type SportInfo struct {
	Name       string `json:"name"`
	MatchCount int    `json:"match_count"`
}

// MarketEntry maps a market id to its display name.
type MarketEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MatchEventEntry maps a match-event code to its display name.
type MatchEventEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PregameLeagueGroup is one country's league list from
// GET /api/pregame/sports/{sport}.
type PregameLeagueGroup struct {
	Country string   `json:"country"`
	Leagues []string `json:"leagues"`
}

// PregameOdds is one selectable outcome of a pregame market.
type PregameOdds struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// PregameMatch is one match row of the pregame listing. Markets maps a
// market key (e.g. "home_away") to its outcomes.
type PregameMatch struct {
	MatchID   string                   `json:"match_id"`
	Team1Name string                   `json:"team1_name"`
	Team2Name string                   `json:"team2_name"`
	StartTime int64                    `json:"start_time"` // unix seconds
	Markets   map[string][]PregameOdds `json:"markets"`
}

// PregameLeague groups pregame matches under one league.
type PregameLeague struct {
	League  string         `json:"league"`
	Matches []PregameMatch `json:"matches"`
}

// PregameCountry groups pregame leagues under one country.
type PregameCountry struct {
	Country string          `json:"country"`
	Leagues []PregameLeague `json:"leagues"`
}

// Pregame time-window filters, as the server names them.
const (
	FilterOneHour     = "one_hour"
	FilterThreeHours  = "three_hours"
	FilterSixHours    = "six_hours"
	FilterTwelveHours = "twelve_hours"
	FilterToday       = "today"
	FilterAll         = "all"
)

var filterLabels = map[string]string{
	FilterOneHour:     "1 Hour",
	FilterThreeHours:  "3 Hours",
	FilterSixHours:    "6 Hours",
	FilterTwelveHours: "12 Hours",
	FilterToday:       "Today",
	FilterAll:         "All",
}

// FilterLabel returns the display label for a pregame filter key.
func FilterLabel(key string) string {
	if l, ok := filterLabels[key]; ok {
		return l
	}
	return "Unknown"
}

// ValidFilter reports whether key is a known pregame filter.
func ValidFilter(key string) bool {
	_, ok := filterLabels[key]
	return ok
}
