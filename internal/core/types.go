package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Exchange identifies a market the backend scans
type Exchange string

const (
	ExchangeNSE Exchange = "NSE"
	ExchangeBSE Exchange = "BSE"
)

// Horizon is the lookback classifier of a breakout
type Horizon string

const (
	HorizonToday   Horizon = "TODAY"
	HorizonD2      Horizon = "D2"
	HorizonD10     Horizon = "D10"
	HorizonD30     Horizon = "D30"
	HorizonD50     Horizon = "D50"
	HorizonD100    Horizon = "D100"
	HorizonW52     Horizon = "W52"
	HorizonAllTime Horizon = "ALL_TIME"
)

// Horizons lists every tag the backend may emit, shortest lookback first.
func Horizons() []Horizon {
	return []Horizon{
		HorizonToday, HorizonD2, HorizonD10, HorizonD30,
		HorizonD50, HorizonD100, HorizonW52, HorizonAllTime,
	}
}

// IsValid reports whether h is one of the known tags.
func (h Horizon) IsValid() bool {
	for _, known := range Horizons() {
		if h == known {
			return true
		}
	}
	return false
}

// Group is a display bucket on the board.
type Group struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Horizon Horizon `json:"horizon"`
}

// Groups returns the display buckets in board order.
// D50 is emitted by the backend but has no bucket of its own.
func Groups() []Group {
	return []Group{
		{ID: "1d", Title: "1 Day", Horizon: HorizonToday},
		{ID: "2d", Title: "2 Days", Horizon: HorizonD2},
		{ID: "10d", Title: "10 Days", Horizon: HorizonD10},
		{ID: "30d", Title: "30 Days", Horizon: HorizonD30},
		{ID: "100d", Title: "100 Days", Horizon: HorizonD100},
		{ID: "52w", Title: "52 Weeks", Horizon: HorizonW52},
		{ID: "all", Title: "All Time", Horizon: HorizonAllTime},
	}
}

// GroupByID finds a display bucket by its id or horizon tag.
func GroupByID(id string) (Group, bool) {
	for _, g := range Groups() {
		if strings.EqualFold(g.ID, id) || strings.EqualFold(string(g.Horizon), id) {
			return g, true
		}
	}
	return Group{}, false
}

// Timestamp decodes the backend's optional ISO-8601 timestamps.
// Missing, null and empty values all decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp parses any of the layouts the backend produces.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// Breakout is one detected level crossing for a symbol at a horizon
type Breakout struct {
	Symbol             string    `json:"symbol"`
	Exchange           string    `json:"exchange"`
	Horizon            Horizon   `json:"breakout_type"`
	ClosePrice         float64   `json:"close_price"`
	BreakoutLevel      float64   `json:"breakout_level"`
	BreakoutPct        float64   `json:"breakout_pct"`
	Volume             int64     `json:"volume"`
	AvgVolume          int64     `json:"avg_volume_n,omitempty"`
	VolumeConfirmation bool      `json:"volume_confirmation"`
	TradeDate          string    `json:"trade_date,omitempty"`
	DetectedAt         Timestamp `json:"detected_at"`
}

// Key returns the dismissal identifier of the breakout.
func (b Breakout) Key() DismissKey {
	return DismissKey{Exchange: b.Exchange, Symbol: b.Symbol}
}

// Is reports whether the breakout belongs to the given symbol on the given exchange.
func (b Breakout) Is(symbol, exchange string) bool {
	return b.Symbol == symbol && b.Exchange == exchange
}

// MarketState is the backend's view of the trading session
type MarketState string

const (
	MarketPreOpen   MarketState = "PRE_OPEN"
	MarketOpen      MarketState = "OPEN"
	MarketPostClose MarketState = "POST_CLOSE"
	MarketClosed    MarketState = "CLOSED"
	MarketWeekend   MarketState = "WEEKEND"
	MarketHoliday   MarketState = "HOLIDAY"
	MarketUnknown   MarketState = "UNKNOWN"
)

// SystemStatus is a snapshot of the backend clock and session.
type SystemStatus struct {
	SystemTime   Timestamp   `json:"system_time"`
	MarketState  MarketState `json:"market_state"`
	TradeDate    string      `json:"trade_date"`
	IsMarketOpen bool        `json:"is_market_open"`
}

// Direction filters breakouts by the sign of their percentage
type Direction string

const (
	DirectionAll  Direction = "ALL"
	DirectionBull Direction = "BULL"
	DirectionBear Direction = "BEAR"
)

// ParseDirection accepts ALL/BULL/BEAR and the LONG/SHORT aliases.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return DirectionAll, nil
	case "BULL", "LONG":
		return DirectionBull, nil
	case "BEAR", "SHORT":
		return DirectionBear, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Matches reports whether pct passes the direction filter.
// Zero matches neither BULL nor BEAR.
func (d Direction) Matches(pct float64) bool {
	switch d {
	case DirectionBull:
		return pct > 0
	case DirectionBear:
		return pct < 0
	default:
		return true
	}
}

// SortKey is a sortable numeric column
type SortKey string

const (
	SortByLevel SortKey = "breakout_level"
	SortByPrice SortKey = "close_price"
	SortByPct   SortKey = "breakout_pct"
)

// ParseSortKey accepts column names and their short aliases.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakout_level", "level":
		return SortByLevel, nil
	case "close_price", "price":
		return SortByPrice, nil
	case "breakout_pct", "pct":
		return SortByPct, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// Value extracts the column value from a breakout.
func (k SortKey) Value(b Breakout) float64 {
	switch k {
	case SortByLevel:
		return b.BreakoutLevel
	case SortByPrice:
		return b.ClosePrice
	case SortByPct:
		return b.BreakoutPct
	default:
		return 0
	}
}

// SortOrder is the direction of an active sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DismissKey identifies a dismissed (exchange, symbol) pair.
type DismissKey struct {
	Exchange string
	Symbol   string
}

// String formats the key as "<exchange>:<symbol>".
func (k DismissKey) String() string {
	return k.Exchange + ":" + k.Symbol
}

// ParseDismissKey splits "<exchange>:<symbol>" on the first separator.
func ParseDismissKey(s string) (DismissKey, error) {
	exchange, symbol, ok := strings.Cut(s, ":")
	if !ok || exchange == "" || symbol == "" {
		return DismissKey{}, WrapError(ErrInvalidKey, fmt.Errorf("%q", s))
	}
	return DismissKey{Exchange: exchange, Symbol: symbol}, nil
}
