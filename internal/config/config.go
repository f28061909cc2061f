// Package config loads the league settings: who plays, what they carried
// in, which tracks the entry form offers, and the standard stake.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/minileague/league-engine/internal/ledger"
	"github.com/minileague/league-engine/internal/model"
	"github.com/minileague/league-engine/internal/track"
)

var (
	ErrNoPlayers       = errors.New("config: at least one player is required")
	ErrDuplicatePlayer = errors.New("config: duplicate player")
	ErrEmptyPlayer     = errors.New("config: player name is empty")
	ErrInvalidBet      = errors.New("config: default_bet must be positive")
)

// Money decodes a YAML scalar such as 80 or -12.50 into a decimal.
type Money struct {
	decimal.Decimal
}

func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	v, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", value.Line, value.Value)
	}
	m.Decimal = v
	return nil
}

// Player is one roster entry.
type Player struct {
	Name           string `yaml:"name"`
	InitialBalance Money  `yaml:"initial_balance"`
}

// League is the contents of the league YAML file.
type League struct {
	DefaultBet  Money    `yaml:"default_bet"`
	DaysPerPage int      `yaml:"days_per_page"`
	Players     []Player `yaml:"players"`
	Tracks      []string `yaml:"tracks"`
}

// Default returns the built-in league.
func Default() *League {
	return &League{
		DefaultBet:  Money{decimal.NewFromInt(40)},
		DaysPerPage: ledger.DefaultDaysPerPage,
		Players: []Player{
			{Name: "Hans", InitialBalance: Money{decimal.Zero}},
			{Name: "Rich", InitialBalance: Money{decimal.NewFromInt(80)}},
			{Name: "Ralls", InitialBalance: Money{decimal.NewFromInt(-80)}},
		},
		Tracks: append([]string(nil), track.DefaultCodes...),
	}
}

// Load reads a league file. Keys left out of the file keep their defaults.
func Load(path string) (*League, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates league YAML.
func Parse(data []byte) (*League, error) {
	def := Default()

	var cfg League
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.DefaultBet.Decimal.IsZero() {
		cfg.DefaultBet = def.DefaultBet
	}
	if cfg.DaysPerPage <= 0 {
		cfg.DaysPerPage = def.DaysPerPage
	}
	if cfg.Players == nil {
		cfg.Players = def.Players
	}
	if cfg.Tracks == nil {
		cfg.Tracks = def.Tracks
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the roster, stake and track list.
func (l *League) Validate() error {
	if len(l.Players) == 0 {
		return ErrNoPlayers
	}
	seen := make(map[string]bool, len(l.Players))
	for _, p := range l.Players {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return ErrEmptyPlayer
		}
		if name == model.ColumnDate || name == model.ColumnTrack {
			return fmt.Errorf("config: player name %q collides with a table column", name)
		}
		if seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, name)
		}
		seen[name] = true
	}
	if !l.DefaultBet.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidBet, l.DefaultBet)
	}
	if _, err := track.NewSet(l.Tracks); err != nil {
		return err
	}
	return nil
}

// Roster builds the ordered player roster.
func (l *League) Roster() model.Roster {
	r := model.Roster{
		Players:         make([]string, 0, len(l.Players)),
		InitialBalances: make(map[string]decimal.Decimal, len(l.Players)),
	}
	for _, p := range l.Players {
		name := strings.TrimSpace(p.Name)
		r.Players = append(r.Players, name)
		r.InitialBalances[name] = p.InitialBalance.Decimal
	}
	return r
}

// TrackSet builds the entry track set. The list is validated by Validate.
func (l *League) TrackSet() *track.Set {
	s, err := track.NewSet(l.Tracks)
	if err != nil {
		panic(err)
	}
	return s
}

// Server holds process settings read from the environment.
type Server struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	LedgerFile  string
	LeagueFile  string
	CacheTTL    time.Duration
	DraftTTL    time.Duration
}

// FromEnv reads server settings through getenv (os.Getenv in main).
func FromEnv(getenv func(string) string) (Server, error) {
	s := Server{
		Port:        getenv("PORT"),
		DatabaseURL: getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL"),
		LedgerFile:  getenv("LEDGER_FILE"),
		LeagueFile:  getenv("LEAGUE_CONFIG"),
		CacheTTL:    30 * time.Second,
		DraftTTL:    30 * time.Minute,
	}
	if s.Port == "" {
		s.Port = "8080"
	}
	if v := getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Server{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
		}
		s.CacheTTL = ttl
	}
	if v := getenv("DRAFT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return Server{}, fmt.Errorf("invalid DRAFT_TTL: %w", err)
		}
		s.DraftTTL = ttl
	}
	return s, nil
}
