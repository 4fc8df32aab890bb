package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderMock       = "mock"

	DefaultModel       = "anthropic/claude-sonnet-4-20250514"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultEndpoint    = "https://openrouter.ai/api/v1/chat/completions"
)

type Config struct {
	Generation GenerationConfig `toml:"generation"`
	Simulation SimulationConfig `toml:"simulation"`
	Player     PlayerConfig     `toml:"player"`
	Rival      RivalConfig      `toml:"rival"`
	Server     ServerConfig     `toml:"server"`
	Raw        map[string]any   `toml:"-"`
	Path       string           `toml:"-"`
}

type GenerationConfig struct {
	Provider      string  `toml:"provider"`
	APIKey        string  `toml:"api_key"`
	Model         string  `toml:"model"`
	Endpoint      string  `toml:"endpoint"`
	MaxConcurrent int     `toml:"max_concurrent"`
	CallTimeoutMS int     `toml:"call_timeout_ms"`
	MaxRetries    int     `toml:"max_retries"`
	MockLatencyMS [2]int  `toml:"mock_latency_ms"`
	MockFailRate  float64 `toml:"mock_fail_rate"`
}

type SimulationConfig struct {
	TickMS                  int     `toml:"tick_ms"`
	NewsMinInterval         int     `toml:"news_min_interval"`
	NewsMaxInterval         int     `toml:"news_max_interval"`
	RivalMinInterval        int     `toml:"rival_min_interval"`
	RivalMaxInterval        int     `toml:"rival_max_interval"`
	RivalInitialMin         int     `toml:"rival_initial_min"`
	RivalInitialMax         int     `toml:"rival_initial_max"`
	MinResponders           int     `toml:"min_responders"`
	MaxResponders           int     `toml:"max_responders"`
	ResponseSpeedMultiplier float64 `toml:"response_speed_multiplier"`
	ViralMultiplier         float64 `toml:"viral_multiplier"`
	PostHistory             int     `toml:"post_history"`
	NewsHistory             int     `toml:"news_history"`
	RosterPath              string  `toml:"roster_path"`
	Seed                    uint64  `toml:"seed"`
}

type PlayerConfig struct {
	CandidateName     string   `toml:"candidate_name"`
	Party             string   `toml:"party"`
	PoliticalPosition int      `toml:"political_position"`
	PriorityIssues    []string `toml:"priority_issues"`
}

type RivalConfig struct {
	Name              string `toml:"name"`
	Handle            string `toml:"handle"`
	Party             string `toml:"party"`
	PoliticalPosition *int   `toml:"political_position"`
	AvatarSeed        string `toml:"avatar_seed"`
}

type ServerConfig struct {
	Addr               string `toml:"addr"`
	DBPath             string `toml:"db_path"`
	SnapshotIntervalMS int    `toml:"snapshot_interval_ms"`
}

// Load reads the TOML file at path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	bytes, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.Path = resolved
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config file %s: %w", resolved, err)
	}

	cfg, err := Parse(string(bytes))
	if err != nil {
		return Config{}, err
	}
	cfg.Path = resolved
	return cfg, nil
}

// Parse decodes TOML text and applies defaults, clamping and env fallbacks.
func Parse(text string) (Config, error) {
	cfg := base()
	if _, err := toml.Decode(text, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config file: %w", err)
	}
	var raw map[string]any
	if _, err := toml.Decode(text, &raw); err != nil {
		return Config{}, fmt.Errorf("decode raw config: %w", err)
	}
	cfg = cfg.withDefaults()
	cfg.Raw = redact(raw)
	return cfg, nil
}

func Default() Config {
	return base().withDefaults()
}

// base holds the values whose zero is meaningful and so cannot be filled in
// after decoding.
func base() Config {
	return Config{
		Generation: GenerationConfig{MaxRetries: 1, MockFailRate: 0.03},
	}
}

func (c Config) withDefaults() Config {
	g := &c.Generation
	g.Provider = strings.ToLower(strings.TrimSpace(g.Provider))
	if g.Provider == "" {
		g.Provider = ProviderOpenRouter
	}
	if strings.TrimSpace(g.APIKey) == "" {
		switch g.Provider {
		case ProviderOpenRouter:
			g.APIKey = os.Getenv("OPENROUTER_API_KEY")
		case ProviderGemini:
			g.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if strings.TrimSpace(g.Model) == "" {
		if g.Provider == ProviderGemini {
			g.Model = DefaultGeminiModel
		} else {
			g.Model = DefaultModel
		}
	}
	if strings.TrimSpace(g.Endpoint) == "" {
		g.Endpoint = DefaultEndpoint
	}
	if g.MaxConcurrent <= 0 {
		g.MaxConcurrent = 3
	}
	if g.CallTimeoutMS <= 0 {
		g.CallTimeoutMS = 30000
	}
	if g.MaxRetries < 0 {
		g.MaxRetries = 0
	}
	if g.MockLatencyMS[0] <= 0 && g.MockLatencyMS[1] <= 0 {
		g.MockLatencyMS = [2]int{800, 2500}
	}
	if g.MockLatencyMS[1] < g.MockLatencyMS[0] {
		g.MockLatencyMS[1] = g.MockLatencyMS[0]
	}
	if g.MockFailRate < 0 || g.MockFailRate > 1 {
		g.MockFailRate = 0.03
	}

	s := &c.Simulation
	s.TickMS = clampOr(s.TickMS, 1000, 200, 5000)
	s.NewsMinInterval = clampOr(s.NewsMinInterval, 60, 30, 180)
	s.NewsMaxInterval = clampOr(s.NewsMaxInterval, 90, 30, 180)
	if s.NewsMaxInterval < s.NewsMinInterval {
		s.NewsMaxInterval = s.NewsMinInterval
	}
	s.RivalMinInterval = clampOr(s.RivalMinInterval, 90, 60, 240)
	s.RivalMaxInterval = clampOr(s.RivalMaxInterval, 120, 60, 240)
	if s.RivalMaxInterval < s.RivalMinInterval {
		s.RivalMaxInterval = s.RivalMinInterval
	}
	if s.RivalInitialMin <= 0 {
		s.RivalInitialMin = 30
	}
	if s.RivalInitialMax <= 0 {
		s.RivalInitialMax = 60
	}
	if s.RivalInitialMax < s.RivalInitialMin {
		s.RivalInitialMax = s.RivalInitialMin
	}
	s.MinResponders = clampOr(s.MinResponders, 5, 1, 15)
	s.MaxResponders = clampOr(s.MaxResponders, 10, 1, 15)
	if s.MaxResponders < s.MinResponders {
		s.MaxResponders = s.MinResponders
	}
	if s.ResponseSpeedMultiplier == 0 {
		s.ResponseSpeedMultiplier = 1.0
	}
	s.ResponseSpeedMultiplier = min(max(s.ResponseSpeedMultiplier, 0.5), 2.0)
	if s.ViralMultiplier <= 0 {
		s.ViralMultiplier = 1.0
	}
	if s.PostHistory <= 0 {
		s.PostHistory = 100
	}
	if s.NewsHistory <= 0 {
		s.NewsHistory = 20
	}

	p := &c.Player
	if strings.TrimSpace(p.CandidateName) == "" {
		p.CandidateName = "Alex Rivera"
	}
	if strings.TrimSpace(p.Party) == "" {
		p.Party = "Democrat"
	}
	p.PoliticalPosition = min(max(p.PoliticalPosition, -100), 100)

	srv := &c.Server
	if strings.TrimSpace(srv.Addr) == "" {
		srv.Addr = ":8092"
	}
	if strings.TrimSpace(srv.DBPath) == "" {
		srv.DBPath = "data/campaign_feed.db"
	}
	if srv.SnapshotIntervalMS <= 0 {
		srv.SnapshotIntervalMS = 15000
	}
	return c
}

func clampOr(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return min(max(v, lo), hi)
}

func redact(raw map[string]any) map[string]any {
	if section, ok := raw["generation"].(map[string]any); ok {
		if _, ok := section["api_key"]; ok {
			section["api_key"] = "***"
		}
	}
	return raw
}

func expandPath(path string) (string, error) {
	resolved := path
	if resolved == "" {
		resolved = defaultConfigPath()
	}
	if strings.HasPrefix(resolved, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		trimmed := strings.TrimPrefix(resolved, "~")
		trimmed = strings.TrimPrefix(trimmed, "\\")
		trimmed = strings.TrimPrefix(trimmed, "/")
		resolved = filepath.Join(home, trimmed)
	}
	return filepath.Clean(resolved), nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".campaign_feed/config.toml"
	}
	return filepath.Join(home, ".campaign_feed", "config.toml")
}
