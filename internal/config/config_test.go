package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != path {
		t.Fatalf("path=%q want=%q", cfg.Path, path)
	}
	if cfg.Generation.MaxConcurrent != 3 || cfg.Generation.CallTimeoutMS != 30000 || cfg.Generation.MaxRetries != 1 {
		t.Fatalf("unexpected generation defaults: %+v", cfg.Generation)
	}
	s := cfg.Simulation
	if s.NewsMinInterval != 60 || s.NewsMaxInterval != 90 || s.RivalMinInterval != 90 || s.RivalMaxInterval != 120 {
		t.Fatalf("unexpected interval defaults: %+v", s)
	}
	if s.MinResponders != 5 || s.MaxResponders != 10 || s.ResponseSpeedMultiplier != 1.0 || s.TickMS != 1000 {
		t.Fatalf("unexpected simulation defaults: %+v", s)
	}
	if cfg.Server.Addr != ":8092" {
		t.Fatalf("addr=%q", cfg.Server.Addr)
	}
}

func TestParseClampsOutOfRangeKnobs(t *testing.T) {
	cfg, err := Parse(`
[generation]
provider = "mock"
max_retries = 0

[simulation]
tick_ms = 50
news_min_interval = 10
news_max_interval = 500
min_responders = 12
max_responders = 4
response_speed_multiplier = 9.0
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := cfg.Simulation
	if s.TickMS != 200 {
		t.Fatalf("tick_ms=%d want=200", s.TickMS)
	}
	if s.NewsMinInterval != 30 || s.NewsMaxInterval != 180 {
		t.Fatalf("news interval=[%d,%d] want=[30,180]", s.NewsMinInterval, s.NewsMaxInterval)
	}
	if s.MinResponders != 12 || s.MaxResponders != 12 {
		t.Fatalf("responders=[%d,%d] want=[12,12]", s.MinResponders, s.MaxResponders)
	}
	if s.ResponseSpeedMultiplier != 2.0 {
		t.Fatalf("speed=%v want=2.0", s.ResponseSpeedMultiplier)
	}
	if cfg.Generation.MaxRetries != 0 {
		t.Fatalf("explicit max_retries=0 was overridden: %d", cfg.Generation.MaxRetries)
	}
}

func TestAPIKeyFallsBackToEnvironmentAndIsRedacted(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-from-env-123")
	cfg, err := Parse(`
[generation]
provider = "gemini"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Generation.APIKey != "gemini-from-env-123" {
		t.Fatalf("api key=%q", cfg.Generation.APIKey)
	}
	if cfg.Generation.Model != DefaultGeminiModel {
		t.Fatalf("model=%q want=%q", cfg.Generation.Model, DefaultGeminiModel)
	}

	cfg, err = Parse(`
[generation]
api_key = "sk-or-secret-value"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	section := cfg.Raw["generation"].(map[string]any)
	if section["api_key"] != "***" {
		t.Fatalf("raw api key not redacted: %v", section["api_key"])
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[player]\ncandidate_name = \"Jordan Lee\"\nparty = \"Republican\"\npolitical_position = 250\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Player.CandidateName != "Jordan Lee" || cfg.Player.Party != "Republican" {
		t.Fatalf("unexpected player: %+v", cfg.Player)
	}
	if cfg.Player.PoliticalPosition != 100 {
		t.Fatalf("position=%d want=100", cfg.Player.PoliticalPosition)
	}
}
