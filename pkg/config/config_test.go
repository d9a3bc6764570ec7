package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Search.CandidateCap != 50 {
		t.Errorf("Search.CandidateCap = %d, want 50", cfg.Search.CandidateCap)
	}
	if cfg.Search.KeywordWeight != 0.4 || cfg.Search.SemanticWeight != 0.6 {
		t.Errorf("weights = %v/%v, want 0.4/0.6", cfg.Search.KeywordWeight, cfg.Search.SemanticWeight)
	}
	if cfg.Embedding.Provider != "local" {
		t.Errorf("Embedding.Provider = %q, want local", cfg.Embedding.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9999
search:
  keywordWeight: 0.7
  semanticWeight: 0.3
  candidateCap: 25
redis:
  cacheTTL: 2m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Search.KeywordWeight != 0.7 {
		t.Errorf("KeywordWeight = %v, want 0.7", cfg.Search.KeywordWeight)
	}
	if cfg.Search.CandidateCap != 25 {
		t.Errorf("CandidateCap = %d, want 25", cfg.Search.CandidateCap)
	}
	if cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.Redis.CacheTTL)
	}
	// Untouched fields keep defaults.
	if cfg.Search.MatchEpsilon != 0.05 {
		t.Errorf("MatchEpsilon = %v, want 0.05", cfg.Search.MatchEpsilon)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("no/such/config.yaml"); err == nil {
		t.Fatal("Load() = nil, want error")
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	path := writeConfig(t, `
search:
  keywordWeight: 0.5
  semanticWeight: 0.6
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil, want weight-sum error")
	}
}

func TestValidateRejectsBadCandidateCap(t *testing.T) {
	path := writeConfig(t, `
search:
  candidateCap: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil, want candidateCap error")
	}
}

func TestValidateRejectsBadEpsilon(t *testing.T) {
	path := writeConfig(t, `
search:
  matchEpsilon: 1.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil, want matchEpsilon error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CS_SERVER_PORT", "7777")
	t.Setenv("CS_SEARCH_KEYWORD_WEIGHT", "0.5")
	t.Setenv("CS_SEARCH_SEMANTIC_WEIGHT", "0.5")
	t.Setenv("CS_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777", cfg.Server.Port)
	}
	if cfg.Search.KeywordWeight != 0.5 || cfg.Search.SemanticWeight != 0.5 {
		t.Errorf("weights = %v/%v, want 0.5/0.5", cfg.Search.KeywordWeight, cfg.Search.SemanticWeight)
	}
	if cfg.Embedding.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Embedding.Provider)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Brokers = %v, want [k1:9092 k2:9092]", cfg.Kafka.Brokers)
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db", Port: 5432, Database: "search",
		User: "svc", Password: "secret", SSLMode: "disable",
	}
	want := "host=db port=5432 user=svc password=secret dbname=search sslmode=disable"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
