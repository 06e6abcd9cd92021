package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("default model: got %s", cfg.Embedding.Model)
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/sources.db"
  bleve_index_path: "./data/indices/bleve"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "sources.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantIndex := filepath.Join(dir, "data", "indices", "bleve")
	if cfg.Storage.BleveIndexPath != wantIndex {
		t.Errorf("bleve_index_path = %s, want %s", cfg.Storage.BleveIndexPath, wantIndex)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("default dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.MaxInputChars != 8000 {
		t.Errorf("default max_input_chars: got %d", cfg.Embedding.MaxInputChars)
	}
	if cfg.Embedding.MaxRetries != 3 || cfg.Embedding.BaseDelayMs != 1000 || cfg.Embedding.MaxJitterMs != 1000 {
		t.Errorf("default retry settings: %+v", cfg.Embedding)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxLimit != 100 {
		t.Errorf("default search limits: %+v", cfg.Search)
	}
	if cfg.Search.SemanticWeight != 0.7 || cfg.Search.KeywordWeight != 0.3 {
		t.Errorf("default weights: semantic=%v keyword=%v", cfg.Search.SemanticWeight, cfg.Search.KeywordWeight)
	}
	if cfg.Backfill.BatchSize != 10 {
		t.Errorf("default backfill batch size: got %d", cfg.Backfill.BatchSize)
	}
	if cfg.Discovery.Threshold != 0.7 || cfg.Discovery.Limit != 10 {
		t.Errorf("default discovery settings: %+v", cfg.Discovery)
	}
}

func TestApplyDefaults_KeepsExplicitWeights(t *testing.T) {
	cfg := &Config{Search: SearchConfig{SemanticWeight: 0.5, KeywordWeight: 0.5}}
	ApplyDefaults(cfg)
	if cfg.Search.SemanticWeight != 0.5 || cfg.Search.KeywordWeight != 0.5 {
		t.Errorf("explicit weights overwritten: %+v", cfg.Search)
	}
}

func TestEmbeddingConfig_ResolveAPIKey(t *testing.T) {
	e := &EmbeddingConfig{APIKey: "from-config"}
	if got := e.ResolveAPIKey(); got != "from-config" {
		t.Errorf("ResolveAPIKey() = %s, want from-config", got)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")
	e = &EmbeddingConfig{}
	if got := e.ResolveAPIKey(); got != "from-env" {
		t.Errorf("ResolveAPIKey() = %s, want from-env", got)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
