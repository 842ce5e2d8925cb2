package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lectern-labs/lectern/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "lectern"
user = "lectern"
password = "lectern"
ssl_mode = "disable"
max_open_conns = 25
max_idle_conns = 5
conn_max_lifetime = "15m"
conn_timeout = "5s"

[storage]
container_name = "papers"
connection_string = "DefaultEndpointsProtocol=http;AccountName=lecternstore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/lecternstore;"

[api]
base_path = "/api"

[api.pagination]
default_page_size = 25
max_page_size = 50

[openai]
chat_model = "gpt-4o"
embedding_model = "text-embedding-3-small"
dimensions = 1536

[search]
max_results = 3
depth = "basic"

[query]
retrieve_k = 6
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[search]
depth = "advanced"
`

// minimalConfig provides the fields validation requires beyond what the
// API-key environment variables cover (db name, db user, storage connection
// string).
const minimalConfig = `
[database]
name = "lectern"
user = "lectern"

[storage]
connection_string = "conn"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

// setRequiredKeys satisfies the API-key validation that Finalize enforces for
// the language model and parser integrations.
func setRequiredKeys(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvOpenAIAPIKey, "sk-test")
	t.Setenv(config.EnvParserAPIKey, "llx-test")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)
	setRequiredKeys(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.Storage.ContainerName != "papers" {
		t.Errorf("storage container: got %s, want papers", cfg.Storage.ContainerName)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.API.Pagination.MaxPageSize != 50 {
		t.Errorf("pagination max_page_size: got %d, want 50", cfg.API.Pagination.MaxPageSize)
	}
	if cfg.OpenAI.APIKey() != "sk-test" {
		t.Errorf("openai key not resolved from environment")
	}
	if cfg.Search.MaxResults != 3 || cfg.Search.Depth != "basic" {
		t.Errorf("search: got %d/%s", cfg.Search.MaxResults, cfg.Search.Depth)
	}
	if cfg.Query.RetrieveK != 6 {
		t.Errorf("retrieve_k: got %d, want 6", cfg.Query.RetrieveK)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)
	setRequiredKeys(t)

	t.Setenv(config.EnvLecternEnv, "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
	if cfg.Search.Depth != "advanced" {
		t.Errorf("search depth: got %s, want advanced (from overlay)", cfg.Search.Depth)
	}
	if cfg.Search.MaxResults != 3 {
		t.Errorf("search max_results: got %d, want 3 (from base)", cfg.Search.MaxResults)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)
	setRequiredKeys(t)

	t.Setenv(config.EnvLecternVersion, "2.0.0")
	t.Setenv(config.EnvServerPort, "3000")
	t.Setenv(config.EnvSearchAPIKey, "tvly-test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Search.APIKey() != "tvly-test" {
		t.Errorf("search key not resolved from environment")
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	setRequiredKeys(t)

	t.Setenv("LECTERN_DB_NAME", "testdb")
	t.Setenv("LECTERN_DB_USER", "testuser")
	t.Setenv("LECTERN_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name from env: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Storage.ConnectionString != "conn" {
		t.Errorf("storage conn from env: got %s, want conn", cfg.Storage.ConnectionString)
	}
	if cfg.Parser.PollInterval != 2*time.Second {
		t.Errorf("parser poll interval default: got %v", cfg.Parser.PollInterval)
	}
	if cfg.Query.RetrieveK != 4 {
		t.Errorf("retrieve_k default: got %d, want 4", cfg.Query.RetrieveK)
	}
	// No search key set, so the web branch stays disabled.
	if cfg.Search.APIKey() != "" {
		t.Errorf("search key: got %q, want empty", cfg.Search.APIKey())
	}
}

func TestLoadMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", minimalConfig)
	chdir(t, dir)
	setRequiredKeys(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load minimal config failed: %v", err)
	}

	if cfg.ShutdownTimeout != "30s" {
		t.Errorf("shutdown_timeout default: got %s", cfg.ShutdownTimeout)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o" {
		t.Errorf("chat model default: got %s", cfg.OpenAI.ChatModel)
	}
	if cfg.Search.Depth != "advanced" {
		t.Errorf("search depth default: got %s", cfg.Search.Depth)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", "invalid = [")
	chdir(t, dir)
	setRequiredKeys(t)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadMissingAPIKey(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", minimalConfig)
	chdir(t, dir)

	t.Setenv(config.EnvParserAPIKey, "llx-test")
	t.Setenv(config.EnvOpenAIAPIKey, "")
	t.Setenv(config.EnvOpenAIAPIKeyFallback, "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when no model API key is configured")
	}
}

func TestEnvDefault(t *testing.T) {
	t.Setenv(config.EnvLecternEnv, "")

	cfg := &config.Config{}
	if env := cfg.Env(); env != "local" {
		t.Errorf("env default: got %s, want local", env)
	}

	t.Setenv(config.EnvLecternEnv, "production")
	if env := cfg.Env(); env != "production" {
		t.Errorf("env: got %s, want production", env)
	}
}
