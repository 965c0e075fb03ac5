package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 50, cfg.Session.HistoryLimit)
	assert.Equal(t, "bookflow.turn", cfg.NATS.Subject)
}

func TestDecode_OverlaysYAML(t *testing.T) {
	cfg := Default()
	doc := `
store:
  driver: sqlite
  path: /tmp/books.db
session:
  ttl: 10m
  redact:
    - '\d{16}'
llm:
  provider: ollama
  model: llama3
`
	require.NoError(t, Decode(strings.NewReader(doc), &cfg))

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/books.db", cfg.Store.Path)
	assert.True(t, cfg.Store.Seed, "unset keys keep their defaults")
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, []string{`\d{16}`}, cfg.Session.Redact)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 8*time.Second, cfg.LLM.Timeout)
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode(strings.NewReader("store:\n  drvier: sqlite\n"), &cfg)
	assert.Error(t, err)
}

func TestDecode_EmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Decode(strings.NewReader("  \n"), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"BOOKFLOW_ADDR":             ":9090",
		"BOOKFLOW_SESSION_TTL":      "45s",
		"BOOKFLOW_DEFAULT_QUANTITY": "0",
		"BOOKFLOW_REDIS_LOCK":       "true",
		"BOOKFLOW_CORS_ORIGINS":     "http://a.test, http://b.test",
		"BOOKFLOW_LLM_PROVIDER":     " openai ",
		"BOOKFLOW_LOG_LEVEL":        "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 45*time.Second, cfg.Session.TTL)
	assert.Equal(t, 0, cfg.Engine.DefaultQuantity)
	assert.True(t, cfg.Redis.Lock)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "info", cfg.Log.Level, "blank values are ignored")
}

func TestApplyEnv_ReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(&cfg, envMap(map[string]string{
		"BOOKFLOW_SESSION_TTL":  "soon",
		"BOOKFLOW_SEARCH_LIMIT": "five",
		"BOOKFLOW_STORE_SEED":   "maybe",
	}))
	require.Error(t, err)
	for _, key := range []string{"BOOKFLOW_SESSION_TTL", "BOOKFLOW_SEARCH_LIMIT", "BOOKFLOW_STORE_SEED"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "postgres"
	cfg.Session.Backend = "etcd"
	cfg.LLM.Provider = "acme"
	cfg.Session.TTL = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"store.driver", "session.backend", "llm.provider", "session.ttl"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7000\"\nsession:\n  history_limit: 10\n"), 0o600))
	t.Setenv("BOOKFLOW_SESSION_HISTORY_LIMIT", "20")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 20, cfg.Session.HistoryLimit)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
