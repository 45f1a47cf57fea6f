package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Chain.Difficulty)
	assert.Equal(t, "memory", cfg.Snapshot.Backend)
	assert.Equal(t, "memory", cfg.Audit.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 20.0, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
chain:
  difficulty: 2
snapshot:
  backend: file
  path: /var/lib/credchain/chain.json
audit:
  kafka:
    brokers: ["localhost:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2, cfg.Chain.Difficulty)
	assert.Equal(t, "file", cfg.Snapshot.Backend)
	assert.Equal(t, "/var/lib/credchain/chain.json", cfg.Snapshot.Path)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Audit.Kafka.Brokers)
	// Untouched sections keep their defaults.
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chain:\n  difficulty: 2\n"), 0o600))

	t.Setenv("CREDCHAIN_DIFFICULTY", "1")
	t.Setenv("CREDCHAIN_KAFKA_BROKERS", "b1:9092, b2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Chain.Difficulty)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Audit.Kafka.Brokers)
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown snapshot backend", map[string]string{"CREDCHAIN_SNAPSHOT_BACKEND": "tape"}},
		{"file backend without path", map[string]string{"CREDCHAIN_SNAPSHOT_BACKEND": "file"}},
		{"redis backend without url", map[string]string{"CREDCHAIN_SNAPSHOT_BACKEND": "redis"}},
		{"postgres backend without dsn", map[string]string{"CREDCHAIN_SNAPSHOT_BACKEND": "postgres"}},
		{"audit postgres without dsn", map[string]string{"CREDCHAIN_AUDIT_BACKEND": "postgres"}},
		{"difficulty out of range", map[string]string{"CREDCHAIN_DIFFICULTY": "17"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
