package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultServer(t *testing.T, wantPath string, data map[string]interface{}) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != wantPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"data": data},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHydrateDisabledIsNoOp(t *testing.T) {
	result, err := Hydrate(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.False(t, result.Enabled)
	assert.Zero(t, result.Loaded)
}

func TestHydrateRequiresAddrTokenPath(t *testing.T) {
	_, err := Hydrate(context.Background(), Config{Enabled: true, Addr: "http://vault"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
}

func TestHydrateExportsSecrets(t *testing.T) {
	server := newVaultServer(t, "/v1/secret/data/marketplace/api", map[string]interface{}{
		"OPENAI_API_KEY":           "sk-test",
		"DB_PASSWORD":              "hunter2",
		"SEARCH_VECTOR_CACHE_SIZE": float64(2048),
	})

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("SEARCH_VECTOR_CACHE_SIZE", "")

	result, err := Hydrate(context.Background(), Config{
		Enabled:   true,
		Addr:      server.URL,
		Token:     "test-token",
		Mount:     "secret",
		Path:      "marketplace/api",
		KVVersion: 2,
		Timeout:   2 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Loaded)
	assert.Equal(t, "sk-test", mustGetenv(t, "OPENAI_API_KEY"))
	assert.Equal(t, "hunter2", mustGetenv(t, "DB_PASSWORD"))
	assert.Equal(t, "2048", mustGetenv(t, "SEARCH_VECTOR_CACHE_SIZE"))
}

func TestHydrateSkipsExistingKeysWithoutOverwrite(t *testing.T) {
	server := newVaultServer(t, "/v1/secret/data/marketplace/api", map[string]interface{}{
		"DB_PASSWORD": "from-vault",
	})

	t.Setenv("DB_PASSWORD", "from-env")

	result, err := Hydrate(context.Background(), Config{
		Enabled:   true,
		Addr:      server.URL,
		Token:     "test-token",
		Mount:     "secret",
		Path:      "marketplace/api",
		KVVersion: 2,
		Timeout:   2 * time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Loaded)
	assert.Equal(t, "from-env", mustGetenv(t, "DB_PASSWORD"))
}

func TestHydrateSurfacesVaultErrors(t *testing.T) {
	server := newVaultServer(t, "/v1/secret/data/other", nil)

	_, err := Hydrate(context.Background(), Config{
		Enabled:   true,
		Addr:      server.URL,
		Token:     "test-token",
		Mount:     "secret",
		Path:      "marketplace/api",
		KVVersion: 2,
		Timeout:   2 * time.Second,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault fetch failed")
}

func TestSecretURL(t *testing.T) {
	tests := []struct {
		name      string
		kvVersion int
		want      string
	}{
		{name: "kv v2 inserts data segment", kvVersion: 2, want: "http://vault:8200/v1/secret/data/marketplace/api"},
		{name: "kv v1 uses plain path", kvVersion: 1, want: "http://vault:8200/v1/secret/marketplace/api"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := secretURL("http://vault:8200/", "secret", "/marketplace/api", tt.kvVersion)
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"VAULT_ENABLED", "VAULT_ADDR", "VAULT_TOKEN", "VAULT_MOUNT",
		"VAULT_PATH", "VAULT_KV_VERSION", "VAULT_TIMEOUT_MS", "VAULT_OVERWRITE",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv("")
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "secret", cfg.Mount)
	assert.Equal(t, 2, cfg.KVVersion)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestFromEnvPathOverride(t *testing.T) {
	t.Setenv("VAULT_PATH", "from-env")
	cfg := FromEnv("explicit/path")
	assert.Equal(t, "explicit/path", cfg.Path)
}

func mustGetenv(t *testing.T, key string) string {
	t.Helper()
	value, ok := os.LookupEnv(key)
	require.True(t, ok, "expected %s to be set", key)
	return value
}
