package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(afero.NewMemMapFs(), "/nope/config.yml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	yamlText := `
catalog: /etc/setdeck/catalog.yml
default_page: Main
vault:
  attempts: 2
  backoff: 1s
logging:
  level: debug
`
	require.NoError(t, afero.WriteFile(fs, "/config.yml", []byte(yamlText), 0o644))

	cfg, err := Load(fs, "/config.yml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/setdeck/catalog.yml", cfg.Catalog)
	assert.Equal(t, "Main", cfg.DefaultPage)
	assert.Equal(t, 2, cfg.Vault.Attempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSize)
	assert.Equal(t, DefaultConfig().UtilityTypes, cfg.UtilityTypes)

	backoff, err := cfg.Vault.BackoffDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Second, backoff)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "defaults", input: ``},
		{name: "zero attempts", input: "vault:\n  attempts: 0\n", wantErr: "attempts"},
		{name: "bad backoff", input: "vault:\n  backoff: soon\n", wantErr: "backoff"},
		{name: "negative backoff", input: "vault:\n  backoff: -1s\n", wantErr: "positive"},
		{name: "bad level", input: "logging:\n  level: loud\n", wantErr: "log level"},
		{name: "empty page", input: "default_page: \"\"\n", wantErr: "default_page"},
		{name: "empty utility type", input: "utility_types: [Note, \"\"]\n", wantErr: "utility_types"},
		{name: "not yaml", input: "vault: [", wantErr: "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadFromYAML([]byte(tt.input))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultConfigYAMLRoundTrips(t *testing.T) {
	t.Parallel()

	data, err := DefaultConfigYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "default_page: Controls")

	cfg, err := LoadFromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
