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

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staticpatcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Patch.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Patch.Timeout.Duration())
	assert.Empty(t, cfg.Patch.Rules)
	assert.Empty(t, cfg.Hierarchies.Locations)
	assert.Empty(t, cfg.Hierarchies.Statics)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.Endpoint)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
	assert.Equal(t, "staticpatcher", cfg.Telemetry.ServiceName)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.True(t, cfg.Telemetry.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.Metrics.ExportInterval)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Shutdown.Timeout)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Patch.Workers)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, `
records: ./dump/records.yaml
hierarchies:
  statics: ./statics.toml
logging:
  level: debug
  format: console
telemetry:
  enabled: true
  endpoint: 127.0.0.1:4318
  protocol: http/protobuf
  service_name: staticpatcher-test
patch:
  workers: 2
  timeout: 30s
  rules:
    - name: dungeon-dishware
      statics: [Dishware]
      locations: [Dungeons]
    - name: any-clutter
      statics: [Clutter]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./dump/records.yaml", cfg.Records)
	assert.Equal(t, "./statics.toml", cfg.Hierarchies.Statics)
	assert.Empty(t, cfg.Hierarchies.Locations)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)

	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "http/protobuf", cfg.Telemetry.Protocol)
	assert.Equal(t, "staticpatcher-test", cfg.Telemetry.ServiceName)
	// untouched nested defaults survive a partial section
	assert.True(t, cfg.Telemetry.Metrics.Enabled)

	assert.Equal(t, 2, cfg.Patch.Workers)
	assert.Equal(t, 30*time.Second, cfg.Patch.Timeout.Duration())
	require.Len(t, cfg.Patch.Rules, 2)
	assert.Equal(t, Rule{Name: "dungeon-dishware", Statics: []string{"Dishware"}, Locations: []string{"Dungeons"}}, cfg.Patch.Rules[0])
	assert.Equal(t, "any-clutter", cfg.Patch.Rules[1].Name)
	assert.Empty(t, cfg.Patch.Rules[1].Locations)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
patch:
  workers: 2
`)

	t.Setenv("STATICPATCHER_PATCH_WORKERS", "16")
	t.Setenv("STATICPATCHER_LOGGING_LEVEL", "warn")
	t.Setenv("STATICPATCHER_RECORDS", "/data/records.yaml")
	t.Setenv("STATICPATCHER_TELEMETRY_SERVICE_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Patch.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/data/records.yaml", cfg.Records)
	assert.Equal(t, "from-env", cfg.Telemetry.ServiceName)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "patch: [unterminated")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoad_FileTooLarge(t *testing.T) {
	path := writeConfig(t, "records: x\n# "+strings.Repeat("a", maxConfigFileSize))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoad_Directory(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
patch:
  workers: 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patch.workers must be >= 1")
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"STATICPATCHER_PATCH_WORKERS", "patch.workers"},
		{"STATICPATCHER_TELEMETRY_SERVICE_NAME", "telemetry.service_name"},
		{"STATICPATCHER_HIERARCHIES_LOCATIONS", "hierarchies.locations"},
		{"STATICPATCHER_RECORDS", "records"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}
