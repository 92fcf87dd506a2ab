package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "session", []string{"session"}, false},
		{"two segments", "session.budget", []string{"session", "budget"}, false},
		{"three segments", "gateway.rateLimit.maxRequests", []string{"gateway", "rateLimit", "maxRequests"}, false},
		{"empty", "", nil, true},
		{"empty segment", "session..budget", nil, true},
		{"leading dot", ".session", nil, true},
		{"trailing dot", "session.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueAtPath(t *testing.T) {
	root := map[string]any{
		"session": map[string]any{
			"budget": 3,
			"store":  "redis",
		},
		"simple": "value",
	}

	val, ok := GetValueAtPath(root, []string{"session", "budget"})
	assert.True(t, ok)
	assert.Equal(t, 3, val)

	_, ok = GetValueAtPath(root, []string{"simple", "sub"})
	assert.False(t, ok)

	SetValueAtPath(root, []string{"tools", "fareUrl"}, "http://fare")
	val, ok = GetValueAtPath(root, []string{"tools", "fareUrl"})
	assert.True(t, ok)
	assert.Equal(t, "http://fare", val)

	SetValueAtPath(root, []string{"simple", "sub"}, 1)
	val, _ = GetValueAtPath(root, []string{"simple", "sub"})
	assert.Equal(t, 1, val)

	assert.True(t, UnsetValueAtPath(root, []string{"session", "budget"}))
	assert.False(t, UnsetValueAtPath(root, []string{"session", "budget"}))
	val, ok = GetValueAtPath(root, []string{"session", "store"})
	assert.True(t, ok)
	assert.Equal(t, "redis", val)
	assert.False(t, UnsetValueAtPath(root, []string{"a", "b"}))
}

func TestResolvePathsDefaultHome(t *testing.T) {
	t.Setenv("MRBOOKY_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".mrbooky")
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "data", "mrbooky.db"), paths.Database)
}

func TestResolvePathsCustomHome(t *testing.T) {
	t.Setenv("MRBOOKY_HOME", "/tmp/mrbooky-test")

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mrbooky-test/logs", paths.Logs)
	assert.Equal(t, "/tmp/mrbooky-test/data", paths.Data)

	assert.Equal(t, "/tmp/mrbooky-test/data/mrbooky.db", paths.DatabasePath(SessionConfig{}))
	assert.Equal(t, "/srv/bot.db", paths.DatabasePath(SessionConfig{DBPath: "/srv/bot.db"}))
}

func TestEnsureDirs(t *testing.T) {
	tmp := t.TempDir()
	paths := Paths{Base: tmp, Data: filepath.Join(tmp, "data"), Logs: filepath.Join(tmp, "logs")}

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())
	for _, dir := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
