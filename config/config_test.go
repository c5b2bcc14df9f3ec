package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYaml(t *testing.T) {
	path := writeFile(t, "cconv.yaml", `
log-level: 4
handle-varargs: true
extern-okay: [malloc, free, strlen]
allocators: [xmalloc]
output-format: json
disable-bounds-heuristics: [params]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.SourceFile())
	assert.True(t, cfg.Verbose())
	assert.True(t, cfg.HandleVarargs)
	assert.True(t, cfg.AllTypes, "defaults survive for unset fields")
	assert.True(t, cfg.IsExternOkay("strlen"))
	assert.True(t, cfg.IsAllocator("xmalloc"))
	assert.True(t, cfg.IsAllocator("calloc"))
	assert.Equal(t, FormatJSON, cfg.OutputFormat)
	assert.False(t, cfg.HeuristicEnabled("params"))
	assert.True(t, cfg.HeuristicEnabled("struct"))
}

func TestLoadToml(t *testing.T) {
	path := writeFile(t, "cconv.toml", `
log-level = 2
all-types = false
allocators = ["my_alloc"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int(WarnLevel), cfg.LogLevel)
	assert.False(t, cfg.AllTypes)
	assert.False(t, cfg.HeuristicEnabled("struct"))
	assert.True(t, cfg.IsAllocator("my_alloc"))
	assert.Equal(t, FormatText, cfg.OutputFormat)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "output-format: xml\n"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Load(writeFile(t, "bad.toml", "log-level = \n"))
	assert.Error(t, err)
}

func TestLogGroupLevels(t *testing.T) {
	cfg := NewDefault()
	cfg.LogLevel = int(WarnLevel)
	l := NewLogGroup(cfg)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)

	l.Debugf("hidden")
	l.Infof("hidden")
	l.Warnf("shown %d", 1)
	l.Errorf("shown %d", 2)
	assert.Equal(t, "[WARN] shown 1\n[ERROR] shown 2\n", buf.String())
}
