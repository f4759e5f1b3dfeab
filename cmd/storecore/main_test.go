package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	walPath := filepath.Join(dir, "bench.wal")
	body := fmt.Sprintf(`
[buffer_pool]
max_pages = 16

[lock]
timeout_ms = 200
poll_interval_ms = 5

[wal]
path = %q
buffer_size = 4096
compress_images = true

[storage]
data_dir = %q

[logging]
level = "error"
format = "console"
`, walPath, filepath.Join(dir, "data"))

	path := filepath.Join(dir, "storecore.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path, walPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), stderr.String())
	return stdout.String()
}

func TestConfigPrint(t *testing.T) {
	cfgPath, walPath := writeConfig(t)

	out := run(t, "config", "print", "--config", cfgPath)
	assert.Contains(t, out, "max_pages = 16")
	assert.Contains(t, out, walPath)
}

func TestBenchThenDump(t *testing.T) {
	cfgPath, walPath := writeConfig(t)

	out := run(t, "bench", "--config", cfgPath, "--workers", "2", "--txns", "8", "--records", "3")
	assert.Contains(t, out, "storecore bench")
	assert.Contains(t, out, "Committed")

	dump := run(t, "wal", "dump", "--config", cfgPath, "--path", walPath, "--stats")
	assert.Contains(t, dump, "BEGIN")
	assert.Contains(t, dump, "UPDATE")
	assert.Contains(t, dump, "COMMIT")
}

func TestBenchRejectsBadFlags(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(&stdout, &stderr)
	cmd.SetArgs([]string{"bench", "--config", cfgPath, "--workers", "0"})
	assert.Error(t, cmd.Execute())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "1.50s", formatDuration(1500_000_000))
	assert.Equal(t, "2.00ms", formatDuration(2_000_000))
	assert.Equal(t, "999ns", formatDuration(999))
}
