package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoutesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"routes"})

	require.NoError(t, cmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Contains(t, lines, "POST /api/login")
	require.Contains(t, lines, "GET /api/ws")
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PROD")
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	dsn := filepath.Join(dir, "test.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: error\ndatabase:\n  driver: sqlite\n  dsn: "+dsn+"\n"), 0o600))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"migrate", "--config", cfgPath})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "migrations applied")
	_, err := os.Stat(dsn)
	require.NoError(t, err)
}

func TestUnknownConfigFile(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, cmd.Execute())
}
