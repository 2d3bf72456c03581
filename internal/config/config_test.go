package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PROD")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "8008", cfg.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PROD")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
port: "9000"
upload_dir: /var/files
database:
  driver: postgres
  dsn: postgres://localhost/pm
jwt:
  secret: from-file
  ttl: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PUBLIC_BASE_URL", "https://pm.example.com/")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "/var/files", cfg.UploadDir)
	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "from-env", cfg.JWT.Secret)
	require.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	require.Equal(t, "https://pm.example.com", cfg.PublicBaseURL)
	// untouched defaults survive a partial file
	require.Equal(t, "project-management-api", cfg.JWT.Issuer)
}

func TestLoad_BadTTL(t *testing.T) {
	t.Setenv("ENVIRONMENT", "PROD")
	t.Setenv("JWT_TTL", "forever")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := Default()
	cfg.Database = DatabaseConfig{Driver: "postgres"}
	require.Error(t, cfg.Validate())
}
