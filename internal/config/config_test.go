package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir 切到临时目录，避免读到仓库里的配置文件
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8082, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Redis.Addr())
	assert.Equal(t, "nimo-plm", cfg.JWT.Issuer)
	assert.Equal(t, "MFG-WO-.YYYY.-", cfg.Manufacturing.WorkOrderNamingSeries)
	assert.Equal(t, "Work In Progress", cfg.Manufacturing.DefaultWIPWarehouse)
	assert.Equal(t, "SAR", cfg.Manufacturing.Currency)
	assert.False(t, cfg.Manufacturing.AllowOverproduction)
	assert.Equal(t, 30*time.Second, cfg.Manufacturing.StatsCacheTTL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(`
server:
  port: 9000
database:
  driver: sqlite
  path: /tmp/mfg.db
redis:
  host: cache
manufacturing:
  overproduction_percentage: 10
  stats_cache_ttl: 1m
`), 0o644))
	chdir(t, dir)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("MFG_ALLOW_OVERPRODUCTION", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/mfg.db", cfg.Database.Path)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.True(t, cfg.Manufacturing.AllowOverproduction)
	assert.Equal(t, 10.0, cfg.Manufacturing.OverproductionPercentage)
	assert.Equal(t, time.Minute, cfg.Manufacturing.StatsCacheTTL)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "mfg", Password: "pw", DBName: "nimo", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=mfg password=pw dbname=nimo sslmode=disable", c.DSN())
}
