package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/production-engine/config"
	"github.com/warp/production-engine/production"
)

// chdir moves into an empty directory so no stray .env or prodsim.yaml is
// picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 2, cfg.Runner.Workers)

	s := cfg.Settings()
	d := production.DefaultSettings()
	assert.Equal(t, d.WorkingHoursPerDay, s.WorkingHoursPerDay)
	assert.Equal(t, d.MaxHours, s.MaxHours)
	assert.True(t, s.PrepayPercent.Equal(d.PrepayPercent))
}

func TestLoad_FileThenEnv(t *testing.T) {
	// GIVEN: a YAML file and an environment override
	// WHEN: configuration is loaded
	// THEN: the environment wins over the file, the file over defaults

	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
database:
  driver: postgres
  dsn: postgres://localhost/prodsim
simulation:
  working_hours_per_day: 6
  prepay_percent: 40
`), 0o600))
	t.Setenv("PRODSIM_HTTP_ADDR", ":9100")
	t.Setenv("PRODSIM_RUNNER_WORKERS", "5")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.HTTP.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Runner.Workers)

	s := cfg.Settings()
	assert.Equal(t, 6, s.WorkingHoursPerDay)
	assert.True(t, s.PrepayPercent.Equal(decimal.NewFromInt(40)))
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PRODSIM_LOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("PRODSIM_LOG_LEVEL") })

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	chdir(t)
	t.Setenv("PRODSIM_DATABASE_DRIVER", "mysql")

	_, err := config.Load("")
	assert.Error(t, err)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, lc := range []config.LogConfig{
		{Level: "debug", Format: "json"},
		{Level: "warn", Format: "console"},
		{},
	} {
		logger, err := config.NewLogger(lc)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	_, err := config.NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	dir := chdir(t)
	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
