package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-systemv1/internal/model"
	"quant-systemv1/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"QUANT_DB_DRIVER", "QUANT_DB_DSN", "REDIS_ADDR", "QUANT_WORKERS", "PANEL_CACHE_TTL", "LOG_LEVEL", "GATEWAY_ADDR"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "data/quant.db", cfg.DBDSN)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 24*time.Hour, cfg.PanelCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.GatewayAddr)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUANT_DB_DRIVER", "postgres")
	t.Setenv("QUANT_DB_DSN", "postgres://quant@localhost/quant?sslmode=disable")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("QUANT_WORKERS", "16")
	t.Setenv("PANEL_CACHE_TTL", "2h")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, 2*time.Hour, cfg.PanelCacheTTL)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("QUANT_WORKERS", "-3")
	t.Setenv("PANEL_CACHE_TTL", "soon")

	cfg := Load()
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 24*time.Hour, cfg.PanelCacheTTL)
}

func TestEmbeddedStrategies(t *testing.T) {
	s, err := LoadStrategies("")
	require.NoError(t, err)
	assert.Equal(t, []string{"breakout", "momentum", "multi_factor", "quality", "value"}, s.Names())

	value, err := s.Get("value")
	require.NoError(t, err)
	assert.Equal(t, 30, value.TopN)
	assert.True(t, value.Filter.RequireProfit)
	assert.Equal(t, 60, value.Filter.MinListedDays)
	assert.Equal(t, []scoring.FactorWeight{
		{Name: "PE", Weight: 0.5, Direction: model.Ascending},
		{Name: "PB", Weight: 0.5, Direction: model.Ascending},
	}, value.Factors)

	breakout, err := s.Get("breakout")
	require.NoError(t, err)
	require.Len(t, breakout.Thresholds, 2)
	assert.Equal(t, "VOL_RATIO", breakout.Thresholds[0].Factor)
	require.NotNil(t, breakout.Thresholds[0].Min)
	assert.Equal(t, 1.5, *breakout.Thresholds[0].Min)
	assert.Nil(t, breakout.Thresholds[0].Max)

	multi, err := s.Get("multi_factor")
	require.NoError(t, err)
	total := 0.0
	for _, f := range multi.Factors {
		total += f.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-12)
}

func TestGetUnknownStrategy(t *testing.T) {
	s, err := LoadStrategies("")
	require.NoError(t, err)
	_, err = s.Get("growth")
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestParseStrategiesOverrides(t *testing.T) {
	data := []byte(`
defaults:
  top_n: 10
strategies:
  small:
    top_n: 5
    filter:
      min_listed_days: 20
    factors:
      - {name: SIZE, weight: 1, direction: descending}
  plain:
    factors:
      - {name: MOM, weight: 1, direction: descending}
`)
	s, err := ParseStrategies(data)
	require.NoError(t, err)

	small, _ := s.Get("small")
	assert.Equal(t, 5, small.TopN)
	assert.Equal(t, 20, small.Filter.MinListedDays)
	assert.False(t, small.Filter.ExcludeSpecialTreatment)

	plain, _ := s.Get("plain")
	assert.Equal(t, 10, plain.TopN)
	assert.Equal(t, scoring.DefaultFilter(), plain.Filter)
}

func TestParseStrategiesRejects(t *testing.T) {
	cases := map[string]string{
		"empty":          `strategies: {}`,
		"unknown factor": "strategies:\n  x:\n    factors:\n      - {name: NOPE, weight: 1, direction: ascending}\n",
		"bad direction":  "strategies:\n  x:\n    factors:\n      - {name: PE, weight: 1, direction: up}\n",
		"no factors":     "strategies:\n  x:\n    top_n: 3\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStrategies([]byte(doc))
			assert.True(t, errors.Is(err, scoring.ErrInvalidConfig), "got %v", err)
		})
	}

	_, err := ParseStrategies([]byte("strategies: ["))
	assert.Error(t, err)
}

func TestLoadStrategiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategies:\n  v:\n    factors:\n      - {name: PB, weight: 1, direction: ascending}\n"), 0o644))

	s, err := LoadStrategies(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, s.Names())

	_, err = LoadStrategies(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFactorNames(t *testing.T) {
	s, err := LoadStrategies("")
	require.NoError(t, err)

	multi, _ := s.Get("multi_factor")
	assert.Equal(t, []string{"AMPLITUDE", "IMPLIED_ROE", "MIDCAP", "PB", "PCT_CHG", "PE", "SIZE"}, FactorNames(multi))

	momentum, _ := s.Get("momentum")
	assert.Equal(t, []string{"PCT_CHG", "PE", "TURNOVER"}, FactorNames(momentum))
}
