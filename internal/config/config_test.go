package config_test

import (
	"testing"

	"github.com/mna/ely/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 0, cfg.MaxSteps)
	require.Equal(t, 0, cfg.MaxCallStackDepth)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ELY_MAX_STEPS", "1000")
	t.Setenv("ELY_MAX_CALL_DEPTH", "64")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.MaxSteps)
	require.Equal(t, 64, cfg.MaxCallStackDepth)
}
