package config

import (
	"testing"

	"github.com/hupe1980/lakescan"
	"github.com/hupe1980/lakescan/registry"
	"github.com/hupe1980/lakescan/scan"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, cfg *Config, stores scan.Stores, reg registry.Registry) *lakescan.Engine {
	t.Helper()
	eng, err := lakescan.New(stores, reg, cfg.EngineOptions()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}
