package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkPresets(t *testing.T) {
	tests := []struct {
		name    string
		network string
		url     string
	}{
		{"regtest defaults", "regtest", "http://localhost:18332"},
		{"testnet defaults", "testnet", "http://localhost:18333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			preset, ok := NetworkPresets[tt.network]
			require.True(t, ok)
			assert.Equal(t, tt.url, preset.URL)
			assert.Equal(t, "gacha", preset.User)
		})
	}
	_, ok := NetworkPresets["mainnet"]
	assert.False(t, ok, "mainnet should not have a default preset")
}

func TestResolveConfigLayers(t *testing.T) {
	env := map[string]string{EnvRPCURL: "http://env-node:18332", EnvRPCUser: "envuser"}

	cfg, err := ResolveConfig(nil, env, "regtest")
	require.NoError(t, err)
	assert.Equal(t, "http://env-node:18332", cfg.URL)
	assert.Equal(t, "envuser", cfg.User)
	assert.Equal(t, "gacha", cfg.Password, "preset fills unset fields")
	assert.Equal(t, "regtest", cfg.Network)

	flags := &RPCConfig{URL: "http://flag:1", Password: "secret", Timeout: 5 * time.Second}
	cfg, err = ResolveConfig(flags, env, "regtest")
	require.NoError(t, err)
	assert.Equal(t, "http://flag:1", cfg.URL)
	assert.Equal(t, "envuser", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestResolveConfigMainnetRequiresURL(t *testing.T) {
	_, err := ResolveConfig(nil, nil, "mainnet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvRPCURL)

	cfg, err := ResolveConfig(nil, map[string]string{EnvRPCURL: "https://node.example"}, "mainnet")
	require.NoError(t, err)
	assert.Equal(t, "https://node.example", cfg.URL)
	assert.Empty(t, cfg.User)
}
