package network

import (
	"fmt"
	"time"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string        `json:"url"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Network  string        `json:"network"`
	Timeout  time.Duration `json:"timeout"`
}

// Environment variables read by ResolveConfig.
const (
	EnvRPCURL  = "GACHA_RPC_URL"
	EnvRPCUser = "GACHA_RPC_USER"
	EnvRPCPass = "GACHA_RPC_PASS"
)

// NetworkPresets contains default RPC configurations for local nodes.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "gacha", Password: "gacha"},
	"testnet": {URL: "http://localhost:18333", User: "gacha", Password: "gacha"},
}

// ResolveConfig merges RPC configuration from, in decreasing priority,
// command-line flags, the GACHA_RPC_* environment variables and the network
// preset.
func ResolveConfig(flags *RPCConfig, env map[string]string, network string) (*RPCConfig, error) {
	result := RPCConfig{Network: network}

	if preset, ok := NetworkPresets[network]; ok {
		result = preset
		result.Network = network
	}

	if v := env[EnvRPCURL]; v != "" {
		result.URL = v
	}
	if v := env[EnvRPCUser]; v != "" {
		result.User = v
	}
	if v := env[EnvRPCPass]; v != "" {
		result.Password = v
	}

	if flags != nil {
		if flags.URL != "" {
			result.URL = flags.URL
		}
		if flags.User != "" {
			result.User = flags.User
		}
		if flags.Password != "" {
			result.Password = flags.Password
		}
		if flags.Timeout > 0 {
			result.Timeout = flags.Timeout
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("network: %s requires explicit RPC configuration (set --rpc-url or %s)", network, EnvRPCURL)
	}
	return &result, nil
}
