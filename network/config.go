package network

import (
	"fmt"
	"time"
)

// Environment variables consulted by ResolveConfig.
const (
	EnvRPCURL  = "RAFFLE_RPC_URL"
	EnvRPCUser = "RAFFLE_RPC_USER"
	EnvRPCPass = "RAFFLE_RPC_PASS"
)

// RPCConfig holds the connection parameters for a node's JSON-RPC interface.
type RPCConfig struct {
	URL      string        `json:"url"`
	User     string        `json:"user"`
	Password string        `json:"password"`
	Network  string        `json:"network"`
	Timeout  time.Duration `json:"timeout"`
}

// NetworkPresets contains default RPC configurations for local nodes.
// Mainnet has no preset and must be configured explicitly.
var NetworkPresets = map[string]RPCConfig{
	"regtest": {URL: "http://localhost:18332", User: "raffle", Password: "raffle"},
	"testnet": {URL: "http://localhost:18333", User: "raffle", Password: "raffle"},
}

// ResolveConfig merges RPC settings with decreasing priority:
//  1. CLI flags
//  2. Environment variables (RAFFLE_RPC_URL, RAFFLE_RPC_USER, RAFFLE_RPC_PASS)
//  3. Network presets (regtest/testnet only)
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
		return nil, fmt.Errorf("%w: %s requires an explicit RPC URL (--rpc-url, %s or config file)",
			ErrMissingConfig, network, EnvRPCURL)
	}
	return &result, nil
}
