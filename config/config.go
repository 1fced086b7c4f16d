// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the raffle daemon's key=value
// configuration file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ConfigFileName is the name of the configuration file inside the data directory.
	ConfigFileName = "config"

	// DBFileName is the name of the raffle database inside the data directory.
	DBFileName = "raffle.db"
)

// Config holds the daemon settings.
type Config struct {
	DataDir    string // Data directory (database, config, logs)
	Network    string // mainnet, testnet or regtest
	ListenAddr string // HTTP API and metrics listen address
	LogLevel   string // debug, info, warn or error
	LogFile    string // Optional log file; empty logs to stderr

	EntryFee  string // Decimal coin amount per entry, e.g. "0.001"
	Decimals  int32  // Base units per coin, as a power of ten
	Authority string // Base58 address allowed to close and reopen rounds

	RPCURL string // Node JSON-RPC endpoint for block entropy
	Beacon string // DNS name of the entropy beacon TXT record
}

// DefaultDataDir returns ~/.raffle, or .raffle in the working directory when
// the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".raffle"
	}
	return filepath.Join(home, ".raffle")
}

// DefaultConfig returns the configuration used for keys absent from the file.
func DefaultConfig() Config {
	return Config{
		DataDir:    DefaultDataDir(),
		Network:    "mainnet",
		ListenAddr: ":8080",
		LogLevel:   "info",
		EntryFee:   "0.001",
		Decimals:   8,
	}
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, ConfigFileName)
}

// DBPath returns the raffle database path inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFileName)
}

// LoadConfig reads a key=value file over DefaultConfig. Blank lines and
// lines starting with '#' are skipped; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, err := parseKeyValue(line)
		if err != nil {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits on the first '='.
func parseKeyValue(line string) (string, string, error) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", ErrInvalidConfigLine
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", ErrInvalidConfigLine
	}
	return key, strings.TrimSpace(value), nil
}

func (c *Config) set(key, value string) error {
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "listen":
		c.ListenAddr = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "entryfee":
		c.EntryFee = value
	case "decimals":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("decimals: %w", err)
		}
		c.Decimals = int32(n)
	case "authority":
		c.Authority = value
	case "rpcurl":
		c.RPCURL = value
	case "beacon":
		c.Beacon = value
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Raffle Configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "listen = %s\n", cfg.ListenAddr)
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	b.WriteString("\n# Raffle parameters. Changing them after the first round is rejected.\n")
	fmt.Fprintf(&b, "entryfee = %s\n", cfg.EntryFee)
	fmt.Fprintf(&b, "decimals = %d\n", cfg.Decimals)
	fmt.Fprintf(&b, "authority = %s\n", cfg.Authority)
	b.WriteString("\n# Entropy sources\n")
	fmt.Fprintf(&b, "rpcurl = %s\n", cfg.RPCURL)
	fmt.Fprintf(&b, "beacon = %s\n", cfg.Beacon)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
