package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/bitfsorg/raffle-go/config"
	"github.com/bitfsorg/raffle-go/network"
)

const envPrefix = "RAFFLE"

// Setting keys. Each is read from RAFFLE_<KEY> and, when given, from the
// global flag of the same name.
const (
	keyDataDir   = "datadir"
	keyNetwork   = "network"
	keyListen    = "listen"
	keyLogLevel  = "loglevel"
	keyLogFile   = "logfile"
	keyEntryFee  = "entryfee"
	keyDecimals  = "decimals"
	keyAuthority = "authority"
	keyRPCURL    = "rpcurl"
	keyBeacon    = "beacon"
)

var stringKeys = []string{
	keyNetwork, keyListen, keyLogLevel, keyLogFile,
	keyEntryFee, keyAuthority, keyRPCURL, keyBeacon,
}

// newViper returns a viper instance reading RAFFLE_* variables. The RPC URL
// shares RAFFLE_RPC_URL with the network package.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	_ = v.BindEnv(keyRPCURL, network.EnvRPCURL)
	return v
}

// loadEnvFile loads KEY=value pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.WithField("path", path).Debug("raffled: loaded environment file")
	return nil
}

// bindFlags copies explicitly set global flags into v so they take
// precedence over the environment.
func bindFlags(c *cli.Context, v *viper.Viper) {
	for _, key := range append([]string{keyDataDir}, stringKeys...) {
		if c.IsSet(key) {
			v.Set(key, c.String(key))
		}
	}
	if c.IsSet(keyDecimals) {
		v.Set(keyDecimals, c.Int(keyDecimals))
	}
}

// resolveDataDir picks the data directory before the config file is read,
// since the file lives inside it.
func resolveDataDir(v *viper.Viper) string {
	if dir := v.GetString(keyDataDir); dir != "" {
		return dir
	}
	return config.DefaultDataDir()
}

// overlay applies every setting v holds on top of cfg.
func overlay(v *viper.Viper, cfg config.Config) config.Config {
	if v.IsSet(keyDataDir) {
		cfg.DataDir = v.GetString(keyDataDir)
	}
	fields := map[string]*string{
		keyNetwork:   &cfg.Network,
		keyListen:    &cfg.ListenAddr,
		keyLogLevel:  &cfg.LogLevel,
		keyLogFile:   &cfg.LogFile,
		keyEntryFee:  &cfg.EntryFee,
		keyAuthority: &cfg.Authority,
		keyRPCURL:    &cfg.RPCURL,
		keyBeacon:    &cfg.Beacon,
	}
	for key, field := range fields {
		if v.IsSet(key) {
			*field = v.GetString(key)
		}
	}
	if v.IsSet(keyDecimals) {
		cfg.Decimals = v.GetInt32(keyDecimals)
	}
	return cfg
}

// loadSettings layers, lowest first: defaults, the config file in the data
// directory, RAFFLE_* variables, and global flags.
func loadSettings(v *viper.Viper) (config.Config, error) {
	dataDir := resolveDataDir(v)
	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return cfg, err
	}
	cfg.DataDir = dataDir
	cfg = overlay(v, cfg)
	if err := config.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupLogging applies the configured level and destination. The returned
// closer releases the log file, if any.
func setupLogging(cfg config.Config) (io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidLogLevel, err)
	}
	log.SetLevel(level)

	if cfg.LogFile == "" {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return io.NopCloser(nil), nil
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(lj)
	log.SetFormatter(&log.JSONFormatter{})
	return lj, nil
}
