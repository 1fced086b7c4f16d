// Command raffled operates a fee-gated repeatable raffle stored in a local
// database, either one command at a time or as an HTTP daemon.
package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/raffle-go/config"
)

var version = "dev"

// Metadata keys set by the Before hook.
const (
	metaConfig = "config"
	metaLogs   = "logs"
)

var globalFlags = []cli.Flag{
	&cli.StringFlag{Name: "env-file", Usage: "load environment variables from `FILE`", Value: ".env"},
	&cli.StringFlag{Name: keyDataDir, Usage: "data directory (default ~/.raffle)"},
	&cli.StringFlag{Name: keyNetwork, Usage: "mainnet, testnet or regtest"},
	&cli.StringFlag{Name: keyListen, Usage: "HTTP listen address for serve"},
	&cli.StringFlag{Name: keyLogLevel, Usage: "debug, info, warn or error"},
	&cli.StringFlag{Name: keyLogFile, Usage: "write logs to a rotated `FILE`"},
	&cli.StringFlag{Name: keyEntryFee, Usage: "entry fee as a decimal coin amount"},
	&cli.IntFlag{Name: keyDecimals, Usage: "base units per coin, as a power of ten"},
	&cli.StringFlag{Name: keyAuthority, Usage: "address allowed to close and reopen rounds"},
	&cli.StringFlag{Name: keyRPCURL, Usage: "node JSON-RPC URL for block entropy"},
	&cli.StringFlag{Name: keyBeacon, Usage: "DNS name of the entropy beacon"},
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "raffled",
		Usage:   "Run a repeatable, fee-gated raffle with pull-based refunds",
		Version: version,
		Flags:   globalFlags,
		Before:  before,
		After:   after,
		Commands: []*cli.Command{
			initCmd,
			statusCmd,
			enterCmd,
			closeCmd,
			openCmd,
			withdrawCmd,
			resultCmd,
			refundCmd,
			participantsCmd,
			auditCmd,
			prizeCmd,
			serveCmd,
		},
	}
}

func before(c *cli.Context) error {
	if err := loadEnvFile(c.String("env-file")); err != nil {
		return err
	}
	v := newViper()
	bindFlags(c, v)
	cfg, err := loadSettings(v)
	if err != nil {
		return err
	}
	logs, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	c.App.Metadata = map[string]interface{}{metaConfig: cfg, metaLogs: logs}
	return nil
}

func after(c *cli.Context) error {
	if logs, ok := c.App.Metadata[metaLogs].(io.Closer); ok {
		log.SetOutput(os.Stderr)
		return logs.Close()
	}
	return nil
}

// settings returns the configuration resolved by the Before hook.
func settings(c *cli.Context) config.Config {
	cfg, _ := c.App.Metadata[metaConfig].(config.Config)
	return cfg
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
