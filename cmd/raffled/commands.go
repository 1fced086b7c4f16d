package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bitfsorg/raffle-go/api"
	"github.com/bitfsorg/raffle-go/config"
	"github.com/bitfsorg/raffle-go/metrics"
	"github.com/bitfsorg/raffle-go/raffle"
)

// flags
var (
	entropyFlag = &cli.StringFlag{
		Name:  "entropy",
		Usage: "winner entropy source: block, beacon or fixed:<n> (non-mainnet only)",
		Value: entropyBlock,
	}
	confirmationsFlag = &cli.Uint64Flag{
		Name:  "confirmations",
		Usage: "draw block entropy this many blocks below the tip",
		Value: 1,
	}
	rpcUserFlag = &cli.StringFlag{
		Name:  "rpc-user",
		Usage: "node JSON-RPC user",
	}
	rpcPassFlag = &cli.StringFlag{
		Name:  "rpc-pass",
		Usage: "node JSON-RPC password",
	}
	callerFlag = &cli.StringFlag{
		Name:  "as",
		Usage: "act as this address instead of the configured authority",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "amount paid, as a decimal coin amount (default: the entry fee)",
	}
	prizeURIFlag = &cli.StringFlag{
		Name:    "prize-uri",
		Usage:   "base URI for winner badge metadata",
		EnvVars: []string{"RAFFLE_PRIZE_URI"},
	}
	prizeSupplyFlag = &cli.Uint64Flag{
		Name:    "prize-supply",
		Usage:   "maximum number of winner badges (0 for unlimited)",
		EnvVars: []string{"RAFFLE_PRIZE_SUPPLY"},
	}
	forceFlag = &cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing configuration file",
	}
)

var drawFlags = []cli.Flag{entropyFlag, confirmationsFlag, rpcUserFlag, rpcPassFlag, callerFlag, prizeURIFlag, prizeSupplyFlag}

// commands
var (
	initCmd = &cli.Command{
		Name:   "init",
		Usage:  "Write the resolved settings to the data directory's config file",
		Flags:  []cli.Flag{forceFlag},
		Action: initAction,
	}
	statusCmd = &cli.Command{
		Name:   "status",
		Usage:  "Show the current round",
		Action: statusAction,
	}
	enterCmd = &cli.Command{
		Name:      "enter",
		Usage:     "Enter the current round",
		ArgsUsage: "<address>",
		Flags:     []cli.Flag{amountFlag},
		Action:    enterAction,
	}
	closeCmd = &cli.Command{
		Name:   "close",
		Usage:  "Close the current round and select a winner",
		Flags:  drawFlags,
		Action: closeAction,
	}
	openCmd = &cli.Command{
		Name:   "open",
		Usage:  "Open the next round",
		Flags:  []cli.Flag{callerFlag},
		Action: openAction,
	}
	withdrawCmd = &cli.Command{
		Name:      "withdraw",
		Usage:     "Pay out an address's refund balance",
		ArgsUsage: "<address>",
		Action:    withdrawAction,
	}
	resultCmd = &cli.Command{
		Name:      "result",
		Usage:     "Show a closed round",
		ArgsUsage: "[round|latest]",
		Action:    resultAction,
	}
	refundCmd = &cli.Command{
		Name:      "refund",
		Usage:     "Show an address's refund balance",
		ArgsUsage: "<address>",
		Action:    refundAction,
	}
	participantsCmd = &cli.Command{
		Name:   "participants",
		Usage:  "List the entries of the current or last closed round",
		Action: participantsAction,
	}
	auditCmd = &cli.Command{
		Name:   "audit",
		Usage:  "Check that every received unit is accounted for",
		Action: auditAction,
	}
	prizeCmd = &cli.Command{
		Name:  "prize",
		Usage: "Inspect winner badges",
		Subcommands: []*cli.Command{
			{
				Name:      "balance",
				Usage:     "Count the badges held by an address",
				ArgsUsage: "<address>",
				Action:    prizeBalanceAction,
			},
			{
				Name:      "token",
				Usage:     "Show the owner and URI of a badge",
				ArgsUsage: "<id>",
				Flags:     []cli.Flag{prizeURIFlag},
				Action:    prizeTokenAction,
			},
		},
	}
	serveCmd = &cli.Command{
		Name:   "serve",
		Usage:  "Serve the HTTP API and Prometheus metrics",
		Flags:  drawFlags,
		Action: serveAction,
	}
)

func nodeOpts(c *cli.Context) nodeOptions {
	return nodeOptions{
		Entropy:       c.String(entropyFlag.Name),
		Confirmations: c.Uint64(confirmationsFlag.Name),
		RPCUser:       c.String(rpcUserFlag.Name),
		RPCPass:       c.String(rpcPassFlag.Name),
		PrizeBaseURI:  c.String(prizeURIFlag.Name),
		PrizeSupply:   c.Uint64(prizeSupplyFlag.Name),
	}
}

// withNode opens the node for the duration of fn.
func withNode(c *cli.Context, fn func(n *node) error) error {
	n, err := openNode(settings(c), nodeOpts(c))
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			log.WithError(err).Warn("raffled: close database")
		}
	}()
	return fn(n)
}

func printJSON(c *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func addressArg(c *cli.Context) (raffle.Address, error) {
	if c.NArg() != 1 {
		return raffle.Address{}, fmt.Errorf("expected one address argument, got %d", c.NArg())
	}
	return raffle.ParseAddress(c.Args().First())
}

// caller returns the --as address, or the configured authority.
func caller(c *cli.Context) (raffle.Address, error) {
	s := c.String(callerFlag.Name)
	if s == "" {
		s = settings(c).Authority
	}
	if s == "" {
		return raffle.Address{}, config.ErrMissingAuthority
	}
	return raffle.ParseAddress(s)
}

func initAction(c *cli.Context) error {
	cfg := settings(c)
	if _, err := config.RaffleConfig(cfg); err != nil {
		return err
	}
	path := config.ConfigPath(cfg.DataDir)
	if _, err := os.Stat(path); err == nil && !c.Bool(forceFlag.Name) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	return printJSON(c, map[string]string{"config": path})
}

func statusAction(c *cli.Context) error {
	return withNode(c, func(n *node) error {
		r := n.raffle
		return printJSON(c, map[string]interface{}{
			"network":      n.cfg.Network,
			"open":         r.IsRoundOpen(),
			"round_id":     r.RoundID(),
			"rounds":       r.RoundCount(),
			"participants": len(r.Participants()),
			"entry_fee":    config.FormatAmount(r.EntryFee(), n.cfg.Decimals),
			"authority":    n.encode(r.Authority()),
		})
	})
}

func enterAction(c *cli.Context) error {
	sender, err := addressArg(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		paid := n.raffle.EntryFee()
		if s := c.String(amountFlag.Name); s != "" {
			if paid, err = config.ParseAmount(s, n.cfg.Decimals); err != nil {
				return err
			}
		}
		if err := n.raffle.Enter(c.Context, sender, paid); err != nil {
			return err
		}
		return printJSON(c, map[string]interface{}{
			"round_id":     n.raffle.RoundID(),
			"participants": len(n.raffle.Participants()),
		})
	})
}

func closeAction(c *cli.Context) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		res, err := n.raffle.CloseAndSelectWinner(c.Context, who)
		if err != nil {
			return err
		}
		return printJSON(c, api.FormatResult(res, n.cfg.Decimals, n.mainnet()))
	})
}

func openAction(c *cli.Context) error {
	who, err := caller(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		if err := n.raffle.StartNextRound(c.Context, who); err != nil {
			return err
		}
		return printJSON(c, map[string]string{"round_id": n.raffle.RoundID()})
	})
}

func withdrawAction(c *cli.Context) error {
	sender, err := addressArg(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		amount, err := n.raffle.WithdrawRefund(c.Context, sender)
		if err != nil {
			return err
		}
		return printJSON(c, map[string]string{
			"address": n.encode(sender),
			"amount":  config.FormatAmount(amount, n.cfg.Decimals),
		})
	})
}

func resultAction(c *cli.Context) error {
	arg := c.Args().First()
	return withNode(c, func(n *node) error {
		var (
			res *raffle.Result
			err error
		)
		if arg == "" || arg == "latest" {
			res, err = n.raffle.LatestResult()
		} else {
			round, perr := strconv.ParseUint(arg, 10, 64)
			if perr != nil {
				return fmt.Errorf("%w: %q", raffle.ErrInvalidRoundIndex, arg)
			}
			res, err = n.raffle.Result(round)
		}
		if err != nil {
			return err
		}
		return printJSON(c, api.FormatResult(res, n.cfg.Decimals, n.mainnet()))
	})
}

func refundAction(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		paid, err := n.payer.PaidTo(addr)
		if err != nil {
			return err
		}
		return printJSON(c, map[string]string{
			"address":   n.encode(addr),
			"available": config.FormatAmount(n.raffle.RefundBalance(addr), n.cfg.Decimals),
			"withdrawn": config.FormatAmount(paid, n.cfg.Decimals),
		})
	})
}

func participantsAction(c *cli.Context) error {
	return withNode(c, func(n *node) error {
		parts := n.raffle.Participants()
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = n.encode(p)
		}
		return printJSON(c, map[string]interface{}{
			"round_id":     n.raffle.RoundID(),
			"participants": out,
		})
	})
}

func auditAction(c *cli.Context) error {
	return withNode(c, func(n *node) error {
		a, auditErr := n.raffle.Audit()
		payouts, err := n.payer.ListPayouts()
		if err != nil {
			return err
		}
		var journaled uint64
		for _, p := range payouts {
			journaled += p.Amount
		}
		d := n.cfg.Decimals
		if err := printJSON(c, map[string]interface{}{
			"received":    config.FormatAmount(a.Received, d),
			"held":        config.FormatAmount(a.Held, d),
			"outstanding": config.FormatAmount(a.Outstanding, d),
			"paid":        config.FormatAmount(a.Paid, d),
			"retained":    config.FormatAmount(a.Retained, d),
			"payouts":     len(payouts),
			"journaled":   config.FormatAmount(journaled, d),
			"balanced":    auditErr == nil && journaled == a.Paid,
		}); err != nil {
			return err
		}
		if auditErr != nil {
			return auditErr
		}
		if journaled != a.Paid {
			return fmt.Errorf("%w: ledger paid %d, payout journal %d", raffle.ErrConservationViolated, a.Paid, journaled)
		}
		return nil
	})
}

func prizeBalanceAction(c *cli.Context) error {
	addr, err := addressArg(c)
	if err != nil {
		return err
	}
	return withNode(c, func(n *node) error {
		held, err := n.minter.BalanceOf(addr)
		if err != nil {
			return err
		}
		supply, err := n.minter.TotalSupply()
		if err != nil {
			return err
		}
		return printJSON(c, map[string]interface{}{
			"address":      n.encode(addr),
			"tokens":       held,
			"total_supply": supply,
		})
	})
}

func prizeTokenAction(c *cli.Context) error {
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token id %q", c.Args().First())
	}
	return withNode(c, func(n *node) error {
		owner, err := n.minter.OwnerOf(id)
		if err != nil {
			return err
		}
		uri, err := n.minter.TokenURI(id)
		if err != nil {
			return err
		}
		return printJSON(c, map[string]interface{}{
			"id":    id,
			"owner": n.encode(owner),
			"uri":   uri,
		})
	})
}

func serveAction(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withNode(c, func(n *node) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		n.raffle.Subscribe(metrics.New(reg, n.raffle).Observe)

		router := api.NewRouter(api.NewHandler(n.raffle, n.minter, n.cfg.Decimals, n.mainnet()), reg)
		if err := api.Serve(ctx, n.cfg.ListenAddr, router); err != nil {
			return err
		}
		log.Info("raffled: stopped")
		return nil
	})
}
