package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/bitfsorg/raffle-go/api"
	"github.com/bitfsorg/raffle-go/config"
	"github.com/bitfsorg/raffle-go/entropy"
	"github.com/bitfsorg/raffle-go/network"
	"github.com/bitfsorg/raffle-go/prize"
	"github.com/bitfsorg/raffle-go/raffle"
)

// Entropy source names accepted by --entropy.
const (
	entropyBlock  = "block"
	entropyBeacon = "beacon"
	entropyFixed  = "fixed:"
)

// node bundles the raffle and everything persisted next to it.
type node struct {
	cfg    config.Config
	store  *raffle.BoltStore
	payer  *raffle.BoltPayer
	minter *prize.Minter
	raffle *raffle.Raffle
}

// nodeOptions selects how the node draws winners and names its prizes.
type nodeOptions struct {
	Entropy       string
	Confirmations uint64
	RPCUser       string
	RPCPass       string
	PrizeBaseURI  string
	PrizeSupply   uint64
}

// openNode opens the database in cfg.DataDir and resumes the raffle stored
// there, creating it on first use.
func openNode(cfg config.Config, opts nodeOptions) (*node, error) {
	rcfg, err := config.RaffleConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := raffle.OpenBoltStore(config.DBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	tokens, err := prize.NewBoltTokenStore(store.DB())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	minter, err := prize.NewMinter(tokens, opts.PrizeBaseURI, prize.WithMaxSupply(opts.PrizeSupply))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	n := &node{cfg: cfg, store: store, payer: store.Payouts(), minter: minter}
	r, err := raffle.New(rcfg, n.lazyEntropy(opts), n.payer,
		raffle.WithStore(store),
		raffle.WithPrizeIssuer(minter),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	r.Subscribe(n.logEvent)
	n.raffle = r
	return n, nil
}

// Close releases the database.
func (n *node) Close() error {
	return n.store.Close()
}

// lazyEntropy defers building the entropy source until a round is closed, so
// commands that never draw do not need an RPC endpoint or beacon.
func (n *node) lazyEntropy(opts nodeOptions) raffle.EntropySource {
	return raffle.EntropyFunc(func(ctx context.Context) (*big.Int, error) {
		src, err := newEntropySource(n.cfg, opts)
		if err != nil {
			return nil, err
		}
		return src.Entropy(ctx)
	})
}

// newEntropySource builds the source named by opts.Entropy: "block",
// "beacon", or "fixed:<integer>" for reproducible draws on test networks.
func newEntropySource(cfg config.Config, opts nodeOptions) (raffle.EntropySource, error) {
	name := opts.Entropy
	if name == "" {
		name = entropyBlock
	}

	switch {
	case name == entropyBlock:
		rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
			URL:      cfg.RPCURL,
			User:     opts.RPCUser,
			Password: opts.RPCPass,
		}, rpcEnv(), cfg.Network)
		if err != nil {
			return nil, err
		}
		authority, err := raffle.ParseAddress(cfg.Authority)
		if err != nil {
			return nil, err
		}
		return entropy.NewBlock(network.NewRPCClient(*rpcCfg),
			entropy.WithDepth(opts.Confirmations),
			entropy.WithSalt(authority[:]),
		)

	case name == entropyBeacon:
		if cfg.Beacon == "" {
			return nil, fmt.Errorf("%w: no beacon name configured", entropy.ErrNilParam)
		}
		return entropy.NewBeacon(cfg.Beacon, ""), nil

	case strings.HasPrefix(name, entropyFixed):
		if cfg.Network == "mainnet" {
			return nil, fmt.Errorf("fixed entropy is not allowed on mainnet")
		}
		return entropy.ParseFixed(strings.TrimPrefix(name, entropyFixed))

	default:
		return nil, fmt.Errorf("unknown entropy source %q (want block, beacon or fixed:<n>)", name)
	}
}

func rpcEnv() map[string]string {
	return map[string]string{
		network.EnvRPCURL:  os.Getenv(network.EnvRPCURL),
		network.EnvRPCUser: os.Getenv(network.EnvRPCUser),
		network.EnvRPCPass: os.Getenv(network.EnvRPCPass),
	}
}

// encode renders addr for the configured network.
func (n *node) encode(addr raffle.Address) string {
	return api.EncodeAddress(addr, n.mainnet())
}

func (n *node) mainnet() bool { return n.cfg.Network == "mainnet" }

func (n *node) logEvent(ev raffle.Event) {
	switch e := ev.(type) {
	case raffle.RaffleEntered:
		log.WithFields(log.Fields{"participant": n.encode(e.Participant), "round_id": e.RoundID}).Info("raffle entered")
	case raffle.WinnerSelected:
		log.WithFields(log.Fields{"winner": n.encode(e.Winner), "round": e.Round, "entries": e.Entries}).Info("winner selected")
	case raffle.RoundOpened:
		log.WithFields(log.Fields{"round": e.Round, "round_id": e.RoundID}).Info("round opened")
	case raffle.RefundIssued:
		log.WithFields(log.Fields{
			"recipient": n.encode(e.Recipient),
			"amount":    config.FormatAmount(e.Amount, n.cfg.Decimals),
		}).Info("refund issued")
	case raffle.PrizeIssueFailed:
		log.WithFields(log.Fields{"winner": n.encode(e.Winner), "round": e.Round, "error": e.Err}).Warn("prize not issued")
	}
}
