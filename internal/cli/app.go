package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/bitfsorg/libgacha-go/audit"
	"github.com/bitfsorg/libgacha-go/config"
	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
	"github.com/bitfsorg/libgacha-go/logging"
	"github.com/bitfsorg/libgacha-go/metrics"
	"github.com/bitfsorg/libgacha-go/network"
	"github.com/bitfsorg/libgacha-go/payment"
	"github.com/bitfsorg/libgacha-go/randomness"
)

// EnvWIF supplies the caller key when --wif is not given.
const EnvWIF = "GACHA_WIF"

// app is the per-invocation wiring of config, storage, node and engine.
type app struct {
	opts     *RootOptions
	cfg      config.Config
	log      logr.Logger
	out      *OutputFormatter
	store    *gacha.BoltStore
	journal  *audit.Journal
	chain    network.BlockchainService
	source   *randomness.ChainSource
	engine   *gacha.Engine
	registry *prometheus.Registry
	closers  []func() error
}

// newApp opens everything a command needs. Callers must defer close.
func newApp(cmd *cobra.Command, opts *RootOptions) (_ *app, err error) {
	a := &app{
		opts: opts,
		out:  &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()

	if a.cfg, err = loadConfig(opts); err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0700); err != nil {
		return nil, WrapExitError(ExitCommandError, "create data directory", err)
	}

	log, sync, err := logging.New(logging.Options{Level: a.cfg.LogLevel, File: a.cfg.LogFile})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "init logging", err)
	}
	a.log = log
	a.closers = append(a.closers, func() error {
		// Syncing stderr fails on some platforms; only file output matters.
		if a.cfg.LogFile == "" {
			return nil
		}
		return sync()
	})

	if a.store, err = gacha.OpenBoltStore(a.cfg.DBPath()); err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	a.closers = append(a.closers, a.store.Close)

	if a.journal, err = audit.Open(a.cfg.AuditPath(), log); err != nil {
		return nil, WrapExitError(ExitCommandError, "open audit journal", err)
	}
	a.closers = append(a.closers, a.journal.Close)
	return a, nil
}

// connect resolves the node and builds the engine. Queries that only read
// the store skip it.
func (a *app) connect() error {
	rpcCfg, err := network.ResolveConfig(&network.RPCConfig{
		URL:      a.opts.RPCURL,
		User:     a.opts.RPCUser,
		Password: a.opts.RPCPass,
	}, rpcEnv(), a.cfg.Network)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolve node", err)
	}
	a.chain = network.NewRPCClient(*rpcCfg)

	observers := []gacha.Observer{logging.NewEventLogger(a.log), a.journal}
	if a.opts.MetricsTextfile != "" {
		a.registry = prometheus.NewRegistry()
		rec, err := metrics.NewRecorder(a.registry)
		if err != nil {
			return WrapExitError(ExitCommandError, "register metrics", err)
		}
		observers = append(observers, rec)
	}

	a.source, err = randomness.NewChainSource(a.chain, randomness.WithConfirmations(a.cfg.Confirmations))
	if err != nil {
		return WrapExitError(ExitCommandError, "create randomness source", err)
	}

	payments := payment.NewRouter(payment.NewNative(payment.WithBroadcaster(a.chain)))
	a.engine = gacha.New(a.store, randomness.NewChainClock(a.chain), payments,
		gacha.WithMaxSlotDifference(a.cfg.MaxSlotDifference),
		gacha.WithSources(a.source),
		gacha.WithLogger(a.log.WithName("engine")),
		gacha.WithObservers(observers...),
	)
	return nil
}

func (a *app) close() error {
	var err error
	if a.registry != nil {
		err = multierr.Append(err, prometheus.WriteToTextfile(a.opts.MetricsTextfile, a.registry))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

// caller returns the identity of the --wif key.
func (a *app) caller() (identity.ID, error) {
	wif := a.opts.WIF
	if wif == "" {
		wif = os.Getenv(EnvWIF)
	}
	if wif == "" {
		return identity.ID{}, WrapExitError(ExitCommandError, "caller key required", fmt.Errorf("set --wif or %s", EnvWIF))
	}
	priv, err := ec.PrivateKeyFromWif(wif)
	if err != nil {
		return identity.ID{}, WrapExitError(ExitCommandError, "parse --wif", err)
	}
	return identity.FromPublicKey(priv.PubKey())
}

// withApp runs fn with a connected app and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, connect bool, fn func(ctx context.Context, a *app) error) (err error) {
	a, err := newApp(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "close", cerr)
		}
	}()
	if connect {
		if err := a.connect(); err != nil {
			return err
		}
	}
	return fn(cmd.Context(), a)
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = os.Getenv("GACHA_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.ConfigPath(dataDir)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) || opts.ConfigPath != "" {
			return cfg, err
		}
		cfg = config.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		cfg.DataDir = dataDir
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, config.ValidateConfig(cfg)
}

func rpcEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{network.EnvRPCURL, network.EnvRPCUser, network.EnvRPCPass} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}

func parsePoolID(s string) (gacha.PoolID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid pool id %q", s), err)
	}
	return gacha.PoolID(n), nil
}

func parseNonce(s string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid nonce %q", s), err)
	}
	return n, nil
}
