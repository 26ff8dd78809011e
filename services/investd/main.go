package investd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"stakebank/config"
	"stakebank/core"
	"stakebank/core/events"
	"stakebank/native/staking"
	"stakebank/observability"
	"stakebank/observability/logging"
	"stakebank/observability/metrics"
	telemetry "stakebank/observability/otel"
	"stakebank/services/investd/journal"
	"stakebank/services/investd/server"
	"stakebank/storage"
)

const serviceName = "investd"

// Main initialises and runs the contract daemon.
func Main(args []string) error {
	flags := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	cfgPath := flags.StringP("config", "c", "investd.toml", "path to investd configuration")
	envFile := flags.String("env-file", ".env", "optional dotenv file with INVESTD_* overrides")
	genesisPath := flags.String("genesis", "", "genesis file, overrides the configured one")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *genesisPath != "" {
		cfg.GenesisFile = *genesisPath
	}

	logger, closeLog, err := logging.Configure(logging.Options{
		Service:    serviceName,
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Version:     core.ContractVersion,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer db.Close()

	host, err := core.NewHost(db, core.HostConfig{
		Label: cfg.ContractLabel,
		Staking: staking.Params{
			BondDenom:     cfg.Staking.BondDenom,
			UnbondingTime: cfg.Staking.UnbondingSeconds,
		},
	})
	if err != nil {
		return fmt.Errorf("init host: %w", err)
	}
	host.SetLogger(logger.With("component", "host"))
	host.SetMetrics(metrics.Invest())
	host.SetPauses(cfg.Pauses.ModulePauses())

	emitters := events.Fanout{observability.Events()}
	var eventJournal *journal.Journal
	if cfg.Journal.Driver != "" {
		gdb, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
		if err != nil {
			return err
		}
		eventJournal, err = journal.New(gdb)
		if err != nil {
			return err
		}
		eventJournal.SetLogger(logger.With("component", "journal"))
		emitters = append(emitters, eventJournal)
	}
	host.SetEmitter(emitters)

	if cfg.GenesisFile != "" {
		genesis, err := config.LoadGenesis(cfg.GenesisFile)
		if err != nil {
			return fmt.Errorf("load genesis: %w", err)
		}
		if err := genesis.Apply(host); err != nil {
			return err
		}
	}

	last, _, err := host.LastBlock()
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()
	srv := server.New(server.Config{
		Host:    host,
		Blocks:  server.NewBlockClock(clock, last),
		Journal: eventJournal,
		Logger:  logger.With("component", "server"),
		Metrics: observability.ModuleMetrics(),
		RateLimit: server.RateLimit{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
		Gatherer: prometheus.DefaultGatherer,
		Clock:    clock,
		ChainAPI: cfg.EnableChainAPI,
	})
	if cfg.EnableChainAPI {
		logger.Warn("settlement chain endpoints enabled")
	}

	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		logger.Info("investd listening",
			slog.String("address", cfg.ListenAddress),
			slog.String("contract", cfg.ContractLabel))
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_ = httpServer.Close()
			return err
		}
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Run is Main with the process arguments.
func Run() error {
	return Main(os.Args[1:])
}
