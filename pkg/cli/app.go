package cli

import (
	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/attestation"
	"github.com/speedrun-hq/speedrun-bridge/pkg/bridge"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-bridge/pkg/config"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// App holds the components the commands run against
type App struct {
	Resolver     *chains.Resolver
	Orchestrator *bridge.Orchestrator
	Breaker      *circuitbreaker.CircuitBreaker
	Logger       logger.Logger
	// Wallets is only called by commands that sign
	Wallets func() (wallet.Set, error)
}

// NewLogger builds the process logger from configuration
func NewLogger(cfg config.LoggerConfig) logger.Logger {
	var log logger.Logger = logger.NewStdLogger(cfg.Coloring, cfg.Level)
	if len(cfg.Suppress) > 0 {
		log = logger.NewFilteredLogger(log, cfg.Suppress)
	}
	return log
}

// NewApp wires the RPC backed components
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	resolver := chains.NewResolver(registry)

	var breaker *circuitbreaker.CircuitBreaker
	if cfg.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewCircuitBreaker(
			true,
			cfg.CircuitBreaker.Threshold,
			cfg.CircuitBreaker.WindowDuration,
			cfg.CircuitBreaker.ResetTimeout,
			log,
		)
	}

	attestations := attestation.NewClient(cfg.AttestationClientConfig(), breaker, log)
	factory := adapter.NewRPCFactory(cfg.AdapterOptions(), log)
	orchestrator := bridge.NewOrchestrator(resolver, factory, attestations, bridge.Config{
		BurnMaxAttempts: cfg.BurnMaxAttempts,
		DrainDelay:      cfg.DrainDelay,
	}, log)

	return &App{
		Resolver:     resolver,
		Orchestrator: orchestrator,
		Breaker:      breaker,
		Logger:       log,
		Wallets:      cfg.Wallets,
	}, nil
}
