package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/attestation"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// Config holds the configuration of the bridge client
type Config struct {
	Network          string
	RegistryFile     string
	Attestation      AttestationConfig
	Execution        ExecutionConfig
	BurnMaxAttempts  int
	DrainDelay       time.Duration
	MetricsPort      string
	MetricsAPIKey    string
	CircuitBreaker   CircuitBreakerConfig
	LoggerConfig     LoggerConfig
	EVMPrivateKey    string
	SolanaPrivateKey string
}

// AttestationConfig holds the attestation service settings
type AttestationConfig struct {
	APIURL       string
	PollInterval time.Duration
	MaxWait      time.Duration
	CacheTTL     time.Duration
}

// ExecutionConfig holds the transaction submission settings
type ExecutionConfig struct {
	ConfirmTimeout    time.Duration
	MintTimeoutEVM    time.Duration
	MintTimeoutSolana time.Duration
	GasMultiplier     float64
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
	Suppress []string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv reads the configuration from the current environment
func FromEnv() (*Config, error) {
	network, err := GetEnvNetwork()
	if err != nil {
		return nil, err
	}

	apiURL, err := GetEnvAttestationAPIURL(network)
	if err != nil {
		return nil, err
	}

	pollInterval, err := GetEnvAttestationPollInterval()
	if err != nil {
		return nil, err
	}

	maxWait, err := GetEnvAttestationMaxWait()
	if err != nil {
		return nil, err
	}

	cacheTTL, err := GetEnvAttestationCacheTTL()
	if err != nil {
		return nil, err
	}

	burnMaxAttempts, err := GetEnvBurnMaxAttempts()
	if err != nil {
		return nil, err
	}

	confirmTimeout, err := GetEnvConfirmTimeout()
	if err != nil {
		return nil, err
	}

	mintTimeoutEVM, err := GetEnvMintTimeoutEVM()
	if err != nil {
		return nil, err
	}

	mintTimeoutSolana, err := GetEnvMintTimeoutSolana()
	if err != nil {
		return nil, err
	}

	drainDelay, err := GetEnvDrainDelay()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Network:      network,
		RegistryFile: os.Getenv("CHAIN_REGISTRY_FILE"),
		Attestation: AttestationConfig{
			APIURL:       apiURL,
			PollInterval: pollInterval,
			MaxWait:      maxWait,
			CacheTTL:     cacheTTL,
		},
		Execution: ExecutionConfig{
			ConfirmTimeout:    confirmTimeout,
			MintTimeoutEVM:    mintTimeoutEVM,
			MintTimeoutSolana: mintTimeoutSolana,
			GasMultiplier:     gasMultiplier,
		},
		BurnMaxAttempts: burnMaxAttempts,
		DrainDelay:      drainDelay,
		MetricsPort:     metricsPort,
		MetricsAPIKey:   os.Getenv("METRICS_API_KEY"),
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
			Suppress: GetEnvLogSuppress(),
		},
		EVMPrivateKey:    os.Getenv("EVM_PRIVATE_KEY"),
		SolanaPrivateKey: os.Getenv("SOLANA_PRIVATE_KEY"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Attestation.MaxWait < cfg.Attestation.PollInterval {
		return fmt.Errorf("ATTESTATION_MAX_WAIT must be at least ATTESTATION_POLL_INTERVAL")
	}
	if cfg.Execution.MintTimeoutSolana < cfg.Execution.MintTimeoutEVM {
		return fmt.Errorf("MINT_TIMEOUT_SOLANA must be at least MINT_TIMEOUT_EVM")
	}
	if cfg.RegistryFile != "" {
		if _, err := os.Stat(cfg.RegistryFile); err != nil {
			return fmt.Errorf("CHAIN_REGISTRY_FILE %s: %v", cfg.RegistryFile, err)
		}
	}
	return nil
}

// Registry builds the chain registry: the registry file when configured, the built-in
// chains of the network otherwise, with <CHAIN>_RPC_URL overrides applied
func (c *Config) Registry() (*chains.Registry, error) {
	var (
		registry *chains.Registry
		err      error
	)
	if c.RegistryFile != "" {
		registry, err = chains.LoadRegistryFile(c.RegistryFile)
	} else {
		registry, err = chains.DefaultRegistry(c.Network)
	}
	if err != nil {
		return nil, err
	}

	for _, d := range registry.All() {
		rpcURL, err := GetEnvRPCURL(d.ID)
		if err != nil {
			return nil, err
		}
		registry = registry.WithRPCEndpoint(d.ID, rpcURL)
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Wallets builds the signers from the configured private keys. A missing key leaves the
// signer of that category unset.
func (c *Config) Wallets() (wallet.Set, error) {
	var set wallet.Set
	if c.EVMPrivateKey != "" {
		signer, err := wallet.NewKeyedEVMSigner(c.EVMPrivateKey)
		if err != nil {
			return wallet.Set{}, fmt.Errorf("invalid EVM_PRIVATE_KEY: %w", err)
		}
		set.EVM = signer
	}
	if c.SolanaPrivateKey != "" {
		signer, err := wallet.NewKeypairSolanaSigner(c.SolanaPrivateKey)
		if err != nil {
			return wallet.Set{}, fmt.Errorf("invalid SOLANA_PRIVATE_KEY: %w", err)
		}
		set.Solana = signer
	}
	if set.EVM == nil && set.Solana == nil {
		return wallet.Set{}, fmt.Errorf("EVM_PRIVATE_KEY or SOLANA_PRIVATE_KEY environment variable is required")
	}
	return set, nil
}

// AdapterOptions returns the execution adapter settings
func (c *Config) AdapterOptions() adapter.Options {
	opts := adapter.DefaultOptions()
	opts.ConfirmTimeout = c.Execution.ConfirmTimeout
	opts.MintTimeoutEVM = c.Execution.MintTimeoutEVM
	opts.MintTimeoutSolana = c.Execution.MintTimeoutSolana
	opts.GasMultiplier = c.Execution.GasMultiplier
	return opts
}

// AttestationClientConfig returns the attestation client settings
func (c *Config) AttestationClientConfig() attestation.Config {
	return attestation.Config{
		BaseURL:      c.Attestation.APIURL,
		PollInterval: c.Attestation.PollInterval,
		MaxWait:      c.Attestation.MaxWait,
		CacheTTL:     c.Attestation.CacheTTL,
	}
}
