package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/speedrun-hq/speedrun-bridge/pkg/attestation"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
)

const (
	// DefaultNetwork is the default set of chains to bridge between
	DefaultNetwork = chains.Mainnet

	// DefaultAttestationPollInterval defines how often the attestation service is polled
	DefaultAttestationPollInterval = 5 * time.Second

	// DefaultAttestationMaxWait defines how long a burn is polled before giving up
	DefaultAttestationMaxWait = 20 * time.Minute

	// DefaultAttestationCacheTTL defines how long completed attestations are kept in memory
	DefaultAttestationCacheTTL = 30 * time.Minute

	// DefaultBurnMaxAttempts defines the burn submission budget for expired signatures
	DefaultBurnMaxAttempts = 3

	// DefaultConfirmTimeout defines the wait for approve and burn confirmations
	DefaultConfirmTimeout = 2 * time.Minute

	// DefaultMintTimeoutEVM defines the wait for mint confirmations on EVM chains
	DefaultMintTimeoutEVM = 60 * time.Second

	// DefaultMintTimeoutSolana defines the wait for mint confirmations on Solana
	DefaultMintTimeoutSolana = 90 * time.Second

	// DefaultDrainDelay defines the pause before a transfer call returns
	DefaultDrainDelay = 500 * time.Millisecond

	// DefaultGasMultiplier is applied to the suggested EVM gas price
	DefaultGasMultiplier = 1.1

	// DefaultCircuitBreakerEnabled defines whether the attestation circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 60 * time.Second

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 30 * time.Second
)

// GetEnvNetwork returns the configured network from environment variables or defaults to mainnet
func GetEnvNetwork() (string, error) {
	network := os.Getenv("NETWORK")
	if network == "" {
		network = DefaultNetwork
	}

	if network != chains.Mainnet && network != chains.Testnet {
		return "", fmt.Errorf("invalid NETWORK value: %s, must be 'mainnet' or 'testnet'", network)
	}

	return network, nil
}

// GetEnvAttestationAPIURL returns the attestation service URL, defaulting per network
func GetEnvAttestationAPIURL(network string) (string, error) {
	apiURL := os.Getenv("ATTESTATION_API_URL")
	if apiURL == "" {
		if network == chains.Testnet {
			return attestation.SandboxURL, nil
		}
		return attestation.MainnetURL, nil
	}

	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return "", fmt.Errorf("invalid ATTESTATION_API_URL value: %s, must be a valid URL", apiURL)
	}
	return strings.TrimSuffix(apiURL, "/"), nil
}

// GetEnvAttestationPollInterval returns the attestation polling interval
func GetEnvAttestationPollInterval() (time.Duration, error) {
	return getEnvPositiveDuration("ATTESTATION_POLL_INTERVAL", DefaultAttestationPollInterval)
}

// GetEnvAttestationMaxWait returns how long a burn is polled for
func GetEnvAttestationMaxWait() (time.Duration, error) {
	return getEnvPositiveDuration("ATTESTATION_MAX_WAIT", DefaultAttestationMaxWait)
}

// GetEnvAttestationCacheTTL returns the attestation cache TTL, 0 disables the cache
func GetEnvAttestationCacheTTL() (time.Duration, error) {
	ttl := os.Getenv("ATTESTATION_CACHE_TTL")
	if ttl == "" {
		return DefaultAttestationCacheTTL, nil
	}

	parsed, err := time.ParseDuration(ttl)
	if err != nil {
		return 0, fmt.Errorf("invalid ATTESTATION_CACHE_TTL value: %s, must be a valid duration string", ttl)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("ATTESTATION_CACHE_TTL must be greater than or equal to 0")
	}
	return parsed, nil
}

// GetEnvBurnMaxAttempts returns the burn submission budget
func GetEnvBurnMaxAttempts() (int, error) {
	attempts := os.Getenv("BURN_MAX_ATTEMPTS")
	if attempts == "" {
		return DefaultBurnMaxAttempts, nil
	}

	count, err := strconv.Atoi(attempts)
	if err != nil {
		return 0, fmt.Errorf("invalid BURN_MAX_ATTEMPTS value: %s, must be an integer", attempts)
	}
	if count <= 0 {
		return 0, fmt.Errorf("BURN_MAX_ATTEMPTS must be greater than 0")
	}
	return count, nil
}

// GetEnvConfirmTimeout returns the approve and burn confirmation timeout
func GetEnvConfirmTimeout() (time.Duration, error) {
	return getEnvPositiveDuration("CONFIRM_TIMEOUT", DefaultConfirmTimeout)
}

// GetEnvMintTimeoutEVM returns the EVM mint confirmation timeout
func GetEnvMintTimeoutEVM() (time.Duration, error) {
	return getEnvPositiveDuration("MINT_TIMEOUT_EVM", DefaultMintTimeoutEVM)
}

// GetEnvMintTimeoutSolana returns the Solana mint confirmation timeout
func GetEnvMintTimeoutSolana() (time.Duration, error) {
	return getEnvPositiveDuration("MINT_TIMEOUT_SOLANA", DefaultMintTimeoutSolana)
}

// GetEnvDrainDelay returns the pause observed before a transfer call returns
func GetEnvDrainDelay() (time.Duration, error) {
	delay := os.Getenv("DRAIN_DELAY")
	if delay == "" {
		return DefaultDrainDelay, nil
	}

	parsed, err := time.ParseDuration(delay)
	if err != nil {
		return 0, fmt.Errorf("invalid DRAIN_DELAY value: %s, must be a valid duration string", delay)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("DRAIN_DELAY must be greater than or equal to 0")
	}
	return parsed, nil
}

// GetEnvGasMultiplier returns the multiplier applied to suggested EVM gas prices
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	value, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a number", multiplier)
	}
	if value < 1 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be greater than or equal to 1")
	}
	return value, nil
}

// GetEnvMetricsPort returns the metrics server port, empty when the server is disabled
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return "", nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	enabled := os.Getenv("CIRCUIT_BREAKER_ENABLED")
	if enabled == "" {
		return DefaultCircuitBreakerEnabled, nil
	}

	if enabled == "true" {
		return true, nil
	} else if enabled == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid CIRCUIT_BREAKER_ENABLED value: %s, must be 'true' or 'false'", enabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	return getEnvPositiveDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	return getEnvPositiveDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset)
}

// GetEnvLogLevel returns the log level, defaulting to info
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return logger.InfoLevel, nil
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of debug, info, notice, error", level)
	}
	return parsed, nil
}

// GetEnvLogColoring returns whether log lines are colored per chain
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}

	if coloring == "true" {
		return true, nil
	} else if coloring == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be 'true' or 'false'", coloring)
}

// GetEnvLogSuppress returns the comma separated substrings of log messages to drop
func GetEnvLogSuppress() []string {
	suppress := os.Getenv("LOG_SUPPRESS")
	if suppress == "" {
		return nil
	}
	return strings.Split(suppress, ",")
}

// GetEnvRPCURL returns the RPC endpoint override of a chain, e.g. BASE_SEPOLIA_RPC_URL
func GetEnvRPCURL(id chains.ChainID) (string, error) {
	name := id.EnvPrefix() + "_RPC_URL"
	rpcURL := os.Getenv(name)
	if rpcURL == "" {
		return "", nil
	}

	if _, err := url.ParseRequestURI(rpcURL); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", name, rpcURL)
	}
	return rpcURL, nil
}

func getEnvPositiveDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}
