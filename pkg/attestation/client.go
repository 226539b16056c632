// Package attestation polls the attestation service for the signed message of a burn.
package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/circuitbreaker"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/metrics"
)

const (
	MainnetURL = "https://iris-api.circle.com"
	SandboxURL = "https://iris-api-sandbox.circle.com"
)

// ErrAttestationUnavailable is returned when no complete attestation was obtained in time
var ErrAttestationUnavailable = errors.New("attestation unavailable")

// errNotReady marks responses that are worth polling again
var errNotReady = errors.New("attestation not ready")

// Fetcher fetches the attestation of a burn transaction
type Fetcher interface {
	Fetch(ctx context.Context, source chains.ChainDescriptor, burnTx string) (*Attestation, error)
}

// Config holds the attestation client settings
type Config struct {
	BaseURL        string
	PollInterval   time.Duration
	MaxWait        time.Duration
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Client polls the attestation service
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *ttlcache.Cache[string, *Attestation]
	breaker    *circuitbreaker.CircuitBreaker
	logger     logger.Logger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates an attestation client, breaker may be nil
func NewClient(cfg Config, breaker *circuitbreaker.CircuitBreaker, log logger.Logger) *Client {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		breaker: breaker,
		logger:  log,
	}
	if cfg.CacheTTL > 0 {
		c.cache = ttlcache.New(
			ttlcache.WithTTL[string, *Attestation](cfg.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, *Attestation](),
		)
	}
	return c
}

func cacheKey(domain uint32, burnTx string) string {
	return strconv.FormatUint(uint64(domain), 10) + ":" + burnTx
}

// Fetch polls until the attestation of burnTx is complete or MaxWait elapses
func (c *Client) Fetch(ctx context.Context, source chains.ChainDescriptor, burnTx string) (*Attestation, error) {
	key := cacheKey(source.Domain, burnTx)
	if c.cache != nil {
		if item := c.cache.Get(key); item != nil {
			metrics.AttestationCacheHits.Inc()
			c.logger.DebugWithChain(string(source.ID), "Attestation for %s served from cache", burnTx)
			return item.Value(), nil
		}
	}

	deadline := time.NewTimer(c.cfg.MaxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	domain := strconv.FormatUint(uint64(source.Domain), 10)
	var lastErr error

	for {
		if c.breaker != nil && c.breaker.IsOpen() {
			return nil, fmt.Errorf("%w: attestation service circuit open", ErrAttestationUnavailable)
		}

		att, err := c.fetchOnce(ctx, source.Domain, burnTx)
		switch {
		case err == nil:
			metrics.AttestationPolls.WithLabelValues(domain, "complete").Inc()
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			if c.cache != nil {
				c.cache.Set(key, att, ttlcache.DefaultTTL)
			}
			c.logger.InfoWithChain(string(source.ID), "Attestation complete for %s", burnTx)
			return att, nil
		case errors.Is(err, errNotReady):
			metrics.AttestationPolls.WithLabelValues(domain, "pending").Inc()
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			c.logger.DebugWithChain(string(source.ID), "Attestation for %s not ready: %v", burnTx, err)
		case errors.Is(err, ErrAttestationUnavailable):
			metrics.AttestationPolls.WithLabelValues(domain, "rejected").Inc()
			return nil, err
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %w", ErrAttestationUnavailable, ctx.Err())
		default:
			metrics.AttestationPolls.WithLabelValues(domain, "error").Inc()
			if c.breaker != nil {
				c.breaker.RecordFailure()
			}
			c.logger.ErrorWithChain(string(source.ID), "Attestation request for %s failed: %v", burnTx, err)
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrAttestationUnavailable, ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("%w: not complete after %s: %v", ErrAttestationUnavailable, c.cfg.MaxWait, lastErr)
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchOnce(ctx context.Context, domain uint32, burnTx string) (*Attestation, error) {
	endpoint := fmt.Sprintf("%s/v2/messages/%d?transactionHash=%s", c.cfg.BaseURL, domain, url.QueryEscape(burnTx))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: transaction not indexed yet", errNotReady)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrAttestationUnavailable, resp.StatusCode, string(body))
	}

	var messages MessagesResponse
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v, body: %s", err, string(body))
	}
	if len(messages.Messages) == 0 {
		return nil, fmt.Errorf("%w: no messages for transaction", errNotReady)
	}

	// one burn transaction carries one message
	msg := messages.Messages[0]
	if msg.Status != StatusComplete {
		return nil, fmt.Errorf("%w: status %s", errNotReady, msg.Status)
	}
	return msg.toAttestation()
}
