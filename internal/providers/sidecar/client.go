// Package sidecar talks to the HTTP API exposed by a running OpenCode
// process. The API is optional: every failure degrades silently.
package sidecar

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/opencode-tui/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/opencode-tui/internal/shared/apperr"
)

const (
	DefaultHealthAttempts = 10
	DefaultHealthInterval = 200 * time.Millisecond
	DefaultTimeout        = 5 * time.Second

	healthPath = "/app"
	promptPath = "/tui/append-prompt"
)

// ErrUnavailable is returned when the sidecar answers with a failure
var ErrUnavailable = apperr.Sentinel(apperr.KindTransient, "sidecar unavailable")

// Config configures a sidecar client
type Config struct {
	Host           string
	Port           int
	Timeout        time.Duration
	HealthAttempts int
	HealthInterval time.Duration
	RetryMax       int
	RatePerSecond  float64
	Logger         *zap.Logger
	// OnHealth observes each health check outcome
	OnHealth func(healthy bool)
}

// Client is a sidecar API client
type Client struct {
	api      *resty.Client
	health   *resty.Client
	breaker  *resilience.Breaker
	limiter  *rate.Limiter
	baseURL  string
	attempts int
	interval time.Duration
	logger   *zap.Logger
	onHealth func(bool)
}

type appendPromptRequest struct {
	Text string `json:"text"`
}

// New creates a client for the sidecar listening on cfg.Port
func New(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HealthAttempts <= 0 {
		cfg.HealthAttempts = DefaultHealthAttempts
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = DefaultHealthInterval
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.Named("sidecar")

	baseURL := "http://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 500 * time.Millisecond
	retryClient.Logger = nil

	api := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "opencode-tui/1.0")

	health := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout)

	breaker := resilience.New("sidecar", resilience.Settings{
		FailureThreshold: 3,
		OpenTimeout:      10 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Debug("Breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1)
	}

	return &Client{
		api:      api,
		health:   health,
		breaker:  breaker,
		limiter:  limiter,
		baseURL:  baseURL,
		attempts: cfg.HealthAttempts,
		interval: cfg.HealthInterval,
		logger:   logger,
		onHealth: cfg.OnHealth,
	}
}

// BaseURL returns the sidecar root URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping performs a single health check
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.health.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return apperr.New(apperr.KindTransient, fmt.Errorf("health check: %w", err))
	}
	if resp.IsError() {
		return fmt.Errorf("health check returned %d: %w", resp.StatusCode(), ErrUnavailable)
	}
	return nil
}

// WaitHealthy polls the health endpoint until it answers or the attempts
// run out. It never returns an error; false means fall back.
func (c *Client) WaitHealthy(ctx context.Context) bool {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.Ping(ctx)
		if err == nil {
			c.breaker.Reset()
			c.observe(true)
			return true
		}
		c.logger.Debug("Sidecar not ready",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			c.observe(false)
			return false
		case <-time.After(c.interval):
		}
	}
	c.observe(false)
	return false
}

func (c *Client) observe(healthy bool) {
	if c.onHealth != nil {
		c.onHealth(healthy)
	}
}

// AppendPrompt appends text to the TUI prompt
func (c *Client) AppendPrompt(ctx context.Context, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return c.breaker.Do(func() error {
		resp, err := c.api.R().
			SetContext(ctx).
			SetBody(appendPromptRequest{Text: text}).
			Post(promptPath)
		if err != nil {
			return apperr.New(apperr.KindTransient, fmt.Errorf("append prompt: %w", err))
		}
		if resp.IsError() {
			return fmt.Errorf("append prompt returned %d: %w", resp.StatusCode(), ErrUnavailable)
		}
		return nil
	})
}

// BreakerState exposes the breaker state for diagnostics
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
