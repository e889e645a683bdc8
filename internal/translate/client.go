package translate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	provider "github.com/tobfel/glossia/pkg/provider/translate"
)

const (
	defaultRequestTimeout = 6 * time.Second
	defaultRetries        = 2
	defaultRetryBackoff   = 750 * time.Millisecond
	defaultMinLength      = 3
)

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the fixed delay between retries.
func WithBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithMinLength sets the minimum rune count below which texts are returned
// untranslated.
func WithMinLength(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.minLength = n
		}
	}
}

// Client wraps a translation provider with bounded execution: a hard
// per-attempt timeout, a small fixed retry count with fixed backoff, and a
// minimum-length gate so interjections are not sent over the network at all.
type Client struct {
	provider  provider.Provider
	log       *slog.Logger
	timeout   time.Duration
	retries   int
	backoff   time.Duration
	minLength int
}

// NewClient creates a Client around p.
func NewClient(p provider.Provider, log *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		provider:  p,
		log:       log,
		timeout:   defaultRequestTimeout,
		retries:   defaultRetries,
		backoff:   defaultRetryBackoff,
		minLength: defaultMinLength,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ProviderName returns the underlying provider's name.
func (c *Client) ProviderName() string {
	return c.provider.Name()
}

// Translate translates text from source to target. Texts shorter than the
// minimum length are returned unchanged without a network call. Each attempt
// runs under the configured timeout; on error the call is retried up to the
// configured count with a fixed backoff, then the last error is returned.
func (c *Client) Translate(ctx context.Context, source, target, text string) (string, error) {
	if utf8.RuneCountInString(text) < c.minLength {
		return text, nil
	}

	req := provider.Request{Text: text, SourceLang: source, TargetLang: target}
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying translation",
				"provider", c.provider.Name(), "attempt", attempt, "error", lastErr)
			if err := sleepCtx(ctx, c.backoff); err != nil {
				return "", err
			}
		}

		translated, err := c.attempt(ctx, req)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("translate: %s: %w", c.provider.Name(), lastErr)
}

// Probe checks provider connectivity with a single bounded request.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Probe(ctx)
}

func (c *Client) attempt(ctx context.Context, req provider.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.Translate(ctx, req)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
