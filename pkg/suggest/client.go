// pkg/suggest/client.go
package suggest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tablebot/tablebot/pkg/model"
)

// Options holds the retrieval tunables. Zero values fall back to
// conservative defaults.
type Options struct {
	// MaxAttempts bounds API call attempts before falling back to the CLI.
	MaxAttempts int

	// BackoffBase is the first retry sleep; it doubles per attempt.
	BackoffBase time.Duration

	// AttemptTimeout bounds each individual API attempt.
	AttemptTimeout time.Duration

	// RateLimitRPS throttles API calls. Zero disables the limiter.
	RateLimitRPS float64
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 60 * time.Second
	}
	return o
}

// state is a step of the retrieval state machine.
type state int

const (
	stateProbe state = iota
	stateAPICall
	stateCLIFallback
	stateDone
)

// Client retrieves advisory cleaning guidance from an inference
// service. It owns retry, backoff and the CLI fallback path, and it
// never fails: every outcome is a Guidance value, with unavailable as
// the terminal state when all paths are exhausted. The rate limiter is
// private to the client and consulted around each API call on every
// path, including cancellation.
type Client struct {
	backend Backend
	cli     *CLIRunner
	opts    Options
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a suggestion client. cli may be nil when no local
// command fallback exists; failures then degrade straight to
// unavailable.
func NewClient(backend Backend, cli *CLIRunner, opts Options, logger *zap.Logger) *Client {
	opts = opts.withDefaults()
	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return &Client{backend: backend, cli: cli, opts: opts, limiter: limiter, logger: logger}
}

// Suggest walks Probe -> ApiCall -> CliFallback -> Done and always
// returns a Guidance value. Cancellation of ctx is treated the same as
// service unavailability.
func (c *Client) Suggest(ctx context.Context, profile *model.TableProfile, sample [][]string, header []string) model.Guidance {
	prompt := BuildPrompt(profile, sample, header)
	guidance := model.Unavailable()

	st := stateProbe
	for st != stateDone {
		if ctx.Err() != nil {
			c.logger.Warn("guidance retrieval cancelled", zap.Error(ctx.Err()))
			return model.Unavailable()
		}

		switch st {
		case stateProbe:
			if err := c.backend.Probe(ctx); err != nil {
				c.logger.Warn("inference service unreachable, trying CLI fallback",
					zap.String("backend", c.backend.Name()),
					zap.Error(err))
				st = stateCLIFallback
				break
			}
			st = stateAPICall

		case stateAPICall:
			advice, err := c.callAPI(ctx, prompt)
			if err != nil {
				c.logger.Warn("inference API attempts exhausted, trying CLI fallback",
					zap.String("backend", c.backend.Name()),
					zap.Error(err))
				st = stateCLIFallback
				break
			}
			guidance = model.Guidance{Advice: advice, Source: model.GuidanceAPI, Model: c.backend.Model()}
			st = stateDone

		case stateCLIFallback:
			if c.cli == nil {
				st = stateDone
				break
			}
			advice, err := c.cli.Run(ctx, prompt)
			if err != nil {
				c.logger.Warn("CLI fallback failed, guidance unavailable", zap.Error(err))
				st = stateDone
				break
			}
			guidance = model.Guidance{Advice: advice, Source: model.GuidanceCLI, Model: c.cli.Model}
			st = stateDone
		}
	}
	return guidance
}

// callAPI issues the API request with bounded retries and exponential
// backoff on transient failures.
func (c *Client) callAPI(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			sleep := c.opts.BackoffBase << (attempt - 1)
			c.logger.Debug("retrying inference API call",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", sleep))
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
		advice, err := c.backend.Generate(attemptCtx, prompt)
		cancel()
		if err == nil {
			return advice, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}
