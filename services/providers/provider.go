package providers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sentinelops/aegisgate/services/cost"
	"github.com/sentinelops/aegisgate/services/scenario"
)

// Invocation is one completed model call.
type Invocation struct {
	ResponseText string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    float64
}

// Provider produces a response for an admitted prompt. Implementations
// must honor context cancellation.
type Provider interface {
	Invoke(ctx context.Context, prompt string, mode scenario.Mode) (*Invocation, error)
	Model() string
}

// Options tunes the simulated provider. Zero values take the defaults.
type Options struct {
	Model        string
	BaseLatency  time.Duration
	Jitter       time.Duration
	SpikeLatency time.Duration
	Seed         int64
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = cost.DefaultModel
	}
	if o.BaseLatency <= 0 {
		o.BaseLatency = 80 * time.Millisecond
	}
	if o.Jitter <= 0 {
		o.Jitter = 140 * time.Millisecond
	}
	if o.SpikeLatency <= 0 {
		o.SpikeLatency = 1200 * time.Millisecond
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Simulated is a local stand-in for a real model backend. It synthesizes a
// response from the prompt's vocabulary and sleeps for a scenario-shaped
// latency.
type Simulated struct {
	logger *zap.Logger
	opts   Options

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulated builds the simulated backend.
func NewSimulated(logger *zap.Logger, opts Options) *Simulated {
	opts = opts.withDefaults()
	return &Simulated{
		logger: logger,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
}

// Model reports the simulated model name.
func (s *Simulated) Model() string {
	return s.opts.Model
}

// Invoke sleeps for the scenario's latency profile, then returns a
// synthesized answer. A canceled or expired context aborts the call with
// the context's error.
func (s *Simulated) Invoke(ctx context.Context, prompt string, mode scenario.Mode) (*Invocation, error) {
	start := time.Now()
	delay := s.latencyFor(mode)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("model invocation aborted after %s: %w", time.Since(start), ctx.Err())
	case <-timer.C:
	}

	response := s.synthesize(prompt, mode)
	inv := &Invocation{
		ResponseText: response,
		Model:        s.opts.Model,
		InputTokens:  cost.EstimateTokens(prompt),
		OutputTokens: cost.EstimateTokens(response),
		LatencyMs:    float64(time.Since(start).Microseconds()) / 1000,
	}

	s.logger.Debug("simulated invocation complete",
		zap.String("model", inv.Model),
		zap.String("mode", string(mode)),
		zap.Float64("latency_ms", inv.LatencyMs))
	return inv, nil
}

func (s *Simulated) latencyFor(mode scenario.Mode) time.Duration {
	s.mu.Lock()
	jitter := time.Duration(s.rng.Int63n(int64(s.opts.Jitter)))
	s.mu.Unlock()

	if mode == scenario.ModeLatencySpike {
		return s.opts.SpikeLatency + jitter
	}
	return s.opts.BaseLatency + jitter
}

func (s *Simulated) synthesize(prompt string, mode scenario.Mode) string {
	subject := keyTerms(prompt, 4)
	if subject == "" {
		subject = "your request"
	}

	switch mode {
	case scenario.ModeHighRisk:
		return fmt.Sprintf("I can only give a partial answer about %s here; some of it falls outside what I can help with.", subject)
	case scenario.ModeDrift:
		return fmt.Sprintf("Regarding %s: this sits outside the usual scope, but broadly speaking the topic involves several considerations worth reviewing with a specialist.", subject)
	case scenario.ModeMitigated:
		return fmt.Sprintf("Here is a concise, reviewed summary about %s. The key points are grounded in the request and kept within policy.", subject)
	default:
		return fmt.Sprintf("Here is an answer about %s. The main aspects of %s involve a few steps: understanding the context, applying the relevant approach, and validating the result.", subject, subject)
	}
}

// keyTerms picks up to n distinct content words from the prompt so the
// answer visibly echoes it.
func keyTerms(prompt string, n int) string {
	seen := map[string]struct{}{}
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if len(w) <= 4 {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, w)
		if len(terms) == n {
			break
		}
	}
	return strings.Join(terms, " ")
}
