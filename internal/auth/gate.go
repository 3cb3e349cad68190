package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/devilmonastery/hrconsole/internal/pkg/metrics"
)

// DefaultPollInterval is the delay between readiness checks
const DefaultPollInterval = 100 * time.Millisecond

// ErrReadinessTimeout is returned when a bounded activation gives up
var ErrReadinessTimeout = errors.New("timed out waiting for session readiness")

// ReadinessSource supplies the two values the gate waits for.
// Empty strings mean absent.
type ReadinessSource interface {
	GetAccessToken(ctx context.Context) (string, error)
	GetTenant(ctx context.Context) (string, error)
}

// Gate defers dependent work until an access token and a tenant are both
// observable in session storage.
type Gate struct {
	source   ReadinessSource
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	// wait blocks for d and reports false if ctx ended first
	wait func(ctx context.Context, d time.Duration) bool
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithInterval sets the delay between checks
func WithInterval(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithTimeout bounds how long an activation polls. Zero polls until torn down.
func WithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		g.timeout = d
	}
}

// WithLogger sets the gate's logger
func WithLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate creates a readiness gate over source
func NewGate(source ReadinessSource, opts ...GateOption) *Gate {
	g := &Gate{
		source:   source,
		interval: DefaultPollInterval,
		logger:   slog.Default().With("component", "readiness-gate"),
		wait:     sleepContext,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check evaluates readiness once. Storage errors count as not ready.
func (g *Gate) Check(ctx context.Context) bool {
	ready := g.check(ctx)
	metrics.RecordReadinessCheck(ready)
	return ready
}

func (g *Gate) check(ctx context.Context) bool {
	token, err := g.source.GetAccessToken(ctx)
	if err != nil {
		g.logger.Debug("failed to read access token", slog.String("error", err.Error()))
		return false
	}
	if token == "" {
		return false
	}

	t, err := g.source.GetTenant(ctx)
	if err != nil {
		g.logger.Debug("failed to resolve tenant", slog.String("error", err.Error()))
		return false
	}
	return t != ""
}

// Activation is one running poll loop
type Activation struct {
	ready    chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	attempts atomic.Int64
	err      error
}

// Ready is closed once readiness has been observed
func (a *Activation) Ready() <-chan struct{} {
	return a.ready
}

// IsReady reports whether readiness has been observed
func (a *Activation) IsReady() bool {
	select {
	case <-a.ready:
		return true
	default:
		return false
	}
}

// Done is closed when the poll loop has exited for any reason
func (a *Activation) Done() <-chan struct{} {
	return a.done
}

// Err returns why the loop exited: nil when ready, ErrReadinessTimeout when
// the bound elapsed, or the context error after teardown. It returns nil
// while the loop is still running.
func (a *Activation) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// Attempts returns how many checks have been started
func (a *Activation) Attempts() int64 {
	return a.attempts.Load()
}

// Stop tears the activation down and cancels any pending re-check.
// Safe to call more than once and after the loop has finished.
func (a *Activation) Stop() {
	a.cancel()
}

// Activate starts polling. The first check runs immediately; once ready the
// activation is finished and no further checks are scheduled.
func (g *Gate) Activate(parent context.Context) *Activation {
	ctx, cancel := context.WithCancel(parent)
	stop := cancel
	if g.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, g.timeout, ErrReadinessTimeout)
		stop = func() {
			cancelTimeout()
			cancel()
		}
	}

	a := &Activation{
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		cancel: stop,
	}
	go g.run(ctx, a)
	return a
}

func (g *Gate) run(ctx context.Context, a *Activation) {
	defer close(a.done)
	defer a.cancel()

	start := time.Now()
	for {
		n := a.attempts.Add(1)
		if g.Check(ctx) {
			close(a.ready)
			metrics.ReadinessWait.WithLabelValues("ready").Observe(float64(time.Since(start).Milliseconds()))
			g.logger.Debug("session ready", slog.Int64("attempts", n))
			return
		}

		if !g.wait(ctx, g.interval) {
			a.err = context.Cause(ctx)
			outcome := "cancelled"
			if errors.Is(a.err, ErrReadinessTimeout) {
				outcome = "timeout"
				g.logger.Warn("gave up waiting for session readiness",
					slog.Int64("attempts", n),
					slog.Duration("timeout", g.timeout))
			}
			metrics.ReadinessWait.WithLabelValues(outcome).Observe(float64(time.Since(start).Milliseconds()))
			return
		}
	}
}

// Wait blocks until the session is ready, the bound elapses or ctx ends
func (g *Gate) Wait(ctx context.Context) error {
	a := g.Activate(ctx)
	defer a.Stop()
	<-a.Done()
	return a.Err()
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
