package elevation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/terrain-cli/internal/terrain"
)

// ErrSourceUnavailable is returned while the breaker is open and sample
// lookups are being rejected without reaching the backend.
var ErrSourceUnavailable = eris.New("elevation: source unavailable")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed lets every lookup through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects lookups until the reset timeout elapses.
	BreakerOpen
	// BreakerHalfOpen lets a single probe through at a time; its outcome
	// closes or reopens the breaker.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when a Breaker opens and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive backend failures that
	// open the breaker. Default: 5.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// probe. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker is a consecutive-failure circuit breaker for one backend.
type Breaker struct {
	cfg BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probing     bool

	now func() time.Time
}

// NewBreaker creates a closed breaker, filling zero config values with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State returns the current state, reporting half-open once an open
// breaker's reset timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// allow reports whether a lookup may proceed and whether it is the half-open
// probe. Only one probe is in flight at a time.
func (b *Breaker) allow() (ok, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerClosed:
		return true, false
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) < b.cfg.ResetTimeout {
			return false, false
		}
		b.transition(BreakerHalfOpen)
	}
	if b.probing {
		return false, false
	}
	b.probing = true
	return true, true
}

func (b *Breaker) record(err error, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}

	// Callers giving up says nothing about the backend.
	if errors.Is(err, context.Canceled) {
		return
	}
	// Lookups admitted before the breaker opened do not decide its state.
	if b.state != BreakerClosed && !probe {
		return
	}

	if err == nil {
		if b.state == BreakerHalfOpen {
			b.transition(BreakerClosed)
		}
		b.failures = 0
		return
	}

	b.failures++
	b.lastFailure = b.now()
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.transition(BreakerOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	b.state = to
	zap.L().Warn("elevation: breaker state change",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("consecutive_failures", b.failures),
	)
}

// GuardedSource wraps a PointSource with a Breaker so that a failing backend
// is shed quickly instead of stalling every analysis for the fetch timeout.
type GuardedSource struct {
	terrain.PointSource
	breaker *Breaker
}

// NewGuardedSource wraps src with a breaker built from cfg.
func NewGuardedSource(src terrain.PointSource, cfg BreakerConfig) *GuardedSource {
	return &GuardedSource{PointSource: src, breaker: NewBreaker(cfg)}
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedSource) Breaker() *Breaker { return g.breaker }

// PointsInBounds delegates to the wrapped source unless the breaker is open.
func (g *GuardedSource) PointsInBounds(ctx context.Context, b terrain.Bounds) ([]terrain.ElevationSample, error) {
	ok, probe := g.breaker.allow()
	if !ok {
		return nil, ErrSourceUnavailable
	}
	samples, err := g.PointSource.PointsInBounds(ctx, b)
	g.breaker.record(err, probe)
	return samples, err
}
