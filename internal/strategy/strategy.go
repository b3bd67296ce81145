// Package strategy computes the delay between portal detection attempts.
//
// A Policy describes the retry cadence of one execution context. The
// Strategy maps (context, consecutive attempts, last status) to a delay and
// does not keep any attempt state of its own; the caller owns the counter.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/user/portalwatch/internal/model"
)

// Policy holds the retry parameters of one context.
type Policy struct {
	InitialDelay   time.Duration `mapstructure:"initial_delay"`
	GrowthFactor   float64       `mapstructure:"growth_factor"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	FallbackDelay  time.Duration `mapstructure:"fallback_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// Validate reports the first inconsistent parameter.
func (p Policy) Validate() error {
	switch {
	case p.InitialDelay < 0:
		return fmt.Errorf("initial_delay must not be negative")
	case p.GrowthFactor < 1:
		return fmt.Errorf("growth_factor must be >= 1, got %v", p.GrowthFactor)
	case p.MaxDelay < p.InitialDelay:
		return fmt.Errorf("max_delay %s is below initial_delay %s", p.MaxDelay, p.InitialDelay)
	case p.MaxAttempts < 0:
		return fmt.Errorf("max_attempts must not be negative")
	case p.FallbackDelay < 0:
		return fmt.Errorf("fallback_delay must not be negative")
	case p.AttemptTimeout <= 0:
		return fmt.Errorf("attempt_timeout must be positive")
	}
	return nil
}

// delay returns the wait before the next attempt after n consecutive
// non-online results (n == 0 for the first retry).
func (p Policy) delay(n int) time.Duration {
	if p.MaxAttempts > 0 && n >= p.MaxAttempts {
		return p.FallbackDelay
	}
	d := float64(p.InitialDelay) * math.Pow(p.GrowthFactor, float64(n))
	if d >= float64(p.MaxDelay) || math.IsInf(d, 1) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Policies maps every context to its policy.
type Policies struct {
	LoginScreen        Policy `mapstructure:"login_screen"`
	Session            Policy `mapstructure:"session"`
	ErrorScreenVisible Policy `mapstructure:"error_screen"`
}

// DefaultPolicies returns the built-in cadences. Login screen retries are the
// most frequent and in-session retries the sparsest.
func DefaultPolicies() Policies {
	return Policies{
		LoginScreen: Policy{
			InitialDelay:   3 * time.Second,
			GrowthFactor:   1.5,
			MaxDelay:       30 * time.Second,
			MaxAttempts:    6,
			FallbackDelay:  time.Minute,
			AttemptTimeout: 5 * time.Second,
		},
		Session: Policy{
			InitialDelay:   30 * time.Second,
			GrowthFactor:   2,
			MaxDelay:       5 * time.Minute,
			MaxAttempts:    5,
			FallbackDelay:  10 * time.Minute,
			AttemptTimeout: 15 * time.Second,
		},
		ErrorScreenVisible: Policy{
			InitialDelay:   10 * time.Second,
			GrowthFactor:   1.5,
			MaxDelay:       time.Minute,
			MaxAttempts:    6,
			FallbackDelay:  2 * time.Minute,
			AttemptTimeout: 15 * time.Second,
		},
	}
}

// For returns the policy of ctx.
func (p Policies) For(ctx model.StrategyContext) Policy {
	switch ctx {
	case model.ContextSession:
		return p.Session
	case model.ContextErrorScreenVisible:
		return p.ErrorScreenVisible
	default:
		return p.LoginScreen
	}
}

// Validate checks every policy.
func (p Policies) Validate() error {
	for _, ctx := range []model.StrategyContext{
		model.ContextLoginScreen, model.ContextSession, model.ContextErrorScreenVisible,
	} {
		if err := p.For(ctx).Validate(); err != nil {
			return fmt.Errorf("%s policy: %w", ctx, err)
		}
	}
	return nil
}

// Strategy looks up the active context's policy.
type Strategy struct {
	policies  Policies
	zeroDelay bool
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithZeroDelay forces every computed delay to zero. Tests use it to make
// retries run back to back.
func WithZeroDelay(enabled bool) Option {
	return func(s *Strategy) {
		s.zeroDelay = enabled
	}
}

// New creates a strategy over the given policies.
func New(policies Policies, opts ...Option) *Strategy {
	s := &Strategy{policies: policies}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Delay returns how long to wait before the next attempt in ctx, given the
// number of consecutive non-online results seen before the last one and the
// last status. An online result needs no retry and yields zero.
func (s *Strategy) Delay(ctx model.StrategyContext, attempts int, last model.PortalStatus) time.Duration {
	if s.zeroDelay || last == model.StatusOnline {
		return 0
	}
	if attempts < 0 {
		attempts = 0
	}
	return s.policies.For(ctx).delay(attempts)
}

// AttemptTimeout bounds a single probe in ctx.
func (s *Strategy) AttemptTimeout(ctx model.StrategyContext) time.Duration {
	return s.policies.For(ctx).AttemptTimeout
}

// Policy returns the policy of ctx.
func (s *Strategy) Policy(ctx model.StrategyContext) Policy {
	return s.policies.For(ctx)
}
