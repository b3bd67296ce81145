package daemon

import (
	"github.com/user/portalwatch/internal/netstate"
	"github.com/user/portalwatch/internal/portal"
	"github.com/user/portalwatch/internal/probes"
	"github.com/user/portalwatch/internal/strategy"
	"github.com/user/portalwatch/internal/util"
)

// NewProber builds the HTTP prober described by cfg.
func NewProber(cfg *util.Config) *probes.HTTPProber {
	opts := []probes.HTTPOption{
		probes.WithUserAgent(cfg.ProbeUserAgent),
	}
	if cfg.ProbeExpectedBody != "" {
		opts = append(opts, probes.WithExpectedBody(cfg.ProbeExpectedBody))
	}
	if cfg.BindInterface {
		opts = append(opts, probes.WithInterfaceResolver(netstate.InterfaceName))
	}
	return probes.NewHTTPProber(cfg.ProbeURL, opts...)
}

// NewStrategy builds the retry strategy described by cfg.
func NewStrategy(cfg *util.Config) *strategy.Strategy {
	return strategy.New(cfg.Strategy, strategy.WithZeroDelay(cfg.ZeroDelay))
}

// ProductionFactory builds loop-backed services probing over HTTP.
func ProductionFactory(cfg *util.Config) portal.Factory {
	return func() (portal.Instance, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		util.Debug("Creating portal service (probe %s)", cfg.ProbeURL)
		return portal.NewService(NewProber(cfg), NewStrategy(cfg)), nil
	}
}
