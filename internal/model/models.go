// Package model defines core data structures for portalwatch.
package model

import (
	"encoding/json"
	"fmt"
)

// InvalidResponseCode marks a PortalState that carries no HTTP response,
// for example after a transport failure.
const InvalidResponseCode = -1

// PortalStatus classifies the connectivity of a network.
type PortalStatus int

const (
	StatusUnknown PortalStatus = iota
	StatusOffline
	StatusOnline
	StatusPortal
	StatusProxyAuthRequired
)

var statusNames = map[PortalStatus]string{
	StatusUnknown:           "Unknown",
	StatusOffline:           "Offline",
	StatusOnline:            "Online",
	StatusPortal:            "Portal",
	StatusProxyAuthRequired: "ProxyAuthRequired",
}

// String returns a non-localized name for the status.
func (s PortalStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PortalStatus(%d)", int(s))
}

// ParseStatus is the inverse of PortalStatus.String.
func ParseStatus(s string) (PortalStatus, error) {
	for status, name := range statusNames {
		if name == s {
			return status, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown portal status %q", s)
}

// MarshalJSON encodes the status by name.
func (s PortalStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *PortalStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	status, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// PortalState is the outcome of detection for one network. It is a value:
// transitions replace it, they never modify it.
type PortalState struct {
	Status       PortalStatus `json:"status"`
	ResponseCode int          `json:"response_code"`
}

// UnknownState is the state of a network nothing is known about.
func UnknownState() PortalState {
	return PortalState{Status: StatusUnknown, ResponseCode: InvalidResponseCode}
}

// OfflineState is the state of a network that has no usable connection.
func OfflineState() PortalState {
	return PortalState{Status: StatusOffline, ResponseCode: InvalidResponseCode}
}

func (s PortalState) String() string {
	return fmt.Sprintf("%s(%d)", s.Status, s.ResponseCode)
}

// NetworkIdentity is an opaque key assigned by the network-state provider.
type NetworkIdentity string

// NoNetwork stands for "no active network".
const NoNetwork NetworkIdentity = ""

// ProbeResult is what a probe executor reports for a single probe.
type ProbeResult struct {
	// ResponseCode is the raw HTTP status, or InvalidResponseCode when Err is set.
	ResponseCode int `json:"response_code"`
	// Err is set when the probe could not complete.
	Err error `json:"-"`
	// ContentMatched is set by the executor when a non-204 response carried
	// the body the probe endpoint is known to serve.
	ContentMatched bool `json:"content_matched"`
}

// TransportFailure builds the result of a probe that got no response.
func TransportFailure(err error) ProbeResult {
	return ProbeResult{ResponseCode: InvalidResponseCode, Err: err}
}

// StrategyContext is the execution context that selects the retry cadence.
type StrategyContext int

const (
	ContextLoginScreen StrategyContext = iota
	ContextSession
	ContextErrorScreenVisible
)

var contextNames = map[StrategyContext]string{
	ContextLoginScreen:        "login_screen",
	ContextSession:            "session",
	ContextErrorScreenVisible: "error_screen",
}

func (c StrategyContext) String() string {
	if name, ok := contextNames[c]; ok {
		return name
	}
	return fmt.Sprintf("StrategyContext(%d)", int(c))
}

// MarshalJSON encodes the context by name.
func (c StrategyContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a context name.
func (c *StrategyContext) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for ctx, n := range contextNames {
		if n == name {
			*c = ctx
			return nil
		}
	}
	return fmt.Errorf("unknown strategy context %q", name)
}

// Snapshot is a read model of the detector for status displays.
type Snapshot struct {
	Enabled       bool            `json:"enabled"`
	ActiveNetwork NetworkIdentity `json:"active_network"`
	Usable        bool            `json:"usable"`
	State         PortalState     `json:"state"`
	Phase         string          `json:"phase"`
	Context       StrategyContext `json:"context"`
	Attempts      int             `json:"attempts"`
}
