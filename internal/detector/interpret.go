package detector

import (
	"net/http"

	"github.com/user/portalwatch/internal/model"
)

// Interpret maps a probe result to a portal state. Responses that are
// neither a success nor a proxy-auth challenge count as a portal: an
// ambiguous answer is never assumed to be safe.
func Interpret(res model.ProbeResult) model.PortalState {
	if res.Err != nil {
		return model.OfflineState()
	}
	state := model.PortalState{ResponseCode: res.ResponseCode}
	switch {
	case res.ResponseCode == http.StatusNoContent:
		state.Status = model.StatusOnline
	case res.ContentMatched:
		state.Status = model.StatusOnline
	case res.ResponseCode == http.StatusNetworkAuthenticationRequired:
		state.Status = model.StatusProxyAuthRequired
	default:
		state.Status = model.StatusPortal
	}
	return state
}
