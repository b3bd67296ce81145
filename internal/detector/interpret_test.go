package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/portalwatch/internal/model"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		res  model.ProbeResult
		want model.PortalState
	}{
		{"transport failure", model.TransportFailure(errors.New("no route")), model.OfflineState()},
		{"no content", model.ProbeResult{ResponseCode: 204}, model.PortalState{Status: model.StatusOnline, ResponseCode: 204}},
		{"login page", model.ProbeResult{ResponseCode: 200}, model.PortalState{Status: model.StatusPortal, ResponseCode: 200}},
		{"redirect 301", model.ProbeResult{ResponseCode: 301}, model.PortalState{Status: model.StatusPortal, ResponseCode: 301}},
		{"redirect 302", model.ProbeResult{ResponseCode: 302}, model.PortalState{Status: model.StatusPortal, ResponseCode: 302}},
		{"network auth", model.ProbeResult{ResponseCode: 511}, model.PortalState{Status: model.StatusProxyAuthRequired, ResponseCode: 511}},
		{"server error", model.ProbeResult{ResponseCode: 503}, model.PortalState{Status: model.StatusPortal, ResponseCode: 503}},
		{"proxy 407 is ambiguous", model.ProbeResult{ResponseCode: 407}, model.PortalState{Status: model.StatusPortal, ResponseCode: 407}},
		{"expected body", model.ProbeResult{ResponseCode: 200, ContentMatched: true}, model.PortalState{Status: model.StatusOnline, ResponseCode: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.res))
		})
	}
}
