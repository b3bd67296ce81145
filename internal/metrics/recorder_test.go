package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/portalwatch/internal/model"
)

func TestRecorder_InitialState(t *testing.T) {
	r := NewRecorder()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.status.WithLabelValues("Unknown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.status.WithLabelValues("Online")))
	assert.Equal(t, -1.0, testutil.ToFloat64(r.responseCode))
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()

	r.Observe("wifi", model.PortalState{Status: model.StatusPortal, ResponseCode: 302})
	r.Observe("wifi", model.PortalState{Status: model.StatusOnline, ResponseCode: 204})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.status.WithLabelValues("Online")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.status.WithLabelValues("Portal")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.status.WithLabelValues("Unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("Portal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("Online")))
	assert.Equal(t, 204.0, testutil.ToFloat64(r.responseCode))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.changes))

	r.Observe("eth0", model.OfflineState())
	assert.Equal(t, 2.0, testutil.ToFloat64(r.changes))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.Observe("wifi", model.PortalState{Status: model.StatusProxyAuthRequired, ResponseCode: 511})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `portalwatch_status{status="ProxyAuthRequired"} 1`)
	assert.Contains(t, string(body), "portalwatch_last_response_code 511")
	assert.Contains(t, string(body), "# TYPE portalwatch_active_network_changes_total counter")
	assert.Contains(t, string(body), "portalwatch_active_network_changes_total 1")
}
