package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/portalwatch/internal/detector"
	"github.com/user/portalwatch/internal/metrics"
	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/notify"
)

type fakeInstance struct {
	enabled     bool
	startCalled bool
	active      model.NetworkIdentity
	states      map[model.NetworkIdentity]model.PortalState
	errorScreen bool
	session     bool
	idle        bool
}

func newFakeInstance() *fakeInstance {
	return &fakeInstance{
		active: "wifi",
		idle:   true,
		states: map[model.NetworkIdentity]model.PortalState{
			"wifi": {Status: model.StatusPortal, ResponseCode: 302},
			"eth0": {Status: model.StatusOnline, ResponseCode: 204},
		},
	}
}

func (f *fakeInstance) State(network model.NetworkIdentity) model.PortalState {
	if s, ok := f.states[network]; ok {
		return s
	}
	return model.UnknownState()
}

func (f *fakeInstance) Current() (model.NetworkIdentity, model.PortalState) {
	return f.active, f.State(f.active)
}

func (f *fakeInstance) IsEnabled() bool { return f.enabled }

func (f *fakeInstance) Enable(startDetection bool) {
	f.enabled = true
	f.startCalled = startDetection
}

func (f *fakeInstance) Disable() { f.enabled = false }

func (f *fakeInstance) StartDetectionIfIdle() bool {
	started := f.idle
	f.idle = false
	return started
}

func (f *fakeInstance) Subscribe(notify.Observer) notify.Handle             { return 1 }
func (f *fakeInstance) SubscribeAndNotifyNow(notify.Observer) notify.Handle { return 1 }
func (f *fakeInstance) Unsubscribe(notify.Handle)                           {}
func (f *fakeInstance) ActiveNetworkChanged(model.NetworkIdentity, bool)    {}
func (f *fakeInstance) NetworkListChanged([]model.NetworkIdentity)          {}
func (f *fakeInstance) SetErrorScreenVisible(visible bool)                  { f.errorScreen = visible }
func (f *fakeInstance) SetSessionActive(active bool)                        { f.session = active }
func (f *fakeInstance) Close() error                                        { return nil }

func (f *fakeInstance) Snapshot() model.Snapshot {
	ctx := model.ContextLoginScreen
	if f.errorScreen {
		ctx = model.ContextErrorScreenVisible
	} else if f.session {
		ctx = model.ContextSession
	}
	return model.Snapshot{
		Enabled:       f.enabled,
		ActiveNetwork: f.active,
		Usable:        true,
		State:         f.State(f.active),
		Phase:         "idle",
		Context:       ctx,
	}
}

func (f *fakeInstance) Records() []detector.Record {
	var out []detector.Record
	for id, s := range f.states {
		out = append(out, detector.Record{Identity: id, State: s})
	}
	return out
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Status(t *testing.T) {
	inst := newFakeInstance()
	inst.enabled = true
	h := NewServer(inst, nil, 0).Handler()

	rec := serve(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.True(t, snap.Enabled)
	assert.Equal(t, model.NetworkIdentity("wifi"), snap.ActiveNetwork)
	assert.Equal(t, model.PortalState{Status: model.StatusPortal, ResponseCode: 302}, snap.State)
	assert.Equal(t, model.ContextLoginScreen, snap.Context)
}

func TestAPI_State(t *testing.T) {
	h := NewServer(newFakeInstance(), nil, 0).Handler()

	var got NetworkRecord
	rec := serve(t, h, http.MethodGet, "/api/state?network=eth0", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.PortalState{Status: model.StatusOnline, ResponseCode: 204}, got.State)

	rec = serve(t, h, http.MethodGet, "/api/state", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.NetworkIdentity("wifi"), got.Network)

	rec = serve(t, h, http.MethodGet, "/api/state?network=unknown", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, model.UnknownState(), got.State)
}

func TestAPI_Networks(t *testing.T) {
	h := NewServer(newFakeInstance(), nil, 0).Handler()

	var got []NetworkRecord
	rec := serve(t, h, http.MethodGet, "/api/networks", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, model.NetworkIdentity("eth0"), got[0].Network)
}

func TestAPI_Detect(t *testing.T) {
	h := NewServer(newFakeInstance(), nil, 0).Handler()

	rec := serve(t, h, http.MethodPost, "/api/detect", "")
	assert.JSONEq(t, `{"started":true}`, rec.Body.String())

	rec = serve(t, h, http.MethodPost, "/api/detect", "")
	assert.JSONEq(t, `{"started":false}`, rec.Body.String())

	rec = serve(t, h, http.MethodGet, "/api/detect", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_EnableDisable(t *testing.T) {
	inst := newFakeInstance()
	h := NewServer(inst, nil, 0).Handler()

	rec := serve(t, h, http.MethodPost, "/api/enable", `{"start_detection":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inst.enabled)
	assert.True(t, inst.startCalled)

	rec = serve(t, h, http.MethodPost, "/api/disable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, inst.enabled)

	rec = serve(t, h, http.MethodPost, "/api/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, inst.startCalled)

	rec = serve(t, h, http.MethodPost, "/api/enable", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_EnableChunkedEmptyBody(t *testing.T) {
	inst := newFakeInstance()
	h := NewServer(inst, nil, 0).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/enable", io.NopCloser(strings.NewReader("")))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inst.enabled)
	assert.False(t, inst.startCalled)
}

func TestAPI_Context(t *testing.T) {
	inst := newFakeInstance()
	h := NewServer(inst, nil, 0).Handler()

	rec := serve(t, h, http.MethodPost, "/api/context/session", `{"active":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, inst.session)

	rec = serve(t, h, http.MethodPost, "/api/context/error-screen", `{"visible":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.ContextErrorScreenVisible, snap.Context)

	rec = serve(t, h, http.MethodPost, "/api/context/error-screen", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Metrics(t *testing.T) {
	recorder := metrics.NewRecorder()
	recorder.Observe("wifi", model.PortalState{Status: model.StatusPortal, ResponseCode: 302})
	h := NewServer(newFakeInstance(), recorder, 0).Handler()

	rec := serve(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "portalwatch_last_response_code 302")

	rec = serve(t, NewServer(newFakeInstance(), nil, 0).Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
