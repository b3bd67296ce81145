package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/user/portalwatch/internal/model"
	"github.com/user/portalwatch/internal/portal"
)

// Handlers contains the JSON API handlers.
type Handlers struct {
	inst portal.Instance
}

// NewHandlers creates handlers backed by inst.
func NewHandlers(inst portal.Instance) *Handlers {
	return &Handlers{inst: inst}
}

// NetworkRecord is one entry of GET /api/networks.
type NetworkRecord struct {
	Network model.NetworkIdentity `json:"network"`
	State   model.PortalState     `json:"state"`
}

// APIGetStatus returns the detector snapshot.
func (h *Handlers) APIGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.inst.Snapshot())
}

// APIGetState returns the state of the network named in the query, or of the
// active network when none is named.
func (h *Handlers) APIGetState(w http.ResponseWriter, r *http.Request) {
	network := model.NetworkIdentity(r.URL.Query().Get("network"))
	if network == model.NoNetwork {
		network, _ = h.inst.Current()
	}
	writeJSON(w, NetworkRecord{Network: network, State: h.inst.State(network)})
}

// APIGetNetworks lists every network with a detection record.
func (h *Handlers) APIGetNetworks(w http.ResponseWriter, r *http.Request) {
	records := h.inst.Records()
	out := make([]NetworkRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, NetworkRecord{Network: rec.Identity, State: h.inst.State(rec.Identity)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Network < out[j].Network })
	writeJSON(w, out)
}

// APIDetect starts detection if the detector is idle.
func (h *Handlers) APIDetect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"started": h.inst.StartDetectionIfIdle()})
}

// APIEnable turns detection on. The optional body is
// {"start_detection": bool}.
func (h *Handlers) APIEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDetection bool `json:"start_detection"`
	}
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	h.inst.Enable(req.StartDetection)
	writeJSON(w, h.inst.Snapshot())
}

// APIDisable turns detection off.
func (h *Handlers) APIDisable(w http.ResponseWriter, r *http.Request) {
	h.inst.Disable()
	writeJSON(w, h.inst.Snapshot())
}

// APISetErrorScreen takes {"visible": bool}.
func (h *Handlers) APISetErrorScreen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if req.Visible == nil {
		writeError(w, errors.New("missing field: visible"), http.StatusBadRequest)
		return
	}
	h.inst.SetErrorScreenVisible(*req.Visible)
	writeJSON(w, h.inst.Snapshot())
}

// APISetSession takes {"active": bool}.
func (h *Handlers) APISetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if req.Active == nil {
		writeError(w, errors.New("missing field: active"), http.StatusBadRequest)
		return
	}
	h.inst.SetSessionActive(*req.Active)
	writeJSON(w, h.inst.Snapshot())
}

// decodeOptional decodes a JSON body if there is one. An empty body, chunked
// or not, leaves v untouched.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
