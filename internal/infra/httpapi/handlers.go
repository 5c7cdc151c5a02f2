package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"govee-bar/internal/domain"
)

type controlRequest struct {
	Type     string       `json:"type"`
	Instance string       `json:"instance"`
	Value    domain.Value `json:"value"`
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

type apiKeyResponse struct {
	APIKey *string `json:"apiKey"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Init(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "initialized"})
}

func (s *Server) handleShowPanel(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ShowPanel(); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.ListDevices(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.GetDeviceState(r.Context(), chi.URLParam(r, "device"), chi.URLParam(r, "sku"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd := domain.ControlCommand{
		DeviceID: chi.URLParam(r, "device"),
		SKU:      chi.URLParam(r, "sku"),
		Kind:     req.Type,
		Instance: req.Instance,
		Value:    req.Value,
	}
	if err := s.svc.SendControl(r.Context(), cmd); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	kind := domain.SceneKind(chi.URLParam(r, "kind"))
	options, err := s.svc.ListScenes(r.Context(), kind, chi.URLParam(r, "device"), chi.URLParam(r, "sku"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (s *Server) handleGetAPIKey(w http.ResponseWriter, _ *http.Request) {
	var resp apiKeyResponse
	if key, ok := s.svc.GetAPIKey(); ok {
		resp.APIKey = &key
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req apiKeyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.SetAPIKey(r.Context(), req.APIKey); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
