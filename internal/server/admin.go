package server

import (
	"encoding/json"
	"net/http"

	"github.com/txurtxil/Esc32S3-Groq/internal/config"
)

// configResponse is the GET /api/config body: the live assistant record plus
// the catalogues the admin UI offers in its drop-downs.
type configResponse struct {
	Assistant config.Assistant `json:"assistant"`
	Models    []string         `json:"models"`
	Voices    []string         `json:"voices"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Assistant: s.store.Snapshot(),
		Models:    config.KnownModels,
		Voices:    config.KnownVoices,
	})
}

// handlePutConfig replaces the assistant record. The update applies to the
// next interaction; recordings already in flight keep their snapshot.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var a config.Assistant
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !config.IsKnownModel(a.Model) {
		s.log.Warn("assistant update uses uncatalogued model", "model", a.Model)
	}
	if !config.IsKnownVoice(a.Voice) {
		s.log.Warn("assistant update uses uncatalogued voice", "voice", a.Voice)
	}

	if err := s.store.Update(a); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.log.Info("assistant record updated",
		"model", a.Model, "voice", a.Voice,
		"silence_threshold", a.SilenceThreshold)
	writeJSON(w, http.StatusOK, configResponse{
		Assistant: s.store.Snapshot(),
		Models:    config.KnownModels,
		Voices:    config.KnownVoices,
	})
}

// logsResponse is the GET /api/logs body.
type logsResponse struct {
	Lines []string `json:"lines"`
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	var lines []string
	if s.logs != nil {
		lines = s.logs.Lines()
	}
	writeJSON(w, http.StatusOK, logsResponse{Lines: lines})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failure"}`, http.StatusInternalServerError)
	}
}
