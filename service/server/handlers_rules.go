package server

import (
	"encoding/json"
	"net/http"

	"msgbox/service/rule"
	"msgbox/service/util"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.List()
	if err != nil {
		util.LogAndError(w, s.logger, "Internal server error", http.StatusInternalServerError, err)
		return
	}
	if rules == nil {
		rules = []rule.ForwardRule{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rules); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func validateRule(r rule.ForwardRule) string {
	if r.Name == "" {
		return "Missing name"
	}
	if r.AppPackageName == "" {
		return "Missing appPackageName"
	}
	switch r.Type {
	case rule.TypeHTTP:
		if r.ServerURL == "" {
			return "serverUrl required for http rules"
		}
	case rule.TypeMQTT:
		if r.BrokerHost == "" {
			return "brokerHost required for mqtt rules"
		}
		if r.Topic == "" {
			return "topic required for mqtt rules"
		}
	default:
		return "Invalid type, must be http or mqtt"
	}
	return ""
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req rule.ForwardRule
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if msg := validateRule(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	saved, err := s.store.Save(req)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to save rule", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(saved); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := s.store.GetByID(id)
	if err != nil {
		util.LogAndError(w, s.logger, "Internal server error", http.StatusInternalServerError, err)
		return
	}
	if found == nil {
		http.Error(w, "Rule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(found); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.store.GetByID(id)
	if err != nil {
		util.LogAndError(w, s.logger, "Internal server error", http.StatusInternalServerError, err)
		return
	}
	if existing == nil {
		http.Error(w, "Rule not found", http.StatusNotFound)
		return
	}

	var req rule.ForwardRule
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.ID = id

	if msg := validateRule(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	saved, err := s.store.Save(req)
	if err != nil {
		util.LogAndError(w, s.logger, "Failed to save rule", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(saved); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(id); err != nil {
		util.LogAndError(w, s.logger, "Failed to delete rule", http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
