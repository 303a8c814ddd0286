package server

import (
	"encoding/json"
	"net/http"
	"time"

	"msgbox/service/util"
)

type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Rules  int    `json:"rules"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Uptime: util.FormatUptime(time.Since(s.startTime)),
	}

	if rules, err := s.store.List(); err == nil {
		resp.Rules = len(rules)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode health response", "error", err)
	}
}
