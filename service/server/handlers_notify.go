package server

import (
	"encoding/json"
	"net/http"

	"msgbox/service/event"
)

// notifyMessage adapts a structured message entry from the wire into the
// extractor's Message capability.
type notifyMessage struct {
	MessageText string `json:"text"`
}

func (m notifyMessage) Text() string {
	return m.MessageText
}

type notifyRequest struct {
	Package    string `json:"package"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Visibility string `json:"visibility"`
	PostedAt   int64  `json:"postedAt"`

	BigText            string          `json:"bigText,omitempty"`
	TextLines          []string        `json:"textLines,omitempty"`
	Messages           []notifyMessage `json:"messages,omitempty"`
	RemoteInputHistory []string        `json:"remoteInputHistory,omitempty"`

	Public *struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	} `json:"public,omitempty"`
}

func (req *notifyRequest) toPayload() event.Payload {
	p := event.Payload{
		Package:            req.Package,
		Title:              req.Title,
		Text:               req.Text,
		Visibility:         event.ParseVisibility(req.Visibility),
		PostedAt:           req.PostedAt,
		BigText:            req.BigText,
		TextLines:          req.TextLines,
		RemoteInputHistory: req.RemoteInputHistory,
	}

	for _, m := range req.Messages {
		p.Messages = append(p.Messages, m)
	}

	if req.Public != nil {
		p.Public = &event.Payload{
			Title: req.Public.Title,
			Text:  req.Public.Text,
		}
	}

	return p
}

// handleNotify is the entry point for raw notification payloads posted by
// the device agent. The pipeline extracts and matches inline; dispatch is
// asynchronous, so the response only acknowledges acceptance.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Package == "" {
		http.Error(w, "Missing package", http.StatusBadRequest)
		return
	}

	s.pipeline.OnEvent(req.toPayload())

	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "accepted"}); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}
