package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/SwiftSendNG/SwiftSend/internal/wacloud"
)

// maxWebhookBody caps inbound webhook payload size.
const maxWebhookBody = 1 << 20

// webhookHandler serves both webhook verbs: GET for the provider's
// subscription challenge, POST for events.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhookHandler(w, r)
	case http.MethodPost:
		s.receiveWebhookHandler(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// verifyWebhookHandler echoes the challenge when the verify token matches.
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || s.verifyToken == "" || token != s.verifyToken {
		slog.Warn("Server.verifyWebhookHandler: verification failed", "mode", mode)
		w.WriteHeader(http.StatusForbidden)
		return
	}
	slog.Info("Server.verifyWebhookHandler: webhook verified")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server.verifyWebhookHandler: failed to write challenge", "error", err)
	}
}

// receiveWebhookHandler processes one event payload. The provider retries
// the whole event on any non-2xx, which would duplicate side effects, so
// processing errors are logged and the response is still 200.
func (s *Server) receiveWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Warn("Server.receiveWebhookHandler: failed to read body", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	payload, err := wacloud.ParseWebhook(body)
	if err != nil {
		slog.Warn("Server.receiveWebhookHandler: failed to parse payload", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	messages := wacloud.ExtractMessages(payload)
	slog.Debug("Server.receiveWebhookHandler: extracted messages", "count", len(messages))
	for _, msg := range messages {
		if msg.ID != "" {
			if err := s.gateway.MarkRead(context.Background(), msg.ID); err != nil {
				slog.Debug("Server.receiveWebhookHandler: mark read failed", "message_id", msg.ID, "error", err)
			}
		}
		s.rt.HandleMessage(context.Background(), msg)
	}
	w.WriteHeader(http.StatusOK)
}
