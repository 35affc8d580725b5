package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatserver/internal/domain"
	"chatserver/internal/service"
)

type sendMessageRequest struct {
	To           string              `json:"to"`
	Text         string              `json:"text"`
	Attachments  []domain.Attachment `json:"attachments"`
	ClientTempID string              `json:"clientTempId"`
}

func handleSendMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		payload, err := messages.Send(r.Context(), user.ID, service.SendInput{
			To:           req.To,
			Text:         req.Text,
			Attachments:  req.Attachments,
			ClientTempID: req.ClientTempID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)
	}
}

func handleMessageHistory(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		friendID := chi.URLParam(r, "friendID")

		msgs, err := messages.History(r.Context(), user.ID, friendID)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
	}
}
