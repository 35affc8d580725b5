package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"chatserver/internal/domain"
	"chatserver/internal/service"
)

type startCallRequest struct {
	To       string          `json:"to"`
	Metadata map[string]any  `json:"metadata"`
	Offer    json.RawMessage `json:"offer"`
}

type endCallRequest struct {
	Reason string `json:"reason"`
}

func handleStartCall(calls *service.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req startCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		call, err := calls.Start(r.Context(), user.ID, req.To, req.Metadata, req.Offer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, call)
	}
}

func handleAcceptCall(calls *service.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		callID := chi.URLParam(r, "callID")

		call, err := calls.Accept(r.Context(), callID, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, call)
	}
}

func handleEndCall(calls *service.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		callID := chi.URLParam(r, "callID")

		var req endCallRequest
		if r.Body != nil {
			// The reason body is optional.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		call, err := calls.End(r.Context(), callID, user.ID, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, call)
	}
}

func handleGetCall(calls *service.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		callID := chi.URLParam(r, "callID")

		call, err := calls.Get(callID)
		if err != nil {
			writeError(w, err)
			return
		}
		if call.Other(user.ID) == "" {
			writeError(w, domain.ErrNotInCall)
			return
		}
		writeJSON(w, http.StatusOK, call)
	}
}

func handleListCalls(calls *service.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		list := calls.ListForUser(user.ID)
		if list == nil {
			list = []*domain.Call{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"calls": list})
	}
}
