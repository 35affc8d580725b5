package httpserver

import (
	"encoding/json"
	"net/http"

	"chatserver/internal/service"
)

type friendRequestBody struct {
	To string `json:"to"`
}

type friendRespondBody struct {
	From   string `json:"from"`
	Accept bool   `json:"accept"`
}

func handleFriendRequest(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req friendRequestBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		outcome, err := friends.Request(r.Context(), user.ID, req.To)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": string(outcome)})
	}
}

func handleFriendRespond(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req friendRespondBody
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		if err := friends.Respond(r.Context(), user.ID, req.From, req.Accept); err != nil {
			writeError(w, err)
			return
		}
		status := "rejected"
		if req.Accept {
			status = "accepted"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	}
}

func handleListFriends(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		list, err := friends.ListFriends(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"friends": list})
	}
}

func handleListFriendRequests(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		list, err := friends.ListRequests(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": list})
	}
}

// handleFriendStatus returns every friend with a live online flag, the
// polling counterpart of the friendOnlineStatus push event.
func handleFriendStatus(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		list, err := friends.ListFriends(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		statuses := make(map[string]bool, len(list))
		for _, f := range list {
			statuses[f.ID] = f.Online
		}
		writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
	}
}

func handleFriendRepair(friends *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		repaired, err := friends.Repair(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		if repaired == nil {
			repaired = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"repaired": repaired})
	}
}
