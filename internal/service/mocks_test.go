package service_test

import (
	"encoding/json"
	"sync"
	"testing"
)

// recorder captures every notification for assertions.
type recorder struct {
	mu     sync.Mutex
	events []recorded
}

type recorded struct {
	kind    string // conns, room or all
	room    string
	conns   []string
	payload any
}

func (r *recorder) ToConns(connIDs []string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{kind: "conns", conns: connIDs, payload: payload})
}

func (r *recorder) ToRoom(room string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{kind: "room", room: room, payload: payload})
}

func (r *recorder) All(payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{kind: "all", payload: payload})
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recorded, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// ofType returns the recorded events whose payload "type" field matches.
func (r *recorder) ofType(t *testing.T, eventType string) []recorded {
	t.Helper()
	var out []recorded
	for _, ev := range r.all() {
		if asMap(t, ev.payload)["type"] == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// asMap normalizes a payload (typed struct or map) into a generic map through
// a JSON round trip.
func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return m
}
