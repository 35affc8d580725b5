package ws

import (
	"encoding/json"

	"chatserver/internal/domain"
)

// Inbound events are normalized at the boundary into one typed struct per
// event kind; payloads that do not decode into the expected shape are
// rejected instead of guessed at.

type envelope struct {
	Type string `json:"type"`
}

type registerEvent struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type userOnlineEvent struct {
	UserID string `json:"userId"`
}

type sendMessageEvent struct {
	To           string              `json:"to"`
	Text         string              `json:"text"`
	Attachments  []domain.Attachment `json:"attachments"`
	ClientTempID string              `json:"clientTempId"`
}

type startCallEvent struct {
	To       string          `json:"to"`
	Metadata map[string]any  `json:"metadata"`
	Offer    json.RawMessage `json:"offer"`
}

type acceptCallEvent struct {
	CallID string `json:"callId"`
}

type endCallEvent struct {
	CallID string `json:"callId"`
	Reason string `json:"reason"`
}

// signalEvent covers the stateless relays: offer, answer, ice-candidate and
// webrtc-offer. The payload fields are forwarded verbatim.
type signalEvent struct {
	To        string          `json:"to"`
	RoomID    string          `json:"roomId"`
	SDP       json.RawMessage `json:"sdp"`
	Candidate json.RawMessage `json:"candidate"`
}

type voiceCallEvent struct {
	To       string         `json:"to"`
	RoomID   string         `json:"roomId"`
	Metadata map[string]any `json:"metadata"`
	Reason   string         `json:"reason"`
}

type voiceChunkEvent struct {
	To     string          `json:"to"`
	RoomID string          `json:"roomId"`
	Chunk  json.RawMessage `json:"chunk"`
}

// ack is the synchronous reply to an inbound event that requested one.
type ack struct {
	Type         string `json:"type"`
	Event        string `json:"event"`
	OK           bool   `json:"ok"`
	Data         any    `json:"data,omitempty"`
	Message      string `json:"message,omitempty"`
	ClientTempID string `json:"clientTempId,omitempty"`
}

func okAck(event string, data any) ack {
	return ack{Type: "ack", Event: event, OK: true, Data: data}
}

func errAck(event, msg string) ack {
	return ack{Type: "ack", Event: event, OK: false, Message: msg}
}
