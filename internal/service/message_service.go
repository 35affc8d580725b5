package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// MessageService validates, persists and fans out chat messages.
type MessageService struct {
	messages domain.MessageRepository
	presence Presence
	notify   Notifier
}

func NewMessageService(messages domain.MessageRepository, presence Presence, notify Notifier) *MessageService {
	return &MessageService{
		messages: messages,
		presence: presence,
		notify:   notify,
	}
}

// SendInput is the normalized send request, shared by the WebSocket and REST
// entry points.
type SendInput struct {
	To           string
	Text         string
	Attachments  []domain.Attachment
	ClientTempID string
}

// MessagePayload is the wire shape of a delivered message. The client
// idempotency token is echoed so the sender can reconcile its optimistic
// local copy, and it is never persisted.
type MessagePayload struct {
	ID           string              `json:"_id"`
	Sender       string              `json:"sender"`
	Receiver     string              `json:"receiver"`
	Text         string              `json:"text,omitempty"`
	Attachments  []domain.Attachment `json:"attachments"`
	CreatedAt    time.Time           `json:"createdAt"`
	ClientTempID string              `json:"clientTempId,omitempty"`
}

type newMessageEvent struct {
	Type string `json:"type"`
	MessagePayload
}

type botReplyEvent struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

// Send runs the full pipeline: validate, bot short-circuit, persist, fan
// out. The returned payload is the synchronous acknowledgment for the
// sender. Persistence happens before any delivery; a persistence failure
// aborts with no fanout. Delivery itself is at-least-once per recipient
// (direct connections plus the user room) and individual failures are
// swallowed.
func (s *MessageService) Send(ctx context.Context, senderID string, in SendInput) (*MessagePayload, error) {
	if in.To == "" {
		return nil, domain.ErrMissingTarget
	}
	if in.Text == "" && len(in.Attachments) == 0 {
		return nil, domain.ErrEmptyMessage
	}
	if in.To == senderID && in.To != domain.BotUserID {
		return nil, domain.ErrSelfMessage
	}

	if in.To == domain.BotUserID || strings.HasPrefix(strings.TrimSpace(in.Text), domain.BotCommandPrefix) {
		return s.botReply(senderID, in.Text), nil
	}

	msg := &domain.Message{
		Sender:      senderID,
		Receiver:    in.To,
		Text:        in.Text,
		Attachments: in.Attachments,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	payload := MessagePayload{
		ID:           msg.ID,
		Sender:       msg.Sender,
		Receiver:     msg.Receiver,
		Text:         msg.Text,
		Attachments:  msg.Attachments,
		CreatedAt:    msg.CreatedAt,
		ClientTempID: in.ClientTempID,
	}
	event := newMessageEvent{Type: "newMessage", MessagePayload: payload}

	// Direct sockets first, then the user rooms as a redundancy path against
	// a stale connection list. A connection present in both receives the
	// message twice; clients dedupe by message id.
	s.notify.ToConns(s.presence.Connections(in.To), event)
	s.notify.ToRoom(UserRoom(in.To), event)
	s.notify.ToConns(s.presence.Connections(senderID), event)
	s.notify.ToRoom(UserRoom(senderID), event)

	return &payload, nil
}

// botReply synthesizes a reply, delivers it to the sender's own connections
// only and returns an acknowledgment carrying a locally generated id.
// Nothing is persisted.
func (s *MessageService) botReply(senderID, text string) *MessagePayload {
	stripped := strings.TrimSpace(strings.Replace(text, domain.BotCommandPrefix, "", 1))
	reply := fmt.Sprintf("Bot: I received your message: %q", stripped)

	s.notify.ToConns(s.presence.Connections(senderID), botReplyEvent{
		Type: "receiveMessage",
		From: domain.BotUserID,
		Text: reply,
	})

	return &MessagePayload{
		ID:          uuid.NewString(),
		Sender:      domain.BotUserID,
		Receiver:    senderID,
		Text:        reply,
		Attachments: []domain.Attachment{},
		CreatedAt:   time.Now().UTC(),
	}
}

// History returns all messages between userID and friendID in chronological
// order.
func (s *MessageService) History(ctx context.Context, userID, friendID string) ([]*domain.Message, error) {
	if friendID == "" {
		return nil, domain.ErrMissingTarget
	}
	msgs, err := s.messages.ListBetween(ctx, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
