package domain

import "time"

// BotUserID is the reserved identity that triggers a server-side synthetic
// reply instead of persistence and delivery.
const BotUserID = "bot"

// BotCommandPrefix marks a message text as addressed to the bot regardless
// of its target.
const BotCommandPrefix = "/bot"

// User represents an application user. Friend state lives as three identity
// lists on the user record: confirmed friends, incoming pending requests and
// outgoing pending requests.
type User struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	Name           string    `bson:"name" json:"name"`
	Email          string    `bson:"email" json:"email"`
	HashedPassword string    `bson:"hashed_password" json:"-"`
	Friends        []string  `bson:"friends" json:"friends"`
	FriendRequests []string  `bson:"friend_requests" json:"friendRequests"`
	SentRequests   []string  `bson:"sent_requests" json:"sentRequests"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// HasFriend reports whether id is in the confirmed friend list.
func (u *User) HasFriend(id string) bool {
	return containsID(u.Friends, id)
}

// HasIncomingRequest reports whether a pending request from id exists.
func (u *User) HasIncomingRequest(id string) bool {
	return containsID(u.FriendRequests, id)
}

// HasOutgoingRequest reports whether a pending request to id exists.
func (u *User) HasOutgoingRequest(id string) bool {
	return containsID(u.SentRequests, id)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RemoveID returns ids without id. The input slice is not modified.
func RemoveID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// AttachmentKind classifies an attachment for client rendering.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment describes one uploaded file referenced by a message.
type Attachment struct {
	Filename     string         `bson:"filename" json:"filename"`
	OriginalName string         `bson:"original_name,omitempty" json:"originalName,omitempty"`
	MimeType     string         `bson:"mime_type" json:"mimeType"`
	Size         int64          `bson:"size" json:"size"`
	URL          string         `bson:"url" json:"url"`
	Kind         AttachmentKind `bson:"kind" json:"type"`
}

// Message is a persisted chat message. Immutable after creation.
type Message struct {
	ID          string       `bson:"_id,omitempty" json:"_id"`
	Sender      string       `bson:"sender" json:"sender"`
	Receiver    string       `bson:"receiver" json:"receiver"`
	Text        string       `bson:"text,omitempty" json:"text,omitempty"`
	Attachments []Attachment `bson:"attachments" json:"attachments"`
	CreatedAt   time.Time    `bson:"created_at" json:"createdAt"`
}

// CallStatus is the lifecycle state of a call.
type CallStatus string

const (
	CallRinging    CallStatus = "ringing"
	CallInProgress CallStatus = "in-progress"
	CallEnded      CallStatus = "ended"
)

// Call is the historical record of one call between two users. Created on
// initiation, mutated only by the accept and end transitions, never reused.
type Call struct {
	ID         string         `bson:"_id,omitempty" json:"id"`
	From       string         `bson:"from" json:"from"`
	To         string         `bson:"to" json:"to"`
	Status     CallStatus     `bson:"status" json:"status"`
	Metadata   map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt  time.Time      `bson:"created_at" json:"createdAt"`
	AcceptedAt *time.Time     `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
	EndedAt    *time.Time     `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	Reason     string         `bson:"reason,omitempty" json:"reason,omitempty"`
}

// Other returns the participant that is not userID, or "" if userID is not a
// participant of the call.
func (c *Call) Other(userID string) string {
	switch userID {
	case c.From:
		return c.To
	case c.To:
		return c.From
	}
	return ""
}
