package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"chatserver/internal/domain"
	"chatserver/internal/presence"
	"chatserver/internal/security"
	"chatserver/internal/service"
)

// Dispatcher binds physical connections to user identities and routes
// inbound events to the presence registry, the message pipeline, the friend
// service and the call relay.
type Dispatcher struct {
	hub      *Hub
	registry *presence.Registry
	offline  *presence.OfflineScheduler
	tokens   *security.TokenService
	friends  *service.FriendService
	messages *service.MessageService
	calls    *service.CallService

	allowedOrigins []string
}

func NewDispatcher(
	hub *Hub,
	registry *presence.Registry,
	offline *presence.OfflineScheduler,
	tokens *security.TokenService,
	friends *service.FriendService,
	messages *service.MessageService,
	calls *service.CallService,
	allowedOrigins []string,
) *Dispatcher {
	return &Dispatcher{
		hub:            hub,
		registry:       registry,
		offline:        offline,
		tokens:         tokens,
		friends:        friends,
		messages:       messages,
		calls:          calls,
		allowedOrigins: allowedOrigins,
	}
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken pulls an optional credential from the handshake: the
// Authorization header, the bearer subprotocol, or a token query parameter.
// An empty result is not an error; the connection just starts unbound.
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	if protocolHeader := r.Header.Get("Sec-WebSocket-Protocol"); protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") && parts[1] != "" {
			return parts[1]
		}
	}

	return r.URL.Query().Get("token")
}

// Handler returns the HTTP handler for the /ws endpoint.
func (d *Dispatcher) Handler() http.HandlerFunc {
	checkOrigin := makeCheckOrigin(d.allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(conn)
		d.hub.Add(client)
		defer d.disconnect(client)

		// A valid handshake credential binds immediately; an invalid or
		// missing one leaves the connection unbound until an explicit
		// register event. The connection is never dropped for a bad token.
		if token := extractToken(r); token != "" {
			if userID, err := d.tokens.UserID(token); err == nil {
				d.bind(r.Context(), client, userID)
			} else {
				log.Printf("ws: handshake token invalid for %s: %v", client.ID, err)
			}
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				break
			}
			d.dispatch(r.Context(), client, raw)
		}
	}
}

// bind attaches the connection to a user identity: joins the user room,
// registers with presence and announces the transition. Rebinding simply
// registers under the new identity; earlier identities stay registered
// until this connection disconnects.
func (d *Dispatcher) bind(ctx context.Context, c *Client, userID string) {
	c.UserID = userID
	if !containsString(c.boundIDs, userID) {
		c.boundIDs = append(c.boundIDs, userID)
	}
	d.hub.Join(c.ID, service.UserRoom(userID))

	cameOnline := d.registry.Register(userID, c.ID)
	reconnected := d.offline.Cancel(userID)

	// Announce only after the registry update and room join are committed.
	d.broadcastOnlineUsers()
	if cameOnline && !reconnected {
		d.friends.NotifyOnlineStatus(ctx, userID, true)
	}
}

func (d *Dispatcher) disconnect(c *Client) {
	for _, userID := range c.boundIDs {
		if wentOffline := d.registry.Unregister(userID, c.ID); !wentOffline {
			continue
		}
		uid := userID
		d.offline.Schedule(uid, func() {
			if d.registry.IsOnline(uid) {
				return
			}
			d.friends.NotifyOnlineStatus(context.Background(), uid, false)
			d.broadcastOnlineUsers()
		})
	}
	d.hub.Remove(c.ID)
}

func (d *Dispatcher) broadcastOnlineUsers() {
	d.hub.All(map[string]any{
		"type":  "online-users",
		"users": d.registry.Online(),
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, c *Client, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		log.Printf("ws: malformed event from %s", c.ID)
		return
	}

	switch env.Type {
	case "register":
		d.handleRegister(ctx, c, raw)
		return
	case "user-online":
		d.handleUserOnline(ctx, c, raw)
		return
	}

	// Every other event requires a bound identity.
	if c.UserID == "" {
		_ = c.Send(errAck(env.Type, "not registered"))
		return
	}

	switch env.Type {
	case "sendMessage":
		d.handleSendMessage(ctx, c, raw)
	case "startCall", "call-user":
		d.handleStartCall(ctx, c, env.Type, raw)
	case "accept-call":
		d.handleAcceptCall(ctx, c, raw)
	case "end-call":
		d.handleEndCall(ctx, c, raw)
	case "offer", "answer", "ice-candidate", "webrtc-offer", "webrtc-answer", "call:offer":
		d.handleSignal(c, env.Type, raw)
	case "start-voice-call", "stop-voice-call":
		d.handleVoiceCall(c, env.Type, raw)
	case "voice-chunk":
		d.handleVoiceChunk(c, raw)
	default:
		log.Printf("ws: unknown event type %q from user %s", env.Type, c.UserID)
	}
}

// handleRegister binds the connection from an explicit registration event.
// A verifiable token is preferred; a bare userId is accepted as a
// lower-trust fallback. Malformed payloads are a silent no-op.
func (d *Dispatcher) handleRegister(ctx context.Context, c *Client, raw []byte) {
	var ev registerEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}

	userID := ev.UserID
	if ev.Token != "" {
		id, err := d.tokens.UserID(ev.Token)
		if err != nil {
			log.Printf("ws: register token invalid for %s: %v", c.ID, err)
			return
		}
		userID = id
	}
	if userID == "" {
		return
	}

	d.bind(ctx, c, userID)
	_ = c.Send(map[string]any{"type": "registered"})
}

func (d *Dispatcher) handleUserOnline(ctx context.Context, c *Client, raw []byte) {
	var ev userOnlineEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.UserID == "" {
		return
	}
	d.bind(ctx, c, ev.UserID)
}

func (d *Dispatcher) handleSendMessage(ctx context.Context, c *Client, raw []byte) {
	var ev sendMessageEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		_ = c.Send(errAck("sendMessage", "malformed payload"))
		return
	}

	payload, err := d.messages.Send(ctx, c.UserID, service.SendInput{
		To:           ev.To,
		Text:         ev.Text,
		Attachments:  ev.Attachments,
		ClientTempID: ev.ClientTempID,
	})
	if err != nil {
		a := errAck("sendMessage", err.Error())
		a.ClientTempID = ev.ClientTempID
		_ = c.Send(a)
		return
	}
	a := okAck("sendMessage", payload)
	a.ClientTempID = ev.ClientTempID
	_ = c.Send(a)
}

func (d *Dispatcher) handleStartCall(ctx context.Context, c *Client, event string, raw []byte) {
	var ev startCallEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		_ = c.Send(errAck(event, "malformed payload"))
		return
	}
	call, err := d.calls.Start(ctx, c.UserID, ev.To, ev.Metadata, ev.Offer)
	if err != nil {
		_ = c.Send(errAck(event, err.Error()))
		return
	}
	_ = c.Send(okAck(event, call))
}

func (d *Dispatcher) handleAcceptCall(ctx context.Context, c *Client, raw []byte) {
	var ev acceptCallEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.CallID == "" {
		_ = c.Send(errAck("accept-call", "malformed payload"))
		return
	}
	call, err := d.calls.Accept(ctx, ev.CallID, c.UserID)
	if err != nil {
		_ = c.Send(errAck("accept-call", err.Error()))
		return
	}
	_ = c.Send(okAck("accept-call", call))
}

func (d *Dispatcher) handleEndCall(ctx context.Context, c *Client, raw []byte) {
	var ev endCallEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.CallID == "" {
		_ = c.Send(errAck("end-call", "malformed payload"))
		return
	}
	call, err := d.calls.End(ctx, ev.CallID, c.UserID, ev.Reason)
	if err != nil {
		_ = c.Send(errAck("end-call", err.Error()))
		return
	}
	_ = c.Send(okAck("end-call", call))
}

// handleSignal forwards offer/answer/ICE payloads verbatim to the addressed
// peer's connections, or to a room, with the sender identity attached.
// The webrtc-offer/answer family acks; the others are fire-and-forget like
// the wire contract requires.
func (d *Dispatcher) handleSignal(c *Client, event string, raw []byte) {
	var ev signalEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return
	}

	// call:offer is a legacy alias; it forwards under the webrtc-offer name.
	forwardType := event
	if event == "call:offer" {
		forwardType = "webrtc-offer"
	}

	fwd := map[string]any{
		"type": forwardType,
		"from": c.UserID,
	}
	if len(ev.SDP) > 0 {
		fwd["sdp"] = ev.SDP
	}
	if len(ev.Candidate) > 0 {
		fwd["candidate"] = ev.Candidate
	}

	wantsAck := event == "webrtc-offer" || event == "webrtc-answer" || event == "call:offer"
	if ev.RoomID != "" {
		d.hub.ToRoomExcept(ev.RoomID, c.ID, fwd)
		if wantsAck {
			_ = c.Send(okAck(event, nil))
		}
		return
	}
	if ev.To == "" {
		if wantsAck {
			_ = c.Send(errAck(event, domain.ErrMissingTarget.Error()))
		}
		return
	}

	conns := d.registry.Connections(ev.To)
	if len(conns) == 0 {
		if wantsAck {
			_ = c.Send(errAck(event, domain.ErrTargetOffline.Error()))
		}
		return
	}
	d.hub.ToConns(conns, fwd)
	if wantsAck {
		_ = c.Send(okAck(event, nil))
	}
}

func (d *Dispatcher) handleVoiceCall(c *Client, event string, raw []byte) {
	var ev voiceCallEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		_ = c.Send(errAck(event, "malformed payload"))
		return
	}
	if ev.To == "" && ev.RoomID == "" {
		_ = c.Send(errAck(event, domain.ErrMissingTarget.Error()))
		return
	}

	fwd := map[string]any{
		"type": event,
		"from": c.UserID,
	}
	if ev.Metadata != nil {
		fwd["metadata"] = ev.Metadata
	}
	if ev.Reason != "" {
		fwd["reason"] = ev.Reason
	}

	if ev.RoomID != "" {
		d.hub.ToRoom(ev.RoomID, fwd)
		_ = c.Send(okAck(event, nil))
		return
	}
	conns := d.registry.Connections(ev.To)
	if len(conns) == 0 {
		_ = c.Send(errAck(event, domain.ErrTargetOffline.Error()))
		return
	}
	d.hub.ToConns(conns, fwd)
	_ = c.Send(okAck(event, nil))
}

// handleVoiceChunk relays opaque audio chunks with no content inspection
// and no acknowledgment. An offline target is a silent no-op.
func (d *Dispatcher) handleVoiceChunk(c *Client, raw []byte) {
	var ev voiceChunkEvent
	if err := json.Unmarshal(raw, &ev); err != nil || len(ev.Chunk) == 0 {
		return
	}

	fwd := map[string]any{
		"type":  "voice-chunk",
		"from":  c.UserID,
		"chunk": ev.Chunk,
	}
	if ev.RoomID != "" {
		d.hub.ToRoomExcept(ev.RoomID, c.ID, fwd)
		return
	}
	if ev.To == "" {
		return
	}
	d.hub.ToConns(d.registry.Connections(ev.To), fwd)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
