package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatserver/internal/domain"
)

// CallService owns the call lifecycle (ringing, in-progress, ended) and the
// notifications that accompany each transition. The authoritative state
// lives in memory for the process lifetime; the repository write is a
// best-effort historical record, mirroring how the in-memory manager fell
// back when no database was configured.
type CallService struct {
	mu       sync.Mutex
	calls    map[string]*domain.Call
	repo     domain.CallRepository
	presence Presence
	notify   Notifier
}

func NewCallService(repo domain.CallRepository, presence Presence, notify Notifier) *CallService {
	return &CallService{
		calls:    make(map[string]*domain.Call),
		repo:     repo,
		presence: presence,
		notify:   notify,
	}
}

// Start creates a ringing call and notifies the callee's live connections
// with an incoming-call event. The optional offer is forwarded verbatim.
func (s *CallService) Start(ctx context.Context, fromID, toID string, metadata map[string]any, offer json.RawMessage) (*domain.Call, error) {
	if toID == "" {
		return nil, domain.ErrMissingTarget
	}
	if toID == fromID {
		return nil, domain.ErrSelfCall
	}

	call := &domain.Call{
		ID:        uuid.NewString(),
		From:      fromID,
		To:        toID,
		Status:    domain.CallRinging,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.calls[call.ID] = call
	snapshot := *call
	s.mu.Unlock()

	s.persist(ctx, &snapshot, true)

	event := map[string]any{
		"type":     "incoming-call",
		"callId":   call.ID,
		"from":     fromID,
		"metadata": metadata,
	}
	if len(offer) > 0 {
		event["offer"] = offer
	}
	s.notify.ToConns(s.presence.Connections(toID), event)

	return &snapshot, nil
}

// Accept moves a ringing call to in-progress. Only the callee may accept.
func (s *CallService) Accept(ctx context.Context, callID, actorID string) (*domain.Call, error) {
	s.mu.Lock()
	call, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrCallNotFound
	}
	if call.To != actorID {
		s.mu.Unlock()
		return nil, domain.ErrNotInCall
	}
	if call.Status != domain.CallRinging {
		s.mu.Unlock()
		return nil, domain.ErrConflict
	}
	now := time.Now().UTC()
	call.Status = domain.CallInProgress
	call.AcceptedAt = &now
	snapshot := *call
	s.mu.Unlock()

	s.persist(ctx, &snapshot, false)

	s.notify.ToConns(s.presence.Connections(snapshot.From), map[string]any{
		"type":   "call-accepted",
		"callId": snapshot.ID,
		"from":   actorID,
	})
	return &snapshot, nil
}

// End moves a ringing or in-progress call to ended. Either participant may
// end; the other party is notified with the stored reason.
func (s *CallService) End(ctx context.Context, callID, actorID, reason string) (*domain.Call, error) {
	s.mu.Lock()
	call, ok := s.calls[callID]
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrCallNotFound
	}
	other := call.Other(actorID)
	if other == "" {
		s.mu.Unlock()
		return nil, domain.ErrNotInCall
	}
	if call.Status == domain.CallEnded {
		s.mu.Unlock()
		return nil, domain.ErrConflict
	}
	now := time.Now().UTC()
	call.Status = domain.CallEnded
	call.EndedAt = &now
	call.Reason = reason
	snapshot := *call
	s.mu.Unlock()

	s.persist(ctx, &snapshot, false)

	s.notify.ToConns(s.presence.Connections(other), map[string]any{
		"type":   "call-ended",
		"callId": snapshot.ID,
		"from":   actorID,
		"reason": reason,
	})
	return &snapshot, nil
}

// Get returns a call by id.
func (s *CallService) Get(callID string) (*domain.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[callID]
	if !ok {
		return nil, domain.ErrCallNotFound
	}
	snapshot := *call
	return &snapshot, nil
}

// ListForUser returns all calls this process has seen for the user.
func (s *CallService) ListForUser(userID string) []*domain.Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Call
	for _, c := range s.calls {
		if c.From == userID || c.To == userID {
			snapshot := *c
			out = append(out, &snapshot)
		}
	}
	return out
}

func (s *CallService) persist(ctx context.Context, c *domain.Call, create bool) {
	if s.repo == nil {
		return
	}
	var err error
	if create {
		err = s.repo.Create(ctx, c)
	} else {
		err = s.repo.Update(ctx, c)
	}
	if err != nil {
		log.Printf("calls: persist %s: %v", c.ID, err)
	}
}
