package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"chatserver/internal/domain"
)

// RequestOutcome tells the caller how a friend request resolved.
type RequestOutcome string

const (
	// RequestSent means a new pending request was created.
	RequestSent RequestOutcome = "sent"
	// RequestAccepted means a counter-request already existed and both were
	// resolved into a friendship.
	RequestAccepted RequestOutcome = "accepted"
)

// FriendService owns the friend-relationship state machine. All transitions
// are serialized under one mutex so a symmetric request race resolves into
// exactly one edge and never into two dangling pendings.
type FriendService struct {
	mu       sync.Mutex
	users    domain.UserRepository
	presence Presence
	notify   Notifier
}

func NewFriendService(users domain.UserRepository, presence Presence, notify Notifier) *FriendService {
	return &FriendService{
		users:    users,
		presence: presence,
		notify:   notify,
	}
}

// Request issues a friend request from fromID to toID. If a counter-request
// is already pending it is resolved into a friendship immediately.
func (s *FriendService) Request(ctx context.Context, fromID, toID string) (RequestOutcome, error) {
	if toID == "" {
		return "", domain.ErrMissingTarget
	}
	if fromID == toID {
		return "", domain.ErrSelfFriend
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	me, target, err := s.loadPair(ctx, fromID, toID)
	if err != nil {
		return "", err
	}

	if me.HasFriend(toID) {
		return "", domain.ErrAlreadyFriends
	}

	// Counter-request pending: both sides wanted this, resolve now.
	if me.HasIncomingRequest(toID) {
		if err := s.commitFriendship(ctx, me, target); err != nil {
			return "", err
		}
		s.notifyAccepted(me, target)
		return RequestAccepted, nil
	}

	if me.HasOutgoingRequest(toID) {
		return "", domain.ErrAlreadyRequested
	}

	me.SentRequests = append(me.SentRequests, toID)
	target.FriendRequests = append(target.FriendRequests, fromID)
	if err := s.savePair(ctx, me, target); err != nil {
		return "", err
	}

	s.notify.ToRoom(UserRoom(toID), map[string]any{
		"type":  "friendRequest",
		"from":  me.ID,
		"name":  me.Name,
		"email": me.Email,
	})
	return RequestSent, nil
}

// Respond accepts or rejects the pending request from fromID to actorID.
func (s *FriendService) Respond(ctx context.Context, actorID, fromID string, accept bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, requester, err := s.loadPair(ctx, actorID, fromID)
	if err != nil {
		return err
	}
	if !actor.HasIncomingRequest(fromID) {
		return domain.ErrNoSuchRequest
	}

	if accept {
		if err := s.commitFriendship(ctx, actor, requester); err != nil {
			return err
		}
		s.notifyAccepted(actor, requester)
		return nil
	}

	actor.FriendRequests = domain.RemoveID(actor.FriendRequests, fromID)
	requester.SentRequests = domain.RemoveID(requester.SentRequests, actorID)
	if err := s.savePair(ctx, actor, requester); err != nil {
		return err
	}

	s.notify.ToRoom(UserRoom(fromID), map[string]any{
		"type": "friendRejected",
		"from": actor.ID,
		"name": actor.Name,
	})
	return nil
}

// Repair adds the missing back-edge for every one-way friendship of userID
// and returns the ids that were fixed. Friendships are committed dual-sided,
// so this is a maintenance safety net for records damaged by a crash between
// the two saves.
func (s *FriendService) Repair(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if me == nil {
		return nil, domain.ErrNotFound
	}

	var repaired []string
	for _, friendID := range me.Friends {
		friend, err := s.users.GetByID(ctx, friendID)
		if err != nil {
			return repaired, fmt.Errorf("get friend %s: %w", friendID, err)
		}
		if friend == nil || friend.HasFriend(userID) {
			continue
		}
		friend.Friends = append(friend.Friends, userID)
		if err := s.users.Update(ctx, friend); err != nil {
			return repaired, fmt.Errorf("repair friend %s: %w", friendID, err)
		}
		repaired = append(repaired, friendID)
	}
	return repaired, nil
}

// FriendInfo is the list/status DTO for a single friend.
type FriendInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Online bool   `json:"online"`
}

// ListFriends returns the confirmed friends of userID with a live online
// flag from the presence registry.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]FriendInfo, error) {
	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if me == nil {
		return nil, domain.ErrNotFound
	}
	friends, err := s.users.GetByIDs(ctx, me.Friends)
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}
	out := make([]FriendInfo, 0, len(friends))
	for _, f := range friends {
		out = append(out, FriendInfo{
			ID:     f.ID,
			Name:   f.Name,
			Email:  f.Email,
			Online: s.presence.IsOnline(f.ID),
		})
	}
	return out, nil
}

// ListRequests returns the users with a pending request to userID.
func (s *FriendService) ListRequests(ctx context.Context, userID string) ([]FriendInfo, error) {
	me, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if me == nil {
		return nil, domain.ErrNotFound
	}
	requesters, err := s.users.GetByIDs(ctx, me.FriendRequests)
	if err != nil {
		return nil, fmt.Errorf("load requesters: %w", err)
	}
	out := make([]FriendInfo, 0, len(requesters))
	for _, r := range requesters {
		out = append(out, FriendInfo{ID: r.ID, Name: r.Name, Email: r.Email, Online: s.presence.IsOnline(r.ID)})
	}
	return out, nil
}

// NotifyOnlineStatus tells every friend's room that userID changed presence.
func (s *FriendService) NotifyOnlineStatus(ctx context.Context, userID string, online bool) {
	me, err := s.users.GetByID(ctx, userID)
	if err != nil || me == nil {
		log.Printf("friends: notify online status for %s: %v", userID, err)
		return
	}
	for _, friendID := range me.Friends {
		s.notify.ToRoom(UserRoom(friendID), map[string]any{
			"type":   "friendOnlineStatus",
			"userId": userID,
			"online": online,
		})
	}
}

func (s *FriendService) loadPair(ctx context.Context, aID, bID string) (*domain.User, *domain.User, error) {
	a, err := s.users.GetByID(ctx, aID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user %s: %w", aID, err)
	}
	if a == nil {
		return nil, nil, domain.ErrUnauthorized
	}
	b, err := s.users.GetByID(ctx, bID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user %s: %w", bID, err)
	}
	if b == nil {
		return nil, nil, domain.ErrNotFound
	}
	return a, b, nil
}

// commitFriendship turns any pending state between a and b into one
// confirmed edge on both records and clears both pendings.
func (s *FriendService) commitFriendship(ctx context.Context, a, b *domain.User) error {
	if !a.HasFriend(b.ID) {
		a.Friends = append(a.Friends, b.ID)
	}
	if !b.HasFriend(a.ID) {
		b.Friends = append(b.Friends, a.ID)
	}
	a.FriendRequests = domain.RemoveID(a.FriendRequests, b.ID)
	a.SentRequests = domain.RemoveID(a.SentRequests, b.ID)
	b.FriendRequests = domain.RemoveID(b.FriendRequests, a.ID)
	b.SentRequests = domain.RemoveID(b.SentRequests, a.ID)
	return s.savePair(ctx, a, b)
}

func (s *FriendService) savePair(ctx context.Context, a, b *domain.User) error {
	if err := s.users.Update(ctx, a); err != nil {
		return fmt.Errorf("save user %s: %w", a.ID, err)
	}
	if err := s.users.Update(ctx, b); err != nil {
		return fmt.Errorf("save user %s: %w", b.ID, err)
	}
	return nil
}

func (s *FriendService) notifyAccepted(a, b *domain.User) {
	s.notify.ToRoom(UserRoom(a.ID), map[string]any{
		"type": "friendAccepted",
		"from": b.ID,
		"name": b.Name,
	})
	s.notify.ToRoom(UserRoom(b.ID), map[string]any{
		"type": "friendAccepted",
		"from": a.ID,
		"name": a.Name,
	})
	s.notify.ToRoom(UserRoom(a.ID), map[string]any{"type": "friendsUpdated"})
	s.notify.ToRoom(UserRoom(b.ID), map[string]any{"type": "friendsUpdated"})
}
