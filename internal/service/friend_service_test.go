package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatserver/internal/domain"
	"chatserver/internal/presence"
	"chatserver/internal/service"
	"chatserver/internal/store/memory"
)

func setupFriends(t *testing.T) (*service.FriendService, *memory.UserRepo, *presence.Registry, *recorder) {
	t.Helper()
	users := memory.NewUserRepo()
	registry := presence.NewRegistry()
	notify := &recorder{}
	svc := service.NewFriendService(users, registry, notify)
	return svc, users, registry, notify
}

func mustCreateUser(t *testing.T, users *memory.UserRepo, id, name string) {
	t.Helper()
	err := users.Create(context.Background(), &domain.User{
		ID:             id,
		Name:           name,
		Email:          name + "@example.com",
		Friends:        []string{},
		FriendRequests: []string{},
		SentRequests:   []string{},
	})
	require.NoError(t, err)
}

func TestFriendRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesPendingAndNotifiesTarget", func(t *testing.T) {
		svc, users, _, notify := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		outcome, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, service.RequestSent, outcome)

		a, _ := users.GetByID(ctx, "a")
		b, _ := users.GetByID(ctx, "b")
		assert.Equal(t, []string{"b"}, a.SentRequests)
		assert.Equal(t, []string{"a"}, b.FriendRequests)
		assert.Empty(t, a.Friends)
		assert.Empty(t, b.Friends)

		reqs := notify.ofType(t, "friendRequest")
		require.Len(t, reqs, 1)
		assert.Equal(t, service.UserRoom("b"), reqs[0].room)
		assert.Equal(t, "a", asMap(t, reqs[0].payload)["from"])
		assert.Equal(t, "alice", asMap(t, reqs[0].payload)["name"])
	})

	t.Run("SelfRequestRejected", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")

		_, err := svc.Request(ctx, "a", "a")
		assert.ErrorIs(t, err, domain.ErrSelfFriend)
	})

	t.Run("MissingTargetRejected", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")

		_, err := svc.Request(ctx, "a", "")
		assert.ErrorIs(t, err, domain.ErrMissingTarget)
	})

	t.Run("UnknownTargetRejected", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")

		_, err := svc.Request(ctx, "a", "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("DuplicateRequestRejected", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		_, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		_, err = svc.Request(ctx, "a", "b")
		assert.ErrorIs(t, err, domain.ErrAlreadyRequested)
	})

	t.Run("MutualRequestAutoAccepts", func(t *testing.T) {
		svc, users, _, notify := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		_, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)

		outcome, err := svc.Request(ctx, "b", "a")
		require.NoError(t, err)
		assert.Equal(t, service.RequestAccepted, outcome)

		a, _ := users.GetByID(ctx, "a")
		b, _ := users.GetByID(ctx, "b")
		assert.Equal(t, []string{"b"}, a.Friends)
		assert.Equal(t, []string{"a"}, b.Friends)
		assert.Empty(t, a.SentRequests)
		assert.Empty(t, a.FriendRequests)
		assert.Empty(t, b.SentRequests)
		assert.Empty(t, b.FriendRequests)

		assert.Len(t, notify.ofType(t, "friendAccepted"), 2)
		assert.Len(t, notify.ofType(t, "friendsUpdated"), 2)
	})

	t.Run("AlreadyFriendsRejected", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		_, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		require.NoError(t, svc.Respond(ctx, "b", "a", true))

		_, err = svc.Request(ctx, "a", "b")
		assert.ErrorIs(t, err, domain.ErrAlreadyFriends)
		_, err = svc.Request(ctx, "b", "a")
		assert.ErrorIs(t, err, domain.ErrAlreadyFriends)
	})
}

func TestFriendRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptCommitsBothSides", func(t *testing.T) {
		svc, users, _, notify := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		_, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		notify.reset()

		require.NoError(t, svc.Respond(ctx, "b", "a", true))

		a, _ := users.GetByID(ctx, "a")
		b, _ := users.GetByID(ctx, "b")
		assert.True(t, a.HasFriend("b"))
		assert.True(t, b.HasFriend("a"))
		assert.Empty(t, a.SentRequests)
		assert.Empty(t, b.FriendRequests)

		accepted := notify.ofType(t, "friendAccepted")
		require.Len(t, accepted, 2)
		rooms := []string{accepted[0].room, accepted[1].room}
		assert.ElementsMatch(t, []string{service.UserRoom("a"), service.UserRoom("b")}, rooms)
	})

	t.Run("RejectClearsPendingAndAllowsRetry", func(t *testing.T) {
		svc, users, _, notify := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		_, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		notify.reset()

		require.NoError(t, svc.Respond(ctx, "b", "a", false))

		a, _ := users.GetByID(ctx, "a")
		b, _ := users.GetByID(ctx, "b")
		assert.Empty(t, a.SentRequests)
		assert.Empty(t, b.FriendRequests)
		assert.Empty(t, a.Friends)
		assert.Empty(t, b.Friends)

		rejected := notify.ofType(t, "friendRejected")
		require.Len(t, rejected, 1)
		assert.Equal(t, service.UserRoom("a"), rejected[0].room)

		// the rejection leaves no residue blocking a fresh request
		outcome, err := svc.Request(ctx, "a", "b")
		require.NoError(t, err)
		assert.Equal(t, service.RequestSent, outcome)
	})

	t.Run("NoPendingRequest", func(t *testing.T) {
		svc, users, _, _ := setupFriends(t)
		mustCreateUser(t, users, "a", "alice")
		mustCreateUser(t, users, "b", "bob")

		err := svc.Respond(ctx, "b", "a", true)
		assert.ErrorIs(t, err, domain.ErrNoSuchRequest)
	})
}

func TestFriendRepair(t *testing.T) {
	ctx := context.Background()

	svc, users, _, _ := setupFriends(t)
	mustCreateUser(t, users, "a", "alice")
	mustCreateUser(t, users, "b", "bob")
	mustCreateUser(t, users, "c", "carol")

	// damage the records: a lists b and c, only c lists a back
	a, _ := users.GetByID(ctx, "a")
	a.Friends = []string{"b", "c"}
	require.NoError(t, users.Update(ctx, a))
	c, _ := users.GetByID(ctx, "c")
	c.Friends = []string{"a"}
	require.NoError(t, users.Update(ctx, c))

	repaired, err := svc.Repair(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, repaired)

	b, _ := users.GetByID(ctx, "b")
	assert.True(t, b.HasFriend("a"))

	// second pass finds nothing to fix
	repaired, err = svc.Repair(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, repaired)
}

func TestFriendLists(t *testing.T) {
	ctx := context.Background()

	svc, users, registry, _ := setupFriends(t)
	mustCreateUser(t, users, "a", "alice")
	mustCreateUser(t, users, "b", "bob")
	mustCreateUser(t, users, "c", "carol")

	_, err := svc.Request(ctx, "a", "b")
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, "b", "a", true))
	_, err = svc.Request(ctx, "c", "a")
	require.NoError(t, err)

	registry.Register("b", "conn-b")

	friends, err := svc.ListFriends(ctx, "a")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "b", friends[0].ID)
	assert.True(t, friends[0].Online)

	requests, err := svc.ListRequests(ctx, "a")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "c", requests[0].ID)
	assert.False(t, requests[0].Online)
}

func TestNotifyOnlineStatus(t *testing.T) {
	ctx := context.Background()

	svc, users, _, notify := setupFriends(t)
	mustCreateUser(t, users, "a", "alice")
	mustCreateUser(t, users, "b", "bob")
	mustCreateUser(t, users, "c", "carol")

	_, err := svc.Request(ctx, "a", "b")
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, "b", "a", true))
	_, err = svc.Request(ctx, "a", "c")
	require.NoError(t, err)
	require.NoError(t, svc.Respond(ctx, "c", "a", true))
	notify.reset()

	svc.NotifyOnlineStatus(ctx, "a", true)

	events := notify.ofType(t, "friendOnlineStatus")
	require.Len(t, events, 2)
	rooms := []string{events[0].room, events[1].room}
	assert.ElementsMatch(t, []string{service.UserRoom("b"), service.UserRoom("c")}, rooms)
	for _, ev := range events {
		payload := asMap(t, ev.payload)
		assert.Equal(t, "a", payload["userId"])
		assert.Equal(t, true, payload["online"])
	}
}
