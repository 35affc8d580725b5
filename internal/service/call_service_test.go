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

func setupCalls(t *testing.T) (*service.CallService, *memory.CallRepo, *presence.Registry, *recorder) {
	t.Helper()
	repo := memory.NewCallRepo()
	registry := presence.NewRegistry()
	notify := &recorder{}
	svc := service.NewCallService(repo, registry, notify)
	return svc, repo, registry, notify
}

func TestCallLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, repo, registry, notify := setupCalls(t)

	registry.Register("a", "conn-a")
	registry.Register("b", "conn-b")

	// ring
	call, err := svc.Start(ctx, "a", "b", map[string]any{"video": true}, []byte(`{"sdp":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.CallRinging, call.Status)
	assert.Equal(t, "a", call.From)
	assert.Equal(t, "b", call.To)
	assert.NotEmpty(t, call.ID)

	incoming := notify.ofType(t, "incoming-call")
	require.Len(t, incoming, 1)
	assert.Equal(t, []string{"conn-b"}, incoming[0].conns)
	payload := asMap(t, incoming[0].payload)
	assert.Equal(t, call.ID, payload["callId"])
	assert.Equal(t, "a", payload["from"])
	assert.NotNil(t, payload["offer"])
	notify.reset()

	// accept
	accepted, err := svc.Accept(ctx, call.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, domain.CallInProgress, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)

	acceptedEvents := notify.ofType(t, "call-accepted")
	require.Len(t, acceptedEvents, 1)
	assert.Equal(t, []string{"conn-a"}, acceptedEvents[0].conns)
	notify.reset()

	// hang up
	ended, err := svc.End(ctx, call.ID, "a", "hangup")
	require.NoError(t, err)
	assert.Equal(t, domain.CallEnded, ended.Status)
	assert.Equal(t, "hangup", ended.Reason)
	assert.NotNil(t, ended.EndedAt)

	endedEvents := notify.ofType(t, "call-ended")
	require.Len(t, endedEvents, 1)
	assert.Equal(t, []string{"conn-b"}, endedEvents[0].conns)
	assert.Equal(t, "hangup", asMap(t, endedEvents[0].payload)["reason"])

	// history record followed the transitions
	stored, err := repo.ListForUser(ctx, "a")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.CallEnded, stored[0].Status)
}

func TestCallStartValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupCalls(t)

	_, err := svc.Start(ctx, "a", "", nil, nil)
	assert.ErrorIs(t, err, domain.ErrMissingTarget)

	_, err = svc.Start(ctx, "a", "a", nil, nil)
	assert.ErrorIs(t, err, domain.ErrSelfCall)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCallAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownCall", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		_, err := svc.Accept(ctx, "nope", "b")
		assert.ErrorIs(t, err, domain.ErrCallNotFound)
	})

	t.Run("OnlyCalleeMayAccept", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		call, err := svc.Start(ctx, "a", "b", nil, nil)
		require.NoError(t, err)

		_, err = svc.Accept(ctx, call.ID, "a")
		assert.ErrorIs(t, err, domain.ErrNotInCall)
		_, err = svc.Accept(ctx, call.ID, "c")
		assert.ErrorIs(t, err, domain.ErrNotInCall)
	})

	t.Run("AcceptTwiceConflicts", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		call, err := svc.Start(ctx, "a", "b", nil, nil)
		require.NoError(t, err)

		_, err = svc.Accept(ctx, call.ID, "b")
		require.NoError(t, err)
		_, err = svc.Accept(ctx, call.ID, "b")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})
}

func TestCallEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("EitherParticipantMayEnd", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		call, err := svc.Start(ctx, "a", "b", nil, nil)
		require.NoError(t, err)

		// the callee may end a still-ringing call (decline)
		ended, err := svc.End(ctx, call.ID, "b", "declined")
		require.NoError(t, err)
		assert.Equal(t, domain.CallEnded, ended.Status)
	})

	t.Run("OutsiderMayNotEnd", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		call, err := svc.Start(ctx, "a", "b", nil, nil)
		require.NoError(t, err)

		_, err = svc.End(ctx, call.ID, "c", "")
		assert.ErrorIs(t, err, domain.ErrNotInCall)
	})

	t.Run("EndTwiceConflicts", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		call, err := svc.Start(ctx, "a", "b", nil, nil)
		require.NoError(t, err)

		_, err = svc.End(ctx, call.ID, "a", "")
		require.NoError(t, err)
		_, err = svc.End(ctx, call.ID, "b", "")
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("UnknownCall", func(t *testing.T) {
		svc, _, _, _ := setupCalls(t)
		_, err := svc.End(ctx, "nope", "a", "")
		assert.ErrorIs(t, err, domain.ErrCallNotFound)
	})
}

func TestCallQueries(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupCalls(t)

	call, err := svc.Start(ctx, "a", "b", nil, nil)
	require.NoError(t, err)
	_, err = svc.Start(ctx, "a", "c", nil, nil)
	require.NoError(t, err)

	got, err := svc.Get(call.ID)
	require.NoError(t, err)
	assert.Equal(t, call.ID, got.ID)

	_, err = svc.Get("nope")
	assert.ErrorIs(t, err, domain.ErrCallNotFound)

	assert.Len(t, svc.ListForUser("a"), 2)
	assert.Len(t, svc.ListForUser("b"), 1)
	assert.Empty(t, svc.ListForUser("d"))
}
