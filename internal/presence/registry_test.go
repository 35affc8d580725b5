package presence_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"chatserver/internal/presence"
)

func TestRegistry(t *testing.T) {
	t.Run("FirstConnectionCameOnline", func(t *testing.T) {
		r := presence.NewRegistry()

		assert.True(t, r.Register("alice", "c1"))
		assert.False(t, r.Register("alice", "c2"))
		assert.True(t, r.IsOnline("alice"))
		assert.ElementsMatch(t, []string{"c1", "c2"}, r.Connections("alice"))
	})

	t.Run("RegisterIsIdempotent", func(t *testing.T) {
		r := presence.NewRegistry()

		r.Register("alice", "c1")
		assert.False(t, r.Register("alice", "c1"))
		assert.ElementsMatch(t, []string{"c1"}, r.Connections("alice"))

		// one unregister fully removes the user despite the double register
		assert.True(t, r.Unregister("alice", "c1"))
		assert.False(t, r.IsOnline("alice"))
	})

	t.Run("LastConnectionWentOffline", func(t *testing.T) {
		r := presence.NewRegistry()

		r.Register("alice", "c1")
		r.Register("alice", "c2")

		assert.False(t, r.Unregister("alice", "c1"))
		assert.True(t, r.IsOnline("alice"))
		assert.True(t, r.Unregister("alice", "c2"))
		assert.False(t, r.IsOnline("alice"))
		assert.Nil(t, r.Connections("alice"))
	})

	t.Run("UnregisterUnknownIsNoop", func(t *testing.T) {
		r := presence.NewRegistry()

		assert.False(t, r.Unregister("ghost", "c1"))

		r.Register("alice", "c1")
		assert.False(t, r.Unregister("alice", "nope"))
		assert.True(t, r.IsOnline("alice"))
	})

	t.Run("EmptyIDsRejected", func(t *testing.T) {
		r := presence.NewRegistry()

		assert.False(t, r.Register("", "c1"))
		assert.False(t, r.Register("alice", ""))
		assert.Empty(t, r.Online())
	})

	t.Run("OnlineIsSorted", func(t *testing.T) {
		r := presence.NewRegistry()

		r.Register("carol", "c3")
		r.Register("alice", "c1")
		r.Register("bob", "c2")

		assert.Equal(t, []string{"alice", "bob", "carol"}, r.Online())
	})

	t.Run("SnapshotCopiesState", func(t *testing.T) {
		r := presence.NewRegistry()

		r.Register("alice", "c2")
		r.Register("alice", "c1")

		snap := r.Snapshot()
		assert.Equal(t, map[string][]string{"alice": {"c1", "c2"}}, snap)

		snap["alice"] = nil
		assert.ElementsMatch(t, []string{"c1", "c2"}, r.Connections("alice"))
	})
}

func TestRegistryConcurrent(t *testing.T) {
	r := presence.NewRegistry()

	const users = 8
	const connsPerUser = 16

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(u, c int) {
				defer wg.Done()
				uid := fmt.Sprintf("user-%d", u)
				cid := fmt.Sprintf("conn-%d-%d", u, c)
				r.Register(uid, cid)
				r.IsOnline(uid)
			}(u, c)
		}
	}
	wg.Wait()

	assert.Len(t, r.Online(), users)
	for u := 0; u < users; u++ {
		assert.Len(t, r.Connections(fmt.Sprintf("user-%d", u)), connsPerUser)
	}

	wg = sync.WaitGroup{}
	offline := make([]bool, 0)
	var mu sync.Mutex
	for u := 0; u < users; u++ {
		for c := 0; c < connsPerUser; c++ {
			wg.Add(1)
			go func(u, c int) {
				defer wg.Done()
				uid := fmt.Sprintf("user-%d", u)
				cid := fmt.Sprintf("conn-%d-%d", u, c)
				if r.Unregister(uid, cid) {
					mu.Lock()
					offline = append(offline, true)
					mu.Unlock()
				}
			}(u, c)
		}
	}
	wg.Wait()

	// exactly one unregister per user observed the offline transition
	assert.Len(t, offline, users)
	assert.Empty(t, r.Online())
}
