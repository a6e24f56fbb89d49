package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour)

	sess := Session{
		UserID:   "u1",
		Raw:      RawUser{Papel: "Admin"},
		IssuedAt: time.Now(),
	}
	store.Init(sess)

	t.Run("get returns the registered session", func(t *testing.T) {
		got, ok := store.Get("u1")
		assert.True(t, ok)
		assert.Equal(t, sess.Raw.Papel, got.Raw.Papel)
	})

	t.Run("unknown user misses", func(t *testing.T) {
		_, ok := store.Get("nobody")
		assert.False(t, ok)
	})

	t.Run("init replaces an existing session", func(t *testing.T) {
		store.Init(Session{UserID: "u1", Raw: RawUser{Papel: "Aluno"}})
		got, ok := store.Get("u1")
		assert.True(t, ok)
		assert.Equal(t, "Aluno", got.Raw.Papel)
	})

	t.Run("revoke removes the session", func(t *testing.T) {
		store.Revoke("u1")
		_, ok := store.Get("u1")
		assert.False(t, ok)
	})

	t.Run("teardown clears everything", func(t *testing.T) {
		store.Init(Session{UserID: "a"})
		store.Init(Session{UserID: "b"})
		store.Teardown()
		_, okA := store.Get("a")
		_, okB := store.Get("b")
		assert.False(t, okA)
		assert.False(t, okB)
	})
}

func TestSessionStore_expiry(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	store.Init(Session{UserID: "u1"})

	time.Sleep(30 * time.Millisecond)
	_, ok := store.Get("u1")
	assert.False(t, ok)
}
