package interview

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGetRemove(t *testing.T) {
	store := NewMemoryStore()

	_, ok := store.Get("c1")
	assert.False(t, ok)

	session := store.Create("c1")
	require.NotNil(t, session)
	assert.Equal(t, "c1", session.ClientID())
	assert.Equal(t, PhaseIntroduction, session.Phase())
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get("c1")
	require.True(t, ok)
	assert.Same(t, session, got)

	store.Remove("c1")
	_, ok = store.Get("c1")
	assert.False(t, ok)
	assert.True(t, session.Closed())
	assert.Equal(t, 0, store.Len())

	// Idempotent
	assert.NotPanics(t, func() { store.Remove("c1") })
}

func TestMemoryStore_CreateReplacesExisting(t *testing.T) {
	store := NewMemoryStore()

	first := store.Create("c1")
	second := store.Create("c1")

	assert.NotSame(t, first, second)
	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, 1, store.Len())

	got, ok := store.Get("c1")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%10))
			store.Create(id)
			store.Get(id)
			if i%3 == 0 {
				store.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 10)
}

func TestSession_StateIsDeepCopy(t *testing.T) {
	store := NewMemoryStore()
	session := store.Create("c1")

	resume := "resume"
	require.NoError(t, session.commit(func(s *Session) {
		s.resumeText = &resume
		s.skills = []string{"Go"}
		s.appendTurn("hi", "hello")
	}))

	state := session.State()
	state.Skills[0] = "Rust"
	*state.ResumeText = "changed"
	state.History[0].Text = "mutated"

	fresh := session.State()
	assert.Equal(t, []string{"Go"}, fresh.Skills)
	assert.Equal(t, "resume", *fresh.ResumeText)
	assert.Equal(t, "hi", fresh.History[0].Text)
	assert.False(t, fresh.UpdatedAt.Before(fresh.CreatedAt))
}

func TestSession_CommitAfterClose(t *testing.T) {
	store := NewMemoryStore()
	session := store.Create("c1")
	store.Remove("c1")

	err := session.commit(func(s *Session) { s.phase = PhaseFeedback })
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, PhaseIntroduction, session.Phase())
}

func TestParseSkills(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Python, SQL, Docker", []string{"Python", "SQL", "Docker"}},
		{"  Go ,, Kubernetes ,", []string{"Go", "Kubernetes"}},
		{"single", []string{"single"}},
		{" , , ", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSkills(tt.input))
		})
	}
}
