package principal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver()
	require.NoError(t, r.RegisterUser("user_alice", "Alice"))
	require.NoError(t, r.RegisterAgent("agent_finance", "Finance Agent"))

	t.Run("resolves user", func(t *testing.T) {
		p, err := r.Resolve("user_alice")
		require.NoError(t, err)
		assert.Equal(t, KindUser, p.Kind)
		assert.True(t, p.IsUser())
	})

	t.Run("resolves agent", func(t *testing.T) {
		p, err := r.Resolve("agent_finance")
		require.NoError(t, err)
		assert.Equal(t, KindAgent, p.Kind)
		assert.False(t, p.IsUser())
	})

	t.Run("unknown ID", func(t *testing.T) {
		_, err := r.Resolve("user_nobody")
		assert.ErrorIs(t, err, ErrUnknown)
	})

	t.Run("empty ID", func(t *testing.T) {
		_, err := r.Resolve("")
		assert.ErrorIs(t, err, ErrEmptyID)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		err := r.RegisterAgent("user_alice", "imposter")
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("empty registration", func(t *testing.T) {
		err := r.RegisterUser("", "no id")
		assert.ErrorIs(t, err, ErrEmptyID)
	})
}
