package updater

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUpdater struct {
	tag   string
	calls int
}

func (s *stubUpdater) Update(_ context.Context, entityID string, updates map[string]any, _ string) (map[string]any, error) {
	s.calls++

	result := map[string]any{"id": entityID, "updated_by": s.tag}
	for k, v := range updates {
		result[k] = v
	}

	return result, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry(nil)

	assert.False(t, registry.Has("lead"))

	leads := &stubUpdater{tag: "leads"}
	registry.Register("lead", leads)

	require.True(t, registry.Has("lead"))

	got, ok := registry.Get("lead")
	require.True(t, ok)

	result, err := got.Update(context.Background(), "lead-1", map[string]any{"state": "won"}, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "won", result["state"])
	assert.Equal(t, 1, leads.calls)
}

func TestRegistry_LastWriteWins(t *testing.T) {
	registry := NewRegistry(nil)

	first := &stubUpdater{tag: "first"}
	second := &stubUpdater{tag: "second"}

	registry.Register("opportunity", first)
	registry.Register("opportunity", second)

	got, ok := registry.Get("opportunity")
	require.True(t, ok)

	result, err := got.Update(context.Background(), "opp-1", nil, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "second", result["updated_by"])
	assert.Zero(t, first.calls)
}

func TestRegistry_Types(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register("lead", &stubUpdater{})
	registry.Register("approval", &stubUpdater{})

	assert.ElementsMatch(t, []string{"lead", "approval"}, registry.Types())
}

func TestRegistry_GetUnknownType(t *testing.T) {
	registry := NewRegistry(nil)

	got, ok := registry.Get("unknown")
	assert.False(t, ok)
	assert.Nil(t, got)
}
