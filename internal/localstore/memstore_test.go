package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_SetGetRemove(t *testing.T) {
	store := NewMemBackend().OpenTab()

	require.NoError(t, store.Set("k", "v"))
	v, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, store.Remove("k"))
	_, ok = store.Get("k")
	assert.False(t, ok)
}

func TestMemStore_TabsShareData(t *testing.T) {
	backend := NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	require.NoError(t, tabA.Set("k", "v"))
	v, ok := tabB.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemStore_WriterIsNotNotified(t *testing.T) {
	backend := NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	var aSeen, bSeen []string
	subA := tabA.OnExternalChange("k", func(v string) { aSeen = append(aSeen, v) })
	defer subA.Unsubscribe()
	subB := tabB.OnExternalChange("k", func(v string) { bSeen = append(bSeen, v) })
	defer subB.Unsubscribe()

	require.NoError(t, tabA.Set("k", "v1"))

	assert.Empty(t, aSeen, "a tab never observes its own writes")
	assert.Equal(t, []string{"v1"}, bSeen)
}

func TestMemStore_RemoveNotifiesOtherTabs(t *testing.T) {
	backend := NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	require.NoError(t, tabA.Set("k", "v"))

	var seen []string
	sub := tabB.OnExternalChange("k", func(v string) { seen = append(seen, v) })
	defer sub.Unsubscribe()

	require.NoError(t, tabA.Remove("k"))
	assert.Equal(t, []string{""}, seen)

	// Removing a missing key is quiet
	require.NoError(t, tabA.Remove("k"))
	assert.Equal(t, []string{""}, seen)
}

func TestMemStore_UnsubscribeStopsNotifications(t *testing.T) {
	backend := NewMemBackend()
	tabA := backend.OpenTab()
	tabB := backend.OpenTab()

	var seen []string
	sub := tabB.OnExternalChange("k", func(v string) { seen = append(seen, v) })
	sub.Unsubscribe()

	require.NoError(t, tabA.Set("k", "v"))
	assert.Empty(t, seen)
}
