package settings

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)

	_, ok, err := s.Get("adBlocker")
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no value")

	require.NoError(t, SetBool(s, "adBlocker", false))
	require.NoError(t, s.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := GetBool(reopened, "adBlocker", true)
	require.NoError(t, err)
	assert.False(t, v, "value survives reopen")
}

func TestBoltStoreClosed(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Error(t, s.Set("k", "v"))
	_, _, err = s.Get("k")
	assert.Error(t, err)
}

func TestGetBoolDefaults(t *testing.T) {
	m := NewMemoryStore()

	v, err := GetBool(m, "adBlocker", true)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, m.Set("adBlocker", "not-a-bool"))
	v, err = GetBool(m, "adBlocker", true)
	assert.Error(t, err)
	assert.True(t, v, "bad value falls back to default")

	require.NoError(t, SetBool(m, "adBlocker", false))
	v, err = GetBool(m, "adBlocker", true)
	require.NoError(t, err)
	assert.False(t, v)
}
