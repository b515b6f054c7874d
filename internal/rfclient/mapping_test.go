package rfclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingRegistryAddLookupRemove(t *testing.T) {
	r := NewMappingRegistry(DefaultMaxMappings)
	require.NoError(t, r.Add(8080, "127.0.0.1", 80))

	m, ok := r.Lookup(8080)
	require.True(t, ok)
	assert.Equal(t, Mapping{ServerPort: 8080, ClientAddr: "127.0.0.1", ClientPort: 80}, m)

	r.Remove(8080)
	_, ok = r.Lookup(8080)
	assert.False(t, ok)
}

func TestMappingRegistryAddIsIdempotentForSamePort(t *testing.T) {
	r := NewMappingRegistry(1)
	require.NoError(t, r.Add(8080, "127.0.0.1", 80))
	require.NoError(t, r.Add(8080, "127.0.0.1", 81), "re-adding the same server port must not hit capacity")

	m, _ := r.Lookup(8080)
	assert.Equal(t, 81, m.ClientPort)
}

func TestMappingRegistryCapacity(t *testing.T) {
	r := NewMappingRegistry(1)
	require.NoError(t, r.Add(8080, "127.0.0.1", 80))
	err := r.Add(9090, "127.0.0.1", 90)
	assert.Error(t, err)
}

func TestMappingRegistryListSortedByServerPort(t *testing.T) {
	r := NewMappingRegistry(DefaultMaxMappings)
	require.NoError(t, r.Add(9090, "a", 1))
	require.NoError(t, r.Add(8080, "b", 2))
	require.NoError(t, r.Add(7070, "c", 3))

	got := r.List()
	require.Len(t, got, 3)
	assert.Equal(t, []int{7070, 8080, 9090}, []int{got[0].ServerPort, got[1].ServerPort, got[2].ServerPort})
}
