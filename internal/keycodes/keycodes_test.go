package keycodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownKey(t *testing.T) {
	code, err := Lookup("KEY_CAPSLOCK")
	require.NoError(t, err)
	assert.Equal(t, ByName["KEY_CAPSLOCK"], code)
}

func TestLookupUnknownKey(t *testing.T) {
	_, err := Lookup("KEY_DOES_NOT_EXIST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list-keys")
}

func TestNameRoundTrip(t *testing.T) {
	for name, code := range ByName {
		assert.Equal(t, name, Name(code))
	}
}

func TestNameFallsBackToSynthesizedToken(t *testing.T) {
	assert.Equal(t, "KEY_9999", Name(9999))
}

func TestSortedIsLexicallyOrdered(t *testing.T) {
	names := Sorted()
	for i := 1; i < len(names); i++ {
		assert.LessOrEqual(t, names[i-1], names[i])
	}
}
