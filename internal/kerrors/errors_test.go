package kerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreErrorWrapsPersistence(t *testing.T) {
	persist := NewPersistenceError(PersistenceGit, "clone failed")
	core := WrapPersistence(persist)

	var got *PersistenceError
	require.True(t, errors.As(core, &got))
	assert.Equal(t, persist, got)
	assert.Contains(t, core.Error(), "persistence error")
}

func TestIsPortInUse(t *testing.T) {
	err := NewPortInUse(9100)
	port, ok := IsPortInUse(err)
	require.True(t, ok)
	assert.Equal(t, uint16(9100), port)

	_, ok = IsPortInUse(NewPortForwardingError("boom"))
	assert.False(t, ok)
}

func TestPortInUseMessage(t *testing.T) {
	err := NewPortInUse(9100)
	assert.Equal(t, "port conflict: port 9100 is already in use", err.Error())
}
