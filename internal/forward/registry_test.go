package forward

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(id string) State {
	return State{
		ID:     id,
		Config: Config{Namespace: "default", Pod: "api", RemotePort: 8080, LocalPort: 9000, InstanceID: "inst"},
		Status: StatusConnecting,
	}
}

func TestRegistryInsertGetRemove(t *testing.T) {
	r := NewRegistry()
	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}

	require.NoError(t, r.InsertNew(sampleState("inst-api-9000"), h))

	got, ok := r.Get("inst-api-9000")
	require.True(t, ok)
	assert.Equal(t, StatusConnecting, got.Status)

	state, removedHandle, ok := r.Remove("inst-api-9000")
	require.True(t, ok)
	assert.Equal(t, "inst-api-9000", state.ID)
	assert.Same(t, h, removedHandle)

	_, ok = r.Get("inst-api-9000")
	assert.False(t, ok)

	_, _, ok = r.Remove("inst-api-9000")
	assert.False(t, ok)
}

func TestRegistryInsertDuplicateRejected(t *testing.T) {
	r := NewRegistry()
	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}

	require.NoError(t, r.InsertNew(sampleState("dup"), h))
	err := r.InsertNew(sampleState("dup"), h)
	assert.Error(t, err)
}

func TestRegistryGetReturnsDetachedCopy(t *testing.T) {
	r := NewRegistry()
	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
	require.NoError(t, r.InsertNew(sampleState("id"), h))

	got, ok := r.Get("id")
	require.True(t, ok)
	got.Status = StatusFailed

	still, ok := r.Get("id")
	require.True(t, ok)
	assert.Equal(t, StatusConnecting, still.Status)
}

func TestRegistryMutateAndListByInstance(t *testing.T) {
	r := NewRegistry()
	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
	require.NoError(t, r.InsertNew(sampleState("inst-api-9000"), h))

	ok := r.Mutate("inst-api-9000", func(s State) State {
		s.Status = StatusActive
		s.RetryCount = 1
		return s
	})
	require.True(t, ok)

	got, _ := r.Get("inst-api-9000")
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, 1, got.RetryCount)

	byInstance := r.ListByInstance("inst")
	require.Len(t, byInstance, 1)
	assert.Equal(t, "inst-api-9000", byInstance[0].ID)

	assert.Empty(t, r.ListByInstance("other"))
}

func TestRegistryMutateMissingIsNoop(t *testing.T) {
	r := NewRegistry()
	ok := r.Mutate("missing", func(s State) State { return s })
	assert.False(t, ok)
}
