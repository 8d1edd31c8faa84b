package forward

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorOpensRemoteStreamPerConnection(t *testing.T) {
	client := newFakeClient("default", "api")
	m := NewManager(client)

	id, err := m.StartForward(Config{Namespace: "default", Pod: "api", RemotePort: 8080, LocalPort: 19500, InstanceID: "inst"})
	require.NoError(t, err)
	waitForStatus(t, m, id, StatusActive, time.Second)

	conn, err := net.Dial("tcp", "127.0.0.1:19500")
	require.NoError(t, err)
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		client.mu.Lock()
		opens := client.opens
		client.mu.Unlock()
		if opens > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	client.mu.Lock()
	opens := client.opens
	client.mu.Unlock()
	assert.Equal(t, 1, opens)

	require.NoError(t, m.StopForward(id))
}

func TestSupervisorBindFailureRespawnsUntilMaxRetries(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:19600")
	require.NoError(t, err)
	defer blocker.Close()

	client := newFakeClient("default", "api")
	m := NewManager(client, WithMaxRetries(2), WithReconnectDelay(10*time.Millisecond))

	// StartForward's advisory port check rejects the held port, so the
	// forward is registered and its supervisor spawned directly.
	cfg := Config{Namespace: "default", Pod: "api", RemotePort: 8080, LocalPort: 19600, InstanceID: "inst"}
	id := cfg.ID()
	state := State{ID: id, Config: cfg, Status: StatusConnecting}
	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
	require.NoError(t, m.registry.InsertNew(state, h))
	m.spawnSupervisor(state, h)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := m.GetForward(id); ok && state.Status == StatusFailed && state.RetryCount >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("forward never settled into Failed after exhausting retries")
}

func TestSupervisorShutdownDoesNotMarkFailed(t *testing.T) {
	client := newFakeClient("default", "api")
	m := NewManager(client)

	id, err := m.StartForward(Config{Namespace: "default", Pod: "api", RemotePort: 8080, LocalPort: 19700, InstanceID: "inst"})
	require.NoError(t, err)
	waitForStatus(t, m, id, StatusActive, time.Second)

	require.NoError(t, m.StopForward(id))

	_, ok := m.GetForward(id)
	assert.False(t, ok)
}
