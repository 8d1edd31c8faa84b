package forward

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"portwarden/internal/kerrors"
	"portwarden/internal/kube"
)

const (
	defaultHealthCheckInterval = 30 * time.Second
	defaultReconnectDelay      = 5 * time.Second
	defaultMaxRetries          = 5
)

// Manager is the public façade: it validates input, resolves pod names,
// and composes the registry and supervisors into start/stop/list/reconnect
// operations plus the periodic health monitor.
type Manager struct {
	client   kube.ClusterClient
	registry *Registry

	healthCheckInterval time.Duration
	reconnectDelay      time.Duration
	maxRetries          int
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithHealthCheckInterval overrides the default 30s health check cadence.
func WithHealthCheckInterval(d time.Duration) Option {
	return func(m *Manager) { m.healthCheckInterval = d }
}

// WithReconnectDelay overrides the default 5s linear backoff unit.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.reconnectDelay = d }
}

// WithMaxRetries overrides the default retry budget of 5.
func WithMaxRetries(n int) Option {
	return func(m *Manager) { m.maxRetries = n }
}

// NewManager builds a Manager bound to client, applying any options over
// the documented defaults.
func NewManager(client kube.ClusterClient, opts ...Option) *Manager {
	m := &Manager{
		client:              client,
		registry:            NewRegistry(),
		healthCheckInterval: defaultHealthCheckInterval,
		reconnectDelay:      defaultReconnectDelay,
		maxRetries:          defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartForward validates cfg, resolves its pod name, registers the
// forward, and spawns its supervisor. On any failure the registry is left
// exactly as it was found.
func (m *Manager) StartForward(cfg Config) (string, error) {
	if err := m.CheckPortAvailable(cfg.LocalPort); err != nil {
		return "", err
	}

	resolvedPod, err := m.resolvePod(cfg.Namespace, cfg.Pod)
	if err != nil {
		return "", err
	}
	cfg.Pod = resolvedPod

	id := cfg.ID()
	state := State{ID: id, Config: cfg, Status: StatusConnecting, RetryCount: 0}

	h := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
	if err := m.registry.InsertNew(state, h); err != nil {
		return "", err
	}

	m.spawnSupervisor(state, h)

	m.registry.Mutate(id, func(s State) State {
		s.Status = StatusActive
		return s
	})

	return id, nil
}

// resolvePod tries an exact get first, then the first pod whose name has
// pod as a prefix, per §4.5 step 2.
func (m *Manager) resolvePod(namespace, pod string) (string, error) {
	ctx := context.Background()
	if existing, err := m.client.GetPod(ctx, namespace, pod); err == nil && existing != nil {
		return existing.Name, nil
	}

	pods, err := m.client.ListPods(ctx, namespace)
	if err != nil {
		return "", err
	}
	for _, p := range pods {
		if strings.HasPrefix(p.Name, pod) {
			return p.Name, nil
		}
	}
	return "", kerrors.NewValidationError(fmt.Sprintf("no pod matching %q in namespace %q", pod, namespace))
}

func (m *Manager) spawnSupervisor(state State, h *handle) {
	sup := &supervisor{
		id:             state.ID,
		config:         state.Config,
		client:         m.client,
		registry:       m.registry,
		reconnectDelay: m.reconnectDelay,
		maxRetries:     m.maxRetries,
		shutdown:       h.shutdown,
		done:           h.done,
	}
	sup.spawn = func(respawnState State) {
		newHandle := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
		m.registry.replaceHandle(respawnState.ID, newHandle)
		m.spawnSupervisor(respawnState, newHandle)
	}
	go sup.run()
}

// StopForward removes the forward and signals its supervisor to exit
// without ever setting Failed.
func (m *Manager) StopForward(id string) error {
	_, h, ok := m.registry.Remove(id)
	if !ok {
		return kerrors.NewPortForwardingNotFound(id)
	}
	if h != nil {
		close(h.shutdown)
	}
	return nil
}

// ListForwards returns a snapshot of every forward.
func (m *Manager) ListForwards() []State { return m.registry.List() }

// GetForward returns a snapshot of one forward, if present.
func (m *Manager) GetForward(id string) (State, bool) { return m.registry.Get(id) }

// ListForwardsByInstance returns a snapshot of forwards sharing instanceID.
func (m *Manager) ListForwardsByInstance(instanceID string) []State {
	return m.registry.ListByInstance(instanceID)
}

// ReconnectForward is the operator-initiated path, distinct from the
// supervisor's own bind-failure arm: it respects max_retries and always
// replaces the supervisor.
func (m *Manager) ReconnectForward(id string) error {
	state, ok := m.registry.Get(id)
	if !ok {
		return kerrors.NewPortForwardingNotFound(id)
	}

	if state.RetryCount >= m.maxRetries {
		m.registry.Mutate(id, func(s State) State {
			s.Status = StatusFailed
			return s
		})
		return kerrors.NewValidationError(fmt.Sprintf("max retries exceeded for forward %s", id))
	}

	var nextState State
	m.registry.Mutate(id, func(s State) State {
		s.Status = StatusReconnecting
		s.RetryCount++
		nextState = s
		return s
	})

	if oldHandle, ok := m.registry.handleFor(id); ok && oldHandle != nil {
		close(oldHandle.shutdown)
	}

	delay := m.reconnectDelay * time.Duration(nextState.RetryCount)
	time.Sleep(delay)

	newHandle := &handle{shutdown: make(chan struct{}), done: make(chan struct{})}
	m.registry.replaceHandle(id, newHandle)
	m.spawnSupervisor(nextState, newHandle)
	return nil
}

// CheckPortAvailable performs the advisory, racy loopback bind check from
// §4.5 step 1.
func (m *Manager) CheckPortAvailable(port uint16) error {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return kerrors.NewPortInUse(port)
	}
	return l.Close()
}

// FindAvailablePort probes linearly from start up to 65535 and returns the
// first bindable port.
func (m *Manager) FindAvailablePort(start uint16) (uint16, error) {
	for port := uint32(start); port <= 65535; port++ {
		if err := m.CheckPortAvailable(uint16(port)); err == nil {
			return uint16(port), nil
		}
	}
	return 0, kerrors.NewValidationError("no available ports found")
}

// StartHealthMonitoring launches the periodic health monitor described in
// §4.5: it never removes entries and never reconnects on its own.
func (m *Manager) StartHealthMonitoring(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(m.healthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.runHealthCheck()
			}
		}
	}()
}

func (m *Manager) runHealthCheck() {
	now := time.Now()
	for _, state := range m.registry.List() {
		id := state.ID
		healthy := probeLoopback(state.Config.LocalPort)

		m.registry.Mutate(id, func(s State) State {
			t := now
			s.LastHealthCheck = &t
			if s.Status != StatusActive {
				return s
			}
			if healthy {
				s.RetryCount = 0
			} else {
				s.Status = StatusFailed
			}
			return s
		})

		if !healthy {
			slog.Warn("forward health check failed", "id", id)
		}
	}
}

func probeLoopback(port uint16) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
