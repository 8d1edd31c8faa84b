package forward

import (
	"sync"
	"sync/atomic"

	"portwarden/internal/kerrors"
	"portwarden/internal/kube"
)

// singleton is the process-wide Manager holder described in §4.6. mu
// guards who gets to construct the Manager and is shared by Initialize
// and GetOrInit so the two entry points still agree on exactly one
// winner; the atomic pointer is what makes the published value safe to
// read from any goroutine without taking a lock. Unlike a sync.Once, a
// failed construction never commits, so the next caller retries instead
// of being stuck with a permanently nil manager — mirroring the
// original's OnceLock, which is only set after KubernetesClient::new_with_context
// succeeds.
var singleton struct {
	mu      sync.Mutex
	manager atomic.Pointer[Manager]
}

// Initialize installs a manager bound to client as the process-wide
// instance. It fails if a manager has already been installed.
func Initialize(client kube.ClusterClient, opts ...Option) (*Manager, error) {
	singleton.mu.Lock()
	defer singleton.mu.Unlock()

	if singleton.manager.Load() != nil {
		return nil, kerrors.NewValidationError("manager singleton already initialized")
	}

	m := NewManager(client, opts...)
	singleton.manager.Store(m)
	return m, nil
}

// Get returns the installed manager, or nil if none has been installed
// yet.
func Get() *Manager {
	return singleton.manager.Load()
}

// IsInitialized reports whether a manager has been installed.
func IsInitialized() bool {
	return singleton.manager.Load() != nil
}

// GetOrInit returns the installed manager, constructing one bound to
// contextName on the first call. Concurrent callers observe exactly one
// winner; everyone else receives the same instance. If newClient fails,
// nothing is committed and the next call retries construction.
func GetOrInit(contextName string, newClient func(string) (kube.ClusterClient, error)) (*Manager, error) {
	if m := singleton.manager.Load(); m != nil {
		return m, nil
	}

	singleton.mu.Lock()
	defer singleton.mu.Unlock()

	if m := singleton.manager.Load(); m != nil {
		return m, nil
	}

	client, err := newClient(contextName)
	if err != nil {
		return nil, err
	}

	m := NewManager(client)
	singleton.manager.Store(m)
	return m, nil
}
