// Package forward implements the port-forwarding manager: the registry of
// active forwards, the per-forward supervisor that owns a listener and
// proxies bytes, and the façade that ties both to a cluster client.
package forward

import (
	"fmt"
	"time"
)

// Status is the sum type of a forward's lifecycle state.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusActive       Status = "active"
	StatusFailed       Status = "failed"
	StatusReconnecting Status = "reconnecting"
)

// Config is the immutable-once-accepted description of one forward. Pod
// may be a prefix of the real pod name at submission time; the manager
// replaces it with the resolved name before the config is stored.
type Config struct {
	Namespace  string
	Pod        string
	RemotePort uint16
	LocalPort  uint16
	InstanceID string
}

// ID derives the canonical forward identifier from an already-resolved
// config.
func (c Config) ID() string {
	return fmt.Sprintf("%s-%s-%d", c.InstanceID, c.Pod, c.LocalPort)
}

// State is the registry's record for one forward. Values handed out by
// the registry (Get, List) are detached copies; mutating one has no
// effect on the stored entry.
type State struct {
	ID              string
	Config          Config
	Status          Status
	LastHealthCheck *time.Time
	RetryCount      int
}

func (s State) clone() State {
	clone := s
	if s.LastHealthCheck != nil {
		t := *s.LastHealthCheck
		clone.LastHealthCheck = &t
	}
	return clone
}
