// Package kerrors defines the layered error taxonomy shared across the
// manager, the cluster client and the CLI.
//
// Three layers nest strictly: PersistenceError (I/O), DomainError
// (validation/processing), and CoreError, which wraps both plus its own
// Kubernetes- and port-forwarding-specific kinds. Each type implements
// Unwrap so errors.As/errors.Is walk the chain.
package kerrors

import (
	"errors"
	"fmt"
)

// PersistenceKind enumerates the lower (I/O) layer.
type PersistenceKind int

const (
	PersistenceNotFound PersistenceKind = iota
	PersistenceInvalidInput
	PersistenceSerialization
	PersistenceGit
	PersistenceNetwork
	PersistenceAuthentication
	PersistenceDatabase
)

func (k PersistenceKind) String() string {
	switch k {
	case PersistenceNotFound:
		return "not found"
	case PersistenceInvalidInput:
		return "invalid input"
	case PersistenceSerialization:
		return "serialization error"
	case PersistenceGit:
		return "git error"
	case PersistenceNetwork:
		return "network error"
	case PersistenceAuthentication:
		return "authentication error"
	case PersistenceDatabase:
		return "database error"
	default:
		return "persistence error"
	}
}

// PersistenceError is the lower layer: I/O and storage failures.
type PersistenceError struct {
	Kind    PersistenceKind
	Message string
	Cause   error
}

func NewPersistenceError(kind PersistenceKind, message string) *PersistenceError {
	return &PersistenceError{Kind: kind, Message: message}
}

func WrapPersistenceError(kind PersistenceKind, message string, cause error) *PersistenceError {
	return &PersistenceError{Kind: kind, Message: message, Cause: cause}
}

func (e *PersistenceError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// DomainKind enumerates the middle (domain) layer.
type DomainKind int

const (
	DomainProcessing DomainKind = iota
	DomainValidation
	DomainHandlerNotFound
	DomainInvalidState
	DomainTimeout
	DomainAppConfigValidation
	DomainPortForwardingValidation
)

func (k DomainKind) String() string {
	switch k {
	case DomainProcessing:
		return "processing error"
	case DomainValidation:
		return "validation error"
	case DomainHandlerNotFound:
		return "handler not found"
	case DomainInvalidState:
		return "invalid entity state"
	case DomainTimeout:
		return "operation timeout"
	case DomainAppConfigValidation:
		return "app config validation error"
	case DomainPortForwardingValidation:
		return "port forward config validation error"
	default:
		return "domain error"
	}
}

// DomainError is the middle layer: validation and processing failures.
type DomainError struct {
	Kind    DomainKind
	Message string
	Cause   error
}

func NewDomainError(kind DomainKind, message string) *DomainError {
	return &DomainError{Kind: kind, Message: message}
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error { return e.Cause }

// CoreKind enumerates the upper layer's own error kinds (beyond the
// wrapped lower layers).
type CoreKind int

const (
	CoreKubeconfig CoreKind = iota
	CoreClusterError
	CoreConnection
	CoreContextNotFound
	CorePortForwarding
	CorePortInUse
	CorePortForwardingNotFound
	CoreValidation
	CoreBridge
)

// CoreError is the upper layer. It either wraps a lower-layer error
// directly (Cause set, Kind unused) or carries one of its own kinds.
type CoreError struct {
	Kind    CoreKind
	Message string
	Port    uint16
	Cause   error
}

func newCoreError(kind CoreKind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

func NewKubeconfigError(message string) *CoreError {
	return newCoreError(CoreKubeconfig, message)
}

func NewClusterError(message string) *CoreError {
	return newCoreError(CoreClusterError, message)
}

func NewConnectionError(message string) *CoreError {
	return newCoreError(CoreConnection, message)
}

func NewContextNotFound(name string) *CoreError {
	return newCoreError(CoreContextNotFound, name)
}

func NewPortForwardingError(message string) *CoreError {
	return newCoreError(CorePortForwarding, message)
}

func NewPortInUse(port uint16) *CoreError {
	return &CoreError{Kind: CorePortInUse, Port: port}
}

func NewPortForwardingNotFound(id string) *CoreError {
	return newCoreError(CorePortForwardingNotFound, id)
}

func NewValidationError(message string) *CoreError {
	return newCoreError(CoreValidation, message)
}

func NewBridgeError(message string) *CoreError {
	return newCoreError(CoreBridge, message)
}

// WrapPersistence lifts a persistence-layer error into the core layer,
// mirroring the Rust source's #[from] PersistenceError chain.
func WrapPersistence(err *PersistenceError) *CoreError {
	return &CoreError{Message: fmt.Sprintf("persistence error: %s", err.Error()), Cause: err}
}

// WrapDomain lifts a domain-layer error into the core layer.
func WrapDomain(err *DomainError) *CoreError {
	return &CoreError{Message: fmt.Sprintf("domain error: %s", err.Error()), Cause: err}
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return e.Message
	}
	switch e.Kind {
	case CorePortInUse:
		return fmt.Sprintf("port conflict: port %d is already in use", e.Port)
	case CoreContextNotFound:
		return fmt.Sprintf("context not found: %s", e.Message)
	case CorePortForwardingNotFound:
		return fmt.Sprintf("port forwarding not found: %s", e.Message)
	case CoreKubeconfig:
		return fmt.Sprintf("kubeconfig error: %s", e.Message)
	case CoreClusterError:
		return fmt.Sprintf("kubernetes error: %s", e.Message)
	case CoreConnection:
		return fmt.Sprintf("connection error: %s", e.Message)
	case CorePortForwarding:
		return fmt.Sprintf("port forwarding error: %s", e.Message)
	case CoreValidation:
		return fmt.Sprintf("validation error: %s", e.Message)
	case CoreBridge:
		return fmt.Sprintf("bridge error: %s", e.Message)
	default:
		if e.Cause != nil {
			return e.Message
		}
		return e.Message
	}
}

func (e *CoreError) Unwrap() error { return e.Cause }

// IsPortInUse reports whether err is a CoreError carrying CorePortInUse,
// walking the error chain.
func IsPortInUse(err error) (uint16, bool) {
	var ce *CoreError
	if errors.As(err, &ce) && ce.Kind == CorePortInUse {
		return ce.Port, true
	}
	return 0, false
}
