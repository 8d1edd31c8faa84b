package forward

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"portwarden/internal/kube"
)

// supervisor owns one forward's listener, accept loop, and status
// transitions after the manager has registered it. It never holds the
// registry lock across a suspension point: every status change is one
// Mutate call.
type supervisor struct {
	id       string
	config   Config
	client   kube.ClusterClient
	registry *Registry

	reconnectDelay time.Duration
	maxRetries     int

	shutdown chan struct{}
	done     chan struct{}

	spawn func(State) // spawns a replacement supervisor for the reconnect-on-bind-failure arm
}

// run executes the full supervisor algorithm: bind, serve, and on bind
// failure either sleep-then-respawn or give up once retries are
// exhausted. It closes done on every exit path.
func (s *supervisor) run() {
	defer close(s.done)

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.config.LocalPort))
	if err != nil {
		s.onBindFailure(err)
		return
	}
	defer listener.Close()

	s.registry.Mutate(s.id, func(state State) State {
		state.Status = StatusActive
		return state
	})

	s.acceptLoop(listener)
}

// onBindFailure implements §4.4 step 2: mark Failed, and if the retry
// budget allows it, sleep reconnect_delay*retry_count then respawn.
func (s *supervisor) onBindFailure(bindErr error) {
	slog.Warn("forward listener bind failed", "id", s.id, "error", bindErr)

	var retryCount int
	s.registry.Mutate(s.id, func(state State) State {
		state.Status = StatusFailed
		retryCount = state.RetryCount
		return state
	})

	if retryCount >= s.maxRetries {
		return
	}

	delay := s.reconnectDelay * time.Duration(retryCount)
	select {
	case <-time.After(delay):
	case <-s.shutdown:
		return
	}

	var nextState State
	ok := s.registry.Mutate(s.id, func(state State) State {
		state.Status = StatusReconnecting
		state.RetryCount++
		nextState = state
		return state
	})
	if !ok {
		return
	}
	s.spawn(nextState)
}

// acceptLoop waits for shutdown, a connection, or an accept error on
// every iteration.
func (s *supervisor) acceptLoop(listener net.Listener) {
	connCh := make(chan net.Conn)
	errCh := make(chan error, 1)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				errCh <- err
				return
			}
			connCh <- conn
		}
	}()

	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-connCh:
			go s.proxyConnection(conn)
		case err := <-errCh:
			slog.Warn("forward accept loop terminated", "id", s.id, "error", err)
			s.registry.Mutate(s.id, func(state State) State {
				if state.Status == StatusActive {
					state.Status = StatusFailed
				}
				return state
			})
			return
		}
	}
}

// proxyConnection implements §4.4.1: one fresh remote stream per accepted
// connection, two concurrent copy pumps, and a failure here never touches
// the supervisor's status.
func (s *supervisor) proxyConnection(local net.Conn) {
	defer local.Close()

	remote, err := s.client.OpenPortForward(s.config.Namespace, s.config.Pod, s.config.RemotePort)
	if err != nil {
		slog.Warn("forward connection-proxy failed to open remote stream", "id", s.id, "error", err)
		return
	}
	defer remote.Close()

	done := make(chan struct{}, 2)
	go pump(local, remote, done)
	go pump(remote, local, done)
	<-done
}

// pump copies from src to dst until either side errs or closes, then
// notifies done. Both directions of a connection share one such pair;
// when one pump exits its sibling's next read/write will fail because
// the caller closes both ends once either pump finishes.
func pump(dst io.Writer, src io.Reader, done chan<- struct{}) {
	_, _ = io.Copy(dst, src)
	done <- struct{}{}
}
