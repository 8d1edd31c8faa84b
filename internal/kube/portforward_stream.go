package kube

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"k8s.io/apimachinery/pkg/util/httpstream"
	"k8s.io/client-go/transport/spdy"

	"portwarden/internal/kerrors"
)

// The portforward.k8s.io SPDY sub-protocol exchanges two streams per
// forwarded connection: an "error" stream the apiserver uses to report
// failures establishing the upstream socket, and a "data" stream carrying
// the raw bytes. Header names below match the protocol the kubelet speaks;
// client-go's own portforward package keeps these unexported, so the low
// level open here redeclares them rather than reusing a listener-owning
// abstraction that does not fit the supervisor's bind-its-own-socket model.
const (
	streamTypeHeader = "streamType"
	streamTypeError  = "error"
	streamTypeData   = "data"
	portHeader       = "port"
	portForwardIDKey = "requestID"
)

// stream bundles the data and error sub-streams for one forwarded
// connection and satisfies io.ReadWriteCloser for the supervisor's copy
// pumps. A non-empty message on the error sub-stream means the apiserver
// could not establish the upstream socket (e.g. "remote port not open");
// without surfacing it, such a failure looks like a data stream that
// simply EOFs immediately.
type stream struct {
	conn        httpstream.Connection
	dataStream  httpstream.Stream
	errorStream httpstream.Stream
	errCh       chan error

	mu        sync.Mutex
	remoteErr error
}

// checkRemoteErr drains errCh without blocking and caches whatever the
// error-stream reader found, so every Read after the first sees it too.
func (s *stream) checkRemoteErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remoteErr == nil {
		select {
		case err, ok := <-s.errCh:
			if ok && err != nil {
				s.remoteErr = err
			}
		default:
		}
	}
	return s.remoteErr
}

func (s *stream) Read(p []byte) (int, error) {
	if err := s.checkRemoteErr(); err != nil {
		return 0, err
	}
	return s.dataStream.Read(p)
}

func (s *stream) Write(p []byte) (int, error) { return s.dataStream.Write(p) }

func (s *stream) Close() error {
	err := s.dataStream.Close()
	s.conn.Close()
	return err
}

// OpenPortForward dials a fresh SPDY upgrade to the apiserver's portforward
// sub-resource and opens one data stream bound to remotePort. Each call
// owns its own httpstream.Connection; nothing is shared across forwarded
// connections, mirroring task.rs's pods_clone.portforward(...).await per
// accepted socket.
func (c *Client) OpenPortForward(namespace, pod string, remotePort uint16) (io.ReadWriteCloser, error) {
	req := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("portforward")

	transport, upgrader, err := spdy.RoundTripperFor(c.config)
	if err != nil {
		return nil, kerrors.NewConnectionError("failed to build spdy round tripper: " + err.Error())
	}

	dialer := spdy.NewDialer(upgrader, &http.Client{Transport: transport}, http.MethodPost, req.URL())
	conn, _, err := dialer.Dial(portForwardProtocolV1Name)
	if err != nil {
		return nil, kerrors.NewConnectionError(fmt.Sprintf("failed to dial port forward for pod %s/%s: %s", namespace, pod, err))
	}

	requestID := "0"
	headers := http.Header{}
	headers.Set(portHeader, strconv.Itoa(int(remotePort)))
	headers.Set(portForwardIDKey, requestID)

	headers.Set(streamTypeHeader, streamTypeError)
	errorStream, err := conn.CreateStream(headers)
	if err != nil {
		conn.Close()
		return nil, kerrors.NewConnectionError("failed to create error stream: " + err.Error())
	}
	errorStream.Close()

	errCh := make(chan error, 1)
	go func() {
		message, err := io.ReadAll(errorStream)
		switch {
		case err != nil:
			errCh <- kerrors.NewConnectionError("error reading error stream: " + err.Error())
		case len(message) > 0:
			errCh <- kerrors.NewConnectionError(string(message))
		default:
			errCh <- nil
		}
		close(errCh)
	}()

	headers.Set(streamTypeHeader, streamTypeData)
	dataStream, err := conn.CreateStream(headers)
	if err != nil {
		conn.Close()
		return nil, kerrors.NewConnectionError("failed to create data stream: " + err.Error())
	}

	return &stream{conn: conn, dataStream: dataStream, errorStream: errorStream, errCh: errCh}, nil
}

const portForwardProtocolV1Name = "portforward.k8s.io"
