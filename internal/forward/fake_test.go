package forward

import (
	"context"
	"errors"
	"io"
	"sync"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// fakeClient is a minimal kube.ClusterClient stand-in so these tests never
// need a live cluster.
type fakeClient struct {
	mu    sync.Mutex
	pods  map[string][]corev1.Pod // namespace -> pods
	opens int
}

func newFakeClient(namespace string, podNames ...string) *fakeClient {
	pods := make([]corev1.Pod, 0, len(podNames))
	for _, name := range podNames {
		pods = append(pods, corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace}})
	}
	return &fakeClient{pods: map[string][]corev1.Pod{namespace: pods}}
}

func (f *fakeClient) ListAllPods(ctx context.Context) ([]corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []corev1.Pod
	for _, pods := range f.pods {
		all = append(all, pods...)
	}
	return all, nil
}

func (f *fakeClient) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pods[namespace], nil
}

func (f *fakeClient) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pods[namespace] {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, errors.New("pod not found")
}

// fakeConn is an in-memory io.ReadWriteCloser standing in for a remote
// port-forward stream: bytes written are immediately readable back, like
// an echo pipe.
type fakeConn struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func newFakeConn() *fakeConn {
	r, w := io.Pipe()
	return &fakeConn{r: r, w: w}
}

func (c *fakeConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *fakeConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *fakeConn) Close() error {
	c.r.Close()
	return c.w.Close()
}

func (f *fakeClient) OpenPortForward(namespace, pod string, remotePort uint16) (io.ReadWriteCloser, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return newFakeConn(), nil
}
