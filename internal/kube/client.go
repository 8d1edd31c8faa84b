// Package kube wraps the Kubernetes API handle the manager needs: pod
// enumeration, container-port extraction, and opening a bidirectional
// stream into a pod's port. It is the only package that imports
// k8s.io/client-go's transport internals.
package kube

import (
	"context"
	"io"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"portwarden/internal/kerrors"
	"portwarden/internal/kubeconfig"
)

// Client is a thin, cheaply-copyable handle bound to one context. The
// underlying clientset and *rest.Config are both safe for concurrent use,
// so every supervisor goroutine shares a single Client without
// reauthenticating. clientset is the kubernetes.Interface rather than the
// concrete *kubernetes.Clientset so tests can substitute
// k8s.io/client-go/kubernetes/fake.
type Client struct {
	clientset kubernetes.Interface
	config    *rest.Config
	context   string
}

// NewFromClientset builds a Client around an already-constructed
// clientset, bypassing kubeconfig resolution. Used by tests to wire
// k8s.io/client-go/kubernetes/fake in place of a live cluster.
func NewFromClientset(clientset kubernetes.Interface, config *rest.Config, contextName string) *Client {
	return &Client{clientset: clientset, config: config, context: contextName}
}

// ClusterClient is the narrow surface the port-forwarding manager depends
// on. Defining it here lets tests substitute a fake cluster without
// touching a live API server.
type ClusterClient interface {
	ListAllPods(ctx context.Context) ([]corev1.Pod, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error)
	OpenPortForward(namespace, pod string, remotePort uint16) (io.ReadWriteCloser, error)
}

var _ ClusterClient = (*Client)(nil)

// New builds a Client from the kubeconfig's current context.
func New() (*Client, error) {
	contextName, err := kubeconfig.CurrentContextName()
	if err != nil {
		return nil, err
	}
	return NewWithContext(contextName)
}

// NewWithContext builds a Client bound to a named context.
func NewWithContext(contextName string) (*Client, error) {
	if err := kubeconfig.ValidateContext(contextName); err != nil {
		return nil, err
	}

	path, err := kubeconfig.DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, kerrors.NewKubeconfigError("failed to build client config: " + err.Error())
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, kerrors.NewClusterError("failed to create client: " + err.Error())
	}

	return &Client{clientset: clientset, config: restConfig, context: contextName}, nil
}

// CurrentContext returns the context this client was bound to.
func (c *Client) CurrentContext() string { return c.context }

// ListContexts is a pass-through convenience the original source exposes
// alongside NewWithContext (original_source's ClusterClient::list_contexts).
func (c *Client) ListContexts() ([]string, error) {
	return kubeconfig.ListContexts()
}

// ListAllPods lists pods across every namespace.
func (c *Client) ListAllPods(ctx context.Context) ([]corev1.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, kerrors.NewClusterError("failed to list pods: " + err.Error())
	}
	return list.Items, nil
}

// ListPods lists pods in a single namespace.
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, kerrors.NewClusterError("failed to list pods in namespace " + namespace + ": " + err.Error())
	}
	return list.Items, nil
}

// GetPod fetches one pod by exact name.
func (c *Client) GetPod(ctx context.Context, namespace, name string) (*corev1.Pod, error) {
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	return pod, nil
}

// ExtractPodPorts maps each container to its valid (positive, 16-bit)
// container ports. Containers with no valid ports are omitted.
func ExtractPodPorts(pod *corev1.Pod) map[string][]uint16 {
	result := make(map[string][]uint16)
	for _, container := range pod.Spec.Containers {
		var ports []uint16
		for _, p := range container.Ports {
			if p.ContainerPort > 0 && p.ContainerPort <= 65535 {
				ports = append(ports, uint16(p.ContainerPort))
			}
		}
		if len(ports) > 0 {
			result[container.Name] = ports
		}
	}
	return result
}
