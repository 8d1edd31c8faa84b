// Package kubeconfig resolves the user's kubeconfig file and its contexts.
//
// It is intentionally narrow: enumerate contexts, validate a name, and
// resolve the default config path. Parsing kubeconfig beyond that contract
// is left to k8s.io/client-go/tools/clientcmd, the same dependency the
// teacher (itegmark-nanoporter) already uses to build a *rest.Config.
package kubeconfig

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"portwarden/internal/kerrors"
)

// pathOverride lets callers redirect the kubeconfig path (tests, --kubeconfig
// flags) without a data race between writers and concurrent readers.
var pathOverride atomic.Value // string

// SetPathOverride atomically installs a kubeconfig path override. An empty
// string clears it.
func SetPathOverride(path string) {
	pathOverride.Store(path)
}

func currentOverride() string {
	v := pathOverride.Load()
	if v == nil {
		return ""
	}
	return v.(string)
}

// DefaultConfigPath returns the override path if set, otherwise the
// KUBECONFIG environment variable if set, otherwise <home>/.kube/config.
func DefaultConfigPath() (string, error) {
	if override := currentOverride(); override != "" {
		return override, nil
	}
	if kubeconfigEnv := os.Getenv("KUBECONFIG"); kubeconfigEnv != "" {
		return kubeconfigEnv, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", kerrors.NewKubeconfigError("unable to determine home directory for default kubeconfig path")
	}
	return filepath.Join(home, ".kube", "config"), nil
}

func loadConfig() (clientcmd.ClientConfig, *clientcmdConfig, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, nil, err
	}

	rules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: path}
	overrides := &clientcmd.ConfigOverrides{}
	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	raw, err := clientConfig.RawConfig()
	if err != nil {
		return nil, nil, kerrors.NewKubeconfigError("failed to read kubeconfig file: " + err.Error())
	}
	return clientConfig, &clientcmdConfig{contexts: raw.Contexts, current: raw.CurrentContext}, nil
}

// clientcmdConfig is a trimmed view of clientcmdapi.Config so callers in
// this package never need the full type.
type clientcmdConfig struct {
	contexts map[string]*clientcmdapi.Context
	current  string
}

// ListContexts returns all context names defined in the kubeconfig.
func ListContexts() ([]string, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.contexts))
	for name := range cfg.contexts {
		names = append(names, name)
	}
	return names, nil
}

// CurrentContextName returns the kubeconfig's current-context, failing if
// none is set.
func CurrentContextName() (string, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.current == "" {
		return "", kerrors.NewKubeconfigError("no current context set in kubeconfig")
	}
	return cfg.current, nil
}

// ValidateContext confirms a named context exists in the kubeconfig.
func ValidateContext(name string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.contexts[name]; !ok {
		return kerrors.NewContextNotFound(name)
	}
	return nil
}
