// Package workstation loads and saves the user's app-reference list at
// ~/.roro/config.json: the set of git-backed apps the sync CLI command
// knows how to resolve and refresh.
package workstation

import (
	"encoding/json"
	"os"
	"path/filepath"

	"portwarden/internal/kerrors"
)

const defaultSyncIntervalMillis = 300

// AppReference is one entry in the workstation config array.
type AppReference struct {
	Name           string  `json:"name"`
	GitURL         string  `json:"gitUrl"`
	LocalPath      *string `json:"localPath,omitempty"`
	SyncInterval   *uint64 `json:"syncInterval,omitempty"`
	KubectlContext *string `json:"kubectlContext,omitempty"`
}

// ResolvedLocalPath returns LocalPath if set, otherwise
// <home>/.roro/remote/<name>.
func (a AppReference) ResolvedLocalPath() (string, error) {
	if a.LocalPath != nil {
		return *a.LocalPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", kerrors.WrapPersistence(kerrors.NewPersistenceError(kerrors.PersistenceInvalidInput,
			"cannot determine home directory"))
	}
	return filepath.Join(home, ".roro", "remote", a.Name), nil
}

// ResolvedSyncInterval returns SyncInterval if set, otherwise the 300ms
// default.
func (a AppReference) ResolvedSyncInterval() uint64 {
	if a.SyncInterval != nil {
		return *a.SyncInterval
	}
	return defaultSyncIntervalMillis
}

// Config is the entire ~/.roro/config.json array.
type Config []AppReference

// FindByName returns the entry named name, if any.
func (c Config) FindByName(name string) (AppReference, bool) {
	for _, app := range c {
		if app.Name == name {
			return app, true
		}
	}
	return AppReference{}, false
}

// ConfigPath returns ~/.roro/config.json, failing with a PersistenceError
// wrapped in a CoreError if the home directory cannot be determined.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", kerrors.WrapPersistence(kerrors.NewPersistenceError(kerrors.PersistenceInvalidInput,
			"cannot determine home directory. HOME or USERPROFILE environment variable must be set"))
	}
	return filepath.Join(home, ".roro", "config.json"), nil
}

// LoadConfig reads the workstation config, creating it (as an empty JSON
// array) on first use if the file does not exist.
func LoadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		empty := Config{}
		if writeErr := SaveConfig(empty); writeErr != nil {
			return nil, writeErr
		}
		return empty, nil
	}
	if err != nil {
		return nil, kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceSerialization,
			"failed to read configuration file "+path, err))
	}

	var cfg Config
	if err := json.Unmarshal(contents, &cfg); err != nil {
		return nil, kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceSerialization,
			"failed to parse configuration file "+path, err))
	}
	return cfg, nil
}

// SaveConfig writes cfg to ~/.roro/config.json as pretty-printed JSON,
// creating the ~/.roro directory if needed.
func SaveConfig(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceSerialization,
			"failed to create directory "+filepath.Dir(path), err))
	}

	if cfg == nil {
		cfg = Config{}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceSerialization,
			"failed to serialize configuration", err))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceSerialization,
			"failed to write configuration file "+path, err))
	}
	return nil
}
