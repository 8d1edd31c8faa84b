// Package gitsync clones or refreshes the git-backed app repositories the
// sync CLI command operates on.
package gitsync

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"portwarden/internal/kerrors"
)

// Credentials authenticates against a remote over HTTPS (a username plus a
// password or personal access token).
type Credentials struct {
	Username string
	Password string
}

func (c *Credentials) authMethod() *http.BasicAuth {
	if c == nil {
		return nil
	}
	return &http.BasicAuth{Username: c.Username, Password: c.Password}
}

// SyncRepository clones url into localPath if no repository exists there
// yet, or otherwise fetches every branch of the existing clone's "origin"
// remote into refs/remotes/origin/*. The working tree and local branches
// of an existing clone are not updated.
func SyncRepository(url, localPath string, creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceGit,
			"failed to create directory "+filepath.Dir(localPath), err))
	}

	exists, err := repositoryExists(localPath)
	if err != nil {
		return err
	}

	if exists {
		return fetchLatest(localPath, creds)
	}
	return cloneRepository(url, localPath, creds)
}

func repositoryExists(path string) (bool, error) {
	_, err := git.PlainOpen(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return false, nil
	}
	return false, kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceGit,
		"error checking repository at "+path, err))
}

func cloneRepository(url, path string, creds *Credentials) error {
	_, err := git.PlainClone(path, false, &git.CloneOptions{
		URL:  url,
		Auth: creds.authMethod(),
	})
	if err != nil {
		return wrapGitError("clone repository", err)
	}
	return nil
}

func fetchLatest(path string, creds *Credentials) error {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceGit,
			"failed to open repository at "+path, err))
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kerrors.PersistenceGit,
			"failed to find remote 'origin'", err))
	}

	err = remote.Fetch(&git.FetchOptions{
		RefSpecs: []config.RefSpec{"refs/heads/*:refs/remotes/origin/*"},
		Auth:     creds.authMethod(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return wrapGitError("fetch", err)
	}
	return nil
}

// wrapGitError classifies a go-git transport failure by message content,
// the same heuristic the original Git sync collaborator used since
// go-git, like git2, does not expose a single typed error for every
// transport's auth/network failures.
func wrapGitError(op string, err error) error {
	message := err.Error()
	kind := kerrors.PersistenceGit
	switch {
	case strings.Contains(message, "authentication") || strings.Contains(message, "credential"):
		kind = kerrors.PersistenceAuthentication
	case strings.Contains(message, "network") || strings.Contains(message, "connection"):
		kind = kerrors.PersistenceNetwork
	}
	return kerrors.WrapPersistence(kerrors.WrapPersistenceError(kind, "failed to "+op+": "+message, err))
}
