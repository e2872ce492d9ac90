package vcs

import (
	"errors"
	"fmt"
)

// Sentinel errors used across the repository adapters. Callers match them
// with errors.Is.
var (
	// ErrObjectNotFound indicates a missing or unreadable object. It is
	// fatal for a single check and is never retried by the engine.
	ErrObjectNotFound = errors.New("object not found")

	// ErrNoRemote indicates the workspace has no remote configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrRemoteBranchAbsent indicates the remote exists but does not
	// advertise the requested branch.
	ErrRemoteBranchAbsent = errors.New("remote branch absent")
)

// RepositoryError wraps a failure reading the local repository: a missing
// or corrupt object, an unreadable ref, or a broken worktree file.
type RepositoryError struct {
	Op  string // the read that failed, e.g. "read commit"
	Ref string // object id or ref name, when known
	Err error
}

func (e *RepositoryError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("repository: %s %s: %v", e.Op, e.Ref, e.Err)
	}
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure talking to the remote. It
// downgrades detection to stale-data mode rather than failing a check.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError wraps rejected credentials. It is reported distinctly so a
// caller can prompt for re-authentication.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }
