// Package vcs defines the version-control data model and the read-only
// repository interfaces the pre-flight engine is built on. Everything here
// is consumed, never mutated: the engine classifies merge feasibility but
// writes no objects, updates no refs, and touches no working-tree files.
package vcs

import (
	"context"
	"time"
)

// CommitID is an opaque content-addressed commit identifier.
type CommitID string

// TreeID identifies a directory snapshot.
type TreeID string

// BlobID identifies file content.
type BlobID string

// Commit is one node in the commit graph. Zero parents means a root commit.
type Commit struct {
	ID      CommitID
	Parents []CommitID
	Tree    TreeID
	When    time.Time
}

// TreeEntry is one entry in a tree. Exactly one of Blob or Subtree is set,
// depending on IsDir.
type TreeEntry struct {
	Name    string
	IsDir   bool
	Mode    string
	Blob    BlobID
	Subtree TreeID
}

// Tree holds entries sorted by Name. Readers must preserve that ordering;
// the tree differ relies on it for its synchronized walk.
type Tree struct {
	Entries []TreeEntry
}

// WorkingStatus carries the working-tree path sets, passed through to the
// aggregated result untouched. Computation of these sets is outside the
// engine's scope.
type WorkingStatus struct {
	Added       []string // staged new files
	Changed     []string // staged modifications
	Modified    []string // unstaged modifications
	Missing     []string // deleted on disk, not staged
	Removed     []string // staged deletions
	Untracked   []string
	Conflicting []string
}

// HasUncommittedChanges reports whether any tracked file differs from HEAD.
// Untracked files do not count.
func (s *WorkingStatus) HasUncommittedChanges() bool {
	return len(s.Added)+len(s.Changed)+len(s.Modified)+len(s.Missing)+len(s.Removed)+len(s.Conflicting) > 0
}

// UncommittedCount counts tracked files with uncommitted changes.
func (s *WorkingStatus) UncommittedCount() int {
	return len(s.Added) + len(s.Changed) + len(s.Modified) + len(s.Missing) + len(s.Removed) + len(s.Conflicting)
}

// Credentials selects an authentication method for remote access. All
// fields are optional; an empty value means "try anonymous or agent auth".
type Credentials struct {
	Username      string
	Password      string
	Token         string
	SSHKeyPath    string
	SSHPassphrase string
}

// Upstream describes the configured upstream of a local branch.
type Upstream struct {
	Remote string // remote name, e.g. "origin"
	Branch string // remote branch name, e.g. "main"
	URL    string // first configured URL of the remote
}

// FetchOutcome reports the refs advertised by the remote after a fetch or
// a ref listing. Keys are short branch names.
type FetchOutcome struct {
	Refs map[string]CommitID
}

// CommitReader reads commits from the object store.
type CommitReader interface {
	ReadCommit(ctx context.Context, id CommitID) (*Commit, error)
}

// TreeReader reads trees from the object store.
type TreeReader interface {
	ReadTree(ctx context.Context, id TreeID) (*Tree, error)
}

// BlobReader reads raw blob content from the object store.
type BlobReader interface {
	ReadBlob(ctx context.Context, id BlobID) ([]byte, error)
}

// RefReader resolves ref names to commits. ResolveRef returns ok=false
// (with a nil error) when the ref does not exist.
type RefReader interface {
	ResolveRef(ctx context.Context, name string) (CommitID, bool, error)
}

// WorktreeReader exposes the on-disk state of tracked files.
type WorktreeReader interface {
	WorkingTreeStatus(ctx context.Context) (*WorkingStatus, error)
	ReadWorkingFile(ctx context.Context, path string) ([]byte, error)
}

// Fetcher performs a read of remote state. With dryRun true the remote is
// only listed; with dryRun false remote-tracking refs are updated with the
// fetch's normal semantics. Local branches and the working tree are never
// touched either way.
type Fetcher interface {
	Fetch(ctx context.Context, remote string, creds Credentials, dryRun bool) (*FetchOutcome, error)
}

// Repository is the full collaborator surface the conflict classifier
// consumes. One Repository value corresponds to one workspace; independent
// workspaces are checked through independent Repository handles.
type Repository interface {
	CommitReader
	TreeReader
	BlobReader
	RefReader
	WorktreeReader
	Fetcher

	// Branch returns the name of the checked-out branch, which exists
	// even when the repository has no commits yet.
	Branch(ctx context.Context) (string, error)

	// Upstream reports the configured upstream of branch, ok=false when
	// no upstream is configured.
	Upstream(ctx context.Context, branch string) (*Upstream, bool, error)
}
