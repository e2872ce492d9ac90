// Package gitrepo adapts an on-disk git repository, read through go-git,
// to the engine's repository interfaces.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// Repo reads one local git repository. It implements vcs.Repository.
type Repo struct {
	gr   *gogit.Repository
	root string
}

// Open opens the repository containing dir, searching parent directories
// the way the git CLI does.
func Open(dir string) (*Repo, error) {
	gr, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "open", Ref: dir, Err: err}
	}
	wt, err := gr.Worktree()
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "open", Ref: dir, Err: err}
	}
	return &Repo{gr: gr, root: wt.Filesystem.Root()}, nil
}

// Branch returns the short name of the checked-out branch. A symbolic HEAD
// in an empty repository still has a branch name.
func (r *Repo) Branch(ctx context.Context) (string, error) {
	ref, err := r.gr.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", &vcs.RepositoryError{Op: "branch", Ref: "HEAD", Err: err}
	}
	if ref.Type() == plumbing.SymbolicReference {
		return ref.Target().Short(), nil
	}
	// Detached HEAD: report the commit id so callers still get an
	// identity, even though no upstream can exist for it.
	return ref.Hash().String(), nil
}

// ResolveRef resolves a ref name or revision to a commit. A missing ref
// (including HEAD of an empty repository) reports ok=false, not an error.
func (r *Repo) ResolveRef(ctx context.Context, name string) (vcs.CommitID, bool, error) {
	h, err := r.gr.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return "", false, nil
		}
		// go-git reports an unborn HEAD with a plain error string.
		if strings.Contains(err.Error(), "reference not found") {
			return "", false, nil
		}
		return "", false, &vcs.RepositoryError{Op: "resolve", Ref: name, Err: err}
	}
	return vcs.CommitID(h.String()), true, nil
}

func (r *Repo) ReadCommit(ctx context.Context, id vcs.CommitID) (*vcs.Commit, error) {
	c, err := r.gr.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, objErr("read commit", string(id), err)
	}
	parents := make([]vcs.CommitID, len(c.ParentHashes))
	for i, p := range c.ParentHashes {
		parents[i] = vcs.CommitID(p.String())
	}
	return &vcs.Commit{
		ID:      id,
		Parents: parents,
		Tree:    vcs.TreeID(c.TreeHash.String()),
		When:    c.Committer.When,
	}, nil
}

func (r *Repo) ReadTree(ctx context.Context, id vcs.TreeID) (*vcs.Tree, error) {
	t, err := r.gr.TreeObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, objErr("read tree", string(id), err)
	}
	out := &vcs.Tree{Entries: make([]vcs.TreeEntry, 0, len(t.Entries))}
	for _, e := range t.Entries {
		entry := vcs.TreeEntry{
			Name:  e.Name,
			IsDir: e.Mode == filemode.Dir,
			Mode:  e.Mode.String(),
		}
		if entry.IsDir {
			entry.Subtree = vcs.TreeID(e.Hash.String())
		} else {
			entry.Blob = vcs.BlobID(e.Hash.String())
		}
		out.Entries = append(out.Entries, entry)
	}
	// git orders tree entries with a trailing slash on directories; the
	// differ wants plain name order.
	sort.Slice(out.Entries, func(i, j int) bool {
		return out.Entries[i].Name < out.Entries[j].Name
	})
	return out, nil
}

func (r *Repo) ReadBlob(ctx context.Context, id vcs.BlobID) ([]byte, error) {
	b, err := r.gr.BlobObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, objErr("read blob", string(id), err)
	}
	rd, err := b.Reader()
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "read blob", Ref: string(id), Err: err}
	}
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "read blob", Ref: string(id), Err: err}
	}
	return data, nil
}

// WorkingTreeStatus classifies every path the worktree reports as dirty.
func (r *Repo) WorkingTreeStatus(ctx context.Context) (*vcs.WorkingStatus, error) {
	wt, err := r.gr.Worktree()
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "status", Err: err}
	}
	status, err := wt.Status()
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "status", Err: err}
	}

	ws := &vcs.WorkingStatus{}
	for path, fs := range status {
		switch {
		case fs.Staging == gogit.Unmodified && fs.Worktree == gogit.Unmodified:
		case fs.Staging == gogit.UpdatedButUnmerged || fs.Worktree == gogit.UpdatedButUnmerged:
			ws.Conflicting = append(ws.Conflicting, path)
		case fs.Staging == gogit.Untracked || fs.Worktree == gogit.Untracked:
			ws.Untracked = append(ws.Untracked, path)
		default:
			switch fs.Staging {
			case gogit.Added:
				ws.Added = append(ws.Added, path)
			case gogit.Modified, gogit.Renamed, gogit.Copied:
				ws.Changed = append(ws.Changed, path)
			case gogit.Deleted:
				ws.Removed = append(ws.Removed, path)
			}
			switch fs.Worktree {
			case gogit.Modified:
				ws.Modified = append(ws.Modified, path)
			case gogit.Deleted:
				ws.Missing = append(ws.Missing, path)
			}
		}
	}
	for _, set := range [][]string{ws.Added, ws.Changed, ws.Modified, ws.Missing, ws.Removed, ws.Untracked, ws.Conflicting} {
		sort.Strings(set)
	}
	return ws, nil
}

func (r *Repo) ReadWorkingFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
	if err != nil {
		return nil, &vcs.RepositoryError{Op: "read worktree file", Ref: path, Err: err}
	}
	return data, nil
}

// Upstream looks up the configured upstream of branch, ok=false when the
// branch has none.
func (r *Repo) Upstream(ctx context.Context, branch string) (*vcs.Upstream, bool, error) {
	cfg, err := r.gr.Config()
	if err != nil {
		return nil, false, &vcs.RepositoryError{Op: "upstream", Ref: branch, Err: err}
	}
	b, ok := cfg.Branches[branch]
	if !ok || b.Remote == "" {
		return nil, false, nil
	}
	up := &vcs.Upstream{Remote: b.Remote, Branch: branch}
	if b.Merge != "" {
		up.Branch = b.Merge.Short()
	}
	if rc, ok := cfg.Remotes[b.Remote]; ok && len(rc.URLs) > 0 {
		up.URL = rc.URLs[0]
	}
	return up, true, nil
}

// Fetch reads remote state. With dryRun the remote is only listed, leaving
// every local ref untouched; otherwise remote-tracking refs are updated.
// Either way the advertised branch heads are returned.
func (r *Repo) Fetch(ctx context.Context, remoteName string, creds vcs.Credentials, dryRun bool) (*vcs.FetchOutcome, error) {
	remote, err := r.gr.Remote(remoteName)
	if err != nil {
		if errors.Is(err, gogit.ErrRemoteNotFound) {
			return nil, vcs.ErrNoRemote
		}
		return nil, &vcs.RepositoryError{Op: "fetch", Ref: remoteName, Err: err}
	}

	var url string
	if urls := remote.Config().URLs; len(urls) > 0 {
		url = urls[0]
	}
	auth, err := buildAuth(url, creds)
	if err != nil {
		return nil, &vcs.AuthError{Err: err}
	}

	if !dryRun {
		err = remote.FetchContext(ctx, &gogit.FetchOptions{
			RemoteName: remoteName,
			Auth:       auth,
			Tags:       gogit.NoTags,
		})
		if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			return nil, categorizeTransportErr(err)
		}
	}

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: auth})
	if err != nil {
		return nil, categorizeTransportErr(err)
	}

	out := &vcs.FetchOutcome{Refs: make(map[string]vcs.CommitID)}
	for _, ref := range refs {
		if ref.Name().IsBranch() {
			out.Refs[ref.Name().Short()] = vcs.CommitID(ref.Hash().String())
		}
	}
	return out, nil
}

// categorizeTransportErr maps go-git transport failures onto the engine's
// error taxonomy so callers can react without matching message strings.
func categorizeTransportErr(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return &vcs.AuthError{Err: err}
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
		return vcs.ErrRemoteBranchAbsent
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return &vcs.NetworkError{Err: err}
	default:
		return &vcs.NetworkError{Err: err}
	}
}

func objErr(op, ref string, err error) error {
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return &vcs.RepositoryError{Op: op, Ref: ref, Err: fmt.Errorf("%w: %v", vcs.ErrObjectNotFound, err)}
	}
	return &vcs.RepositoryError{Op: op, Ref: ref, Err: err}
}

var _ vcs.Repository = (*Repo)(nil)
