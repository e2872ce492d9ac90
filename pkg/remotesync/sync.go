// Package remotesync attempts a non-mutating read of remote state ahead of
// a pre-flight check. Failures are categorized, never fatal: the caller
// falls back to the last-known remote refs and proceeds on stale data.
package remotesync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// Reason categorizes the outcome of a sync attempt.
type Reason int

const (
	// Fetched means fresh remote state was obtained.
	Fetched Reason = iota
	// AlreadyUpToDate means the remote was reached and nothing changed.
	AlreadyUpToDate
	// NoRemoteConfigured means the workspace has no remote at all.
	NoRemoteConfigured
	// AuthenticationFailed means the remote rejected the credentials.
	AuthenticationFailed
	// NetworkUnreachable covers transport failures and timeouts.
	NetworkUnreachable
	// RemoteBranchAbsent means the remote answered but does not
	// advertise the branch (typical first-push scenario).
	RemoteBranchAbsent
)

func (r Reason) String() string {
	switch r {
	case Fetched:
		return "fetched"
	case AlreadyUpToDate:
		return "already-up-to-date"
	case NoRemoteConfigured:
		return "no-remote-configured"
	case AuthenticationFailed:
		return "authentication-failed"
	case NetworkUnreachable:
		return "network-unreachable"
	case RemoteBranchAbsent:
		return "remote-branch-absent"
	}
	return "unknown"
}

// Result reports one sync attempt. Updated is true only when the remote
// answered; RemoteTip is the advertised tip of the workspace branch when
// known (fresh or from the snapshot cache).
type Result struct {
	Updated   bool
	Reason    Reason
	RemoteTip vcs.CommitID
	Refs      map[string]vcs.CommitID

	// Stale is true when RemoteTip comes from the snapshot cache
	// rather than a live advertisement.
	Stale bool

	// CachedAt is the snapshot time when Stale is true.
	CachedAt time.Time

	// Err preserves the underlying failure for warning text.
	Err error
}

// Workspace identifies what to sync. Passed explicitly per call so
// independent workspaces can be synced concurrently.
type Workspace struct {
	Remote string // remote name, e.g. "origin"
	Branch string // remote branch name, e.g. "main"
}

// DefaultTimeout bounds the single outbound network call.
const DefaultTimeout = 30 * time.Second

// Synchronizer wraps a Fetcher with failure categorization and the
// last-known-refs fallback. It never mutates local branches or the
// working tree.
type Synchronizer struct {
	fetcher vcs.Fetcher
	cache   *RefCache // optional

	// Timeout bounds the fetch; zero means DefaultTimeout. A timeout is
	// reported as NetworkUnreachable, not an error.
	Timeout time.Duration

	// DryRun restricts the fetch to a ref listing, leaving even
	// remote-tracking refs untouched.
	DryRun bool
}

// New returns a Synchronizer. cache may be nil to disable the snapshot
// fallback.
func New(fetcher vcs.Fetcher, cache *RefCache) *Synchronizer {
	return &Synchronizer{fetcher: fetcher, cache: cache}
}

// TrySync attempts to read fresh remote refs. It never returns an error:
// every failure mode maps to a categorized Result, and the last cached
// snapshot (if any) supplies a stale tip for downstream analysis.
func (s *Synchronizer) TrySync(ctx context.Context, ws Workspace, creds vcs.Credentials) Result {
	if ws.Remote == "" {
		return Result{Reason: NoRemoteConfigured}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := s.fetcher.Fetch(ctx, ws.Remote, creds, s.DryRun)
	if err != nil {
		reason := categorize(err)
		log.Debug().
			Str("remote", ws.Remote).
			Str("branch", ws.Branch).
			Str("reason", reason.String()).
			Err(err).
			Msg("remote sync failed, falling back to cached refs")
		return s.fallback(ws, reason, err)
	}

	refs := outcome.Refs
	tip, advertised := refs[ws.Branch]

	reason := Fetched
	if advertised && s.cache != nil {
		if snap, ok, err := s.cache.Load(ws.Remote); err == nil && ok {
			if prev, known := snap.Refs[ws.Branch]; known && prev == tip {
				reason = AlreadyUpToDate
			}
		}
	}

	if s.cache != nil {
		if err := s.cache.Store(ws.Remote, refs); err != nil {
			// Cache write failure is advisory only.
			log.Debug().Err(err).Msg("ref snapshot write failed")
		}
	}

	if !advertised {
		log.Debug().
			Str("remote", ws.Remote).
			Str("branch", ws.Branch).
			Msg("remote reached but branch not advertised")
		return Result{Updated: true, Reason: RemoteBranchAbsent, Refs: refs}
	}

	log.Debug().
		Str("remote", ws.Remote).
		Str("branch", ws.Branch).
		Str("tip", string(tip)).
		Str("reason", reason.String()).
		Msg("remote refs fetched")
	return Result{Updated: true, Reason: reason, RemoteTip: tip, Refs: refs}
}

// fallback builds a failure Result, consulting the snapshot cache for a
// stale tip.
func (s *Synchronizer) fallback(ws Workspace, reason Reason, err error) Result {
	res := Result{Reason: reason, Err: err}
	if s.cache == nil {
		return res
	}
	snap, ok, loadErr := s.cache.Load(ws.Remote)
	if loadErr != nil || !ok {
		return res
	}
	if tip, ok := snap.Refs[ws.Branch]; ok {
		res.RemoteTip = tip
		res.Refs = snap.Refs
		res.Stale = true
		res.CachedAt = snap.SavedAt
	}
	return res
}

// categorize maps a fetch error to its Reason. Unrecognized errors count
// as network failures: the conservative reading of an unreachable remote.
func categorize(err error) Reason {
	var authErr *vcs.AuthError
	switch {
	case errors.Is(err, vcs.ErrNoRemote):
		return NoRemoteConfigured
	case errors.Is(err, vcs.ErrRemoteBranchAbsent):
		return RemoteBranchAbsent
	case errors.As(err, &authErr):
		return AuthenticationFailed
	case errors.Is(err, context.DeadlineExceeded):
		return NetworkUnreachable
	default:
		return NetworkUnreachable
	}
}
