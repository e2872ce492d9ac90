// Package divergence classifies how a local branch tip relates to its
// remote counterpart: identical, fast-forwardable in either direction,
// diverged, or lacking common history entirely. Ahead/behind counts are
// computed by bounded graph difference so pathological histories report a
// capped lower bound instead of hanging.
package divergence

import (
	"context"
	"fmt"

	"github.com/preflightvcs/preflight/pkg/ancestry"
	"github.com/preflightvcs/preflight/pkg/vcs"
)

// Relationship is the topological relation between local and remote tips.
type Relationship int

const (
	// Identical means local and remote point at the same commit.
	Identical Relationship = iota
	// LocalAheadOnly means the merge base equals remote: a push is a
	// pure fast-forward.
	LocalAheadOnly
	// RemoteAheadOnly means the merge base equals local: a pull is a
	// pure fast-forward (provided no uncommitted changes block it,
	// which is the caller's concern).
	RemoteAheadOnly
	// Diverged means both sides added unique commits since the base.
	Diverged
	// NoCommonHistory means no merge base exists.
	NoCommonHistory
	// RemoteMissing means the remote ref does not exist (first push).
	RemoteMissing
	// LocalEmpty means the local branch has no commits yet.
	LocalEmpty
)

func (r Relationship) String() string {
	switch r {
	case Identical:
		return "identical"
	case LocalAheadOnly:
		return "local-ahead"
	case RemoteAheadOnly:
		return "remote-ahead"
	case Diverged:
		return "diverged"
	case NoCommonHistory:
		return "no-common-history"
	case RemoteMissing:
		return "remote-missing"
	case LocalEmpty:
		return "local-empty"
	default:
		return "unknown"
	}
}

// Report is the result of one divergence analysis. LocalAhead and
// RemoteBehind are lower bounds when CountsCapped is true.
type Report struct {
	Relationship Relationship
	LocalAhead   int
	RemoteBehind int
	MergeBase    vcs.CommitID
	HasMergeBase bool
	CountsCapped bool
}

// DefaultCap bounds commit enumeration per side.
const DefaultCap = 500

// Analyzer computes divergence reports over a commit graph.
type Analyzer struct {
	graph    ancestry.CommitGraph
	resolver *ancestry.Resolver

	// Cap bounds ahead/behind enumeration per side. Zero means
	// DefaultCap.
	Cap int
}

// New returns an Analyzer sharing the given resolver's memoization.
func New(graph ancestry.CommitGraph, resolver *ancestry.Resolver) *Analyzer {
	return &Analyzer{graph: graph, resolver: resolver}
}

func (a *Analyzer) cap() int {
	if a.Cap > 0 {
		return a.Cap
	}
	return DefaultCap
}

// Analyze classifies the relation between local and remote tips. Either ID
// may be empty: empty local means an unborn branch, empty remote means the
// remote ref does not exist.
func (a *Analyzer) Analyze(ctx context.Context, local, remote vcs.CommitID) (*Report, error) {
	if local == "" {
		return &Report{Relationship: LocalEmpty}, nil
	}
	if remote == "" {
		// Everything local is ahead of a missing remote.
		ahead, capped, err := a.countReachable(ctx, local, nil)
		if err != nil {
			return nil, err
		}
		return &Report{Relationship: RemoteMissing, LocalAhead: ahead, CountsCapped: capped}, nil
	}
	if local == remote {
		return &Report{Relationship: Identical, MergeBase: local, HasMergeBase: true}, nil
	}

	// Reachability settles the pure fast-forward cases in O(distance)
	// without the full merge-base walk: a tip that is an ancestor of the
	// other tip is itself the base.
	var base vcs.CommitID
	var found bool
	if ok, err := a.resolver.IsAncestor(ctx, local, remote); err != nil {
		return nil, fmt.Errorf("analyze divergence: %w", err)
	} else if ok {
		base, found = local, true
	} else if ok, err := a.resolver.IsAncestor(ctx, remote, local); err != nil {
		return nil, fmt.Errorf("analyze divergence: %w", err)
	} else if ok {
		base, found = remote, true
	} else {
		base, found, err = a.resolver.FindMergeBase(ctx, local, remote)
		if err != nil {
			return nil, fmt.Errorf("analyze divergence: %w", err)
		}
	}

	report := &Report{MergeBase: base, HasMergeBase: found}

	// Count commits reachable from one tip but not the other.
	remoteSet, remoteCapped, err := a.reachableSet(ctx, remote)
	if err != nil {
		return nil, err
	}
	ahead, aheadCapped, err := a.countReachable(ctx, local, remoteSet)
	if err != nil {
		return nil, err
	}
	localSet, localCapped, err := a.reachableSet(ctx, local)
	if err != nil {
		return nil, err
	}
	behind, behindCapped, err := a.countReachable(ctx, remote, localSet)
	if err != nil {
		return nil, err
	}

	report.LocalAhead = ahead
	report.RemoteBehind = behind
	report.CountsCapped = remoteCapped || aheadCapped || localCapped || behindCapped

	switch {
	case !found:
		report.Relationship = NoCommonHistory
	case base == remote:
		report.Relationship = LocalAheadOnly
	case base == local:
		report.Relationship = RemoteAheadOnly
	default:
		report.Relationship = Diverged
	}
	return report, nil
}

// reachableSet collects commits reachable from tip, up to the cap.
func (a *Analyzer) reachableSet(ctx context.Context, tip vcs.CommitID) (map[vcs.CommitID]struct{}, bool, error) {
	limit := a.cap()
	set := make(map[vcs.CommitID]struct{})
	stack := []vcs.CommitID{tip}
	capped := false

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == "" {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		if len(set) >= limit {
			capped = true
			break
		}
		set[id] = struct{}{}

		commit, err := a.graph.ReadCommit(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("analyze divergence: %w", err)
		}
		stack = append(stack, commit.Parents...)
	}
	return set, capped, nil
}

// countReachable counts commits reachable from tip but absent from stop,
// counting (not storing) up to the cap.
func (a *Analyzer) countReachable(ctx context.Context, tip vcs.CommitID, stop map[vcs.CommitID]struct{}) (int, bool, error) {
	limit := a.cap()
	seen := make(map[vcs.CommitID]struct{})
	stack := []vcs.CommitID{tip}
	count := 0

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, stopped := stop[id]; stopped {
			continue
		}

		count++
		if count >= limit {
			return count, true, nil
		}

		commit, err := a.graph.ReadCommit(ctx, id)
		if err != nil {
			return 0, false, fmt.Errorf("analyze divergence: %w", err)
		}
		stack = append(stack, commit.Parents...)
	}
	return count, false, nil
}
