// Package ancestry finds merge bases and ancestor relationships in a
// commit graph. It performs read-only traversals over a CommitGraph and
// never assumes more than the graph being acyclic; corrupt graphs with
// cycles hit the traversal bound and error instead of hanging.
package ancestry

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// CommitGraph is the query surface the resolver walks.
type CommitGraph interface {
	ReadCommit(ctx context.Context, id vcs.CommitID) (*vcs.Commit, error)
}

const defaultMaxSteps = 1_000_000

// Resolver answers merge-base and ancestry queries. It memoizes commits
// and resolved bases for its lifetime, so one Resolver should live for one
// check invocation (or one workspace) and not across repository mutations.
// It is safe for concurrent use.
type Resolver struct {
	graph CommitGraph

	// MaxSteps bounds every traversal as a defense against data
	// corruption that introduces cycles. Zero means the default bound.
	MaxSteps int

	mu      sync.RWMutex
	commits map[vcs.CommitID]*vcs.Commit
	bases   map[basePairKey]baseEntry
}

type basePairKey struct {
	left  vcs.CommitID
	right vcs.CommitID
}

type baseEntry struct {
	base  vcs.CommitID
	found bool
}

// NewResolver returns a Resolver over graph.
func NewResolver(graph CommitGraph) *Resolver {
	return &Resolver{
		graph:   graph,
		commits: make(map[vcs.CommitID]*vcs.Commit),
		bases:   make(map[basePairKey]baseEntry),
	}
}

func (r *Resolver) maxSteps() int {
	if r.MaxSteps > 0 {
		return r.MaxSteps
	}
	return defaultMaxSteps
}

func canonicalPairKey(a, b vcs.CommitID) basePairKey {
	if a <= b {
		return basePairKey{left: a, right: b}
	}
	return basePairKey{left: b, right: a}
}

func (r *Resolver) loadBase(a, b vcs.CommitID) (baseEntry, bool) {
	key := canonicalPairKey(a, b)
	r.mu.RLock()
	entry, ok := r.bases[key]
	r.mu.RUnlock()
	return entry, ok
}

func (r *Resolver) storeBase(a, b, base vcs.CommitID, found bool) {
	key := canonicalPairKey(a, b)
	r.mu.Lock()
	r.bases[key] = baseEntry{base: base, found: found}
	r.mu.Unlock()
}

// readCommit reads a commit through the memo cache.
func (r *Resolver) readCommit(ctx context.Context, id vcs.CommitID) (*vcs.Commit, error) {
	r.mu.RLock()
	c, ok := r.commits[id]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := r.graph.ReadCommit(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.commits[id] = c
	r.mu.Unlock()
	return c, nil
}

// FindMergeBase walks backward from both commits, marking each visited
// commit with the side(s) that reached it. Traversal is ordered newest
// timestamp first (ties by graph distance, then ID); the first commit
// reached by both sides under that priority is the merge base. This is the
// conventional best-common-ancestor heuristic, not a verified graph-
// theoretic LCA on exotic multi-merge topologies.
//
// found is false when the two commits share no history. Missing objects
// propagate as the graph's read error; a wrong base is never silently
// returned.
func (r *Resolver) FindMergeBase(ctx context.Context, a, b vcs.CommitID) (base vcs.CommitID, found bool, err error) {
	if a == "" || b == "" {
		return "", false, nil
	}
	if a == b {
		return a, true, nil
	}

	if entry, ok := r.loadBase(a, b); ok {
		return entry.base, entry.found, nil
	}

	base, found, err = r.findMergeBase(ctx, a, b)
	if err != nil {
		return "", false, err
	}
	r.storeBase(a, b, base, found)
	return base, found, nil
}

const (
	sideA = 1 << 0
	sideB = 1 << 1
)

func (r *Resolver) findMergeBase(ctx context.Context, a, b vcs.CommitID) (vcs.CommitID, bool, error) {
	ca, err := r.readCommit(ctx, a)
	if err != nil {
		return "", false, fmt.Errorf("find merge base: %w", err)
	}
	cb, err := r.readCommit(ctx, b)
	if err != nil {
		return "", false, fmt.Errorf("find merge base: %w", err)
	}

	marks := map[vcs.CommitID]uint8{a: sideA, b: sideB}
	queue := walkMaxHeap{
		{id: a, when: ca.When.Unix(), depth: 0},
		{id: b, when: cb.When.Unix(), depth: 0},
	}
	heap.Init(&queue)

	limit := r.maxSteps()
	steps := 0
	expanded := make(map[vcs.CommitID]struct{})

	for queue.Len() > 0 {
		item := heap.Pop(&queue).(walkItem)

		steps++
		if steps > limit {
			return "", false, fmt.Errorf("find merge base: traversal exceeded %d steps (corrupt graph?)", limit)
		}

		if marks[item.id] == sideA|sideB {
			return item.id, true, nil
		}
		if _, seen := expanded[item.id]; seen {
			continue
		}
		expanded[item.id] = struct{}{}

		commit, err := r.readCommit(ctx, item.id)
		if err != nil {
			return "", false, fmt.Errorf("find merge base: %w", err)
		}

		mark := marks[item.id]
		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			prev := marks[p]
			next := prev | mark
			if next == prev {
				continue
			}
			marks[p] = next

			parent, err := r.readCommit(ctx, p)
			if err != nil {
				return "", false, fmt.Errorf("find merge base: %w", err)
			}
			// Re-queue on every new mark so a commit that becomes
			// common while waiting is still surfaced in priority order.
			heap.Push(&queue, walkItem{id: p, when: parent.When.Unix(), depth: item.depth + 1})
		}
	}

	return "", false, nil
}

// IsAncestor reports whether ancestor is reachable by walking descendant's
// parent links. It runs in O(distance) without computing a merge base.
func (r *Resolver) IsAncestor(ctx context.Context, ancestor, descendant vcs.CommitID) (bool, error) {
	if ancestor == "" || descendant == "" {
		return false, nil
	}
	if ancestor == descendant {
		return true, nil
	}

	limit := r.maxSteps()
	steps := 0
	visited := map[vcs.CommitID]struct{}{descendant: {}}
	stack := []vcs.CommitID{descendant}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		steps++
		if steps > limit {
			return false, fmt.Errorf("is ancestor: traversal exceeded %d steps (corrupt graph?)", limit)
		}

		if id == ancestor {
			return true, nil
		}

		commit, err := r.readCommit(ctx, id)
		if err != nil {
			return false, fmt.Errorf("is ancestor: %w", err)
		}
		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			stack = append(stack, p)
		}
	}

	return false, nil
}
