package divergence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/preflightvcs/preflight/pkg/ancestry"
	"github.com/preflightvcs/preflight/pkg/vcs"
)

type fakeGraph struct {
	commits map[vcs.CommitID]*vcs.Commit
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{commits: make(map[vcs.CommitID]*vcs.Commit)}
}

func (g *fakeGraph) add(id vcs.CommitID, parents ...vcs.CommitID) {
	g.commits[id] = &vcs.Commit{
		ID:      id,
		Parents: parents,
		When:    time.Unix(int64(1700000000+len(g.commits)), 0),
	}
}

func (g *fakeGraph) ReadCommit(ctx context.Context, id vcs.CommitID) (*vcs.Commit, error) {
	c, ok := g.commits[id]
	if !ok {
		return nil, &vcs.RepositoryError{Op: "read commit", Ref: string(id), Err: vcs.ErrObjectNotFound}
	}
	return c, nil
}

func newAnalyzer(g *fakeGraph) *Analyzer {
	return New(g, ancestry.NewResolver(g))
}

func TestAnalyze_Identical(t *testing.T) {
	g := newFakeGraph()
	g.add("a")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "a", "a")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != Identical {
		t.Errorf("relationship = %v, want Identical", rep.Relationship)
	}
	if rep.LocalAhead != 0 || rep.RemoteBehind != 0 {
		t.Errorf("counts = %d/%d, want 0/0", rep.LocalAhead, rep.RemoteBehind)
	}
	if !rep.HasMergeBase || rep.MergeBase != "a" {
		t.Errorf("merge base = %q/%v, want a/true", rep.MergeBase, rep.HasMergeBase)
	}
}

func TestAnalyze_LocalAheadOnly(t *testing.T) {
	g := newFakeGraph()
	g.add("base")
	g.add("l1", "base")
	g.add("l2", "l1")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "l2", "base")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != LocalAheadOnly {
		t.Errorf("relationship = %v, want LocalAheadOnly", rep.Relationship)
	}
	if rep.LocalAhead != 2 || rep.RemoteBehind != 0 {
		t.Errorf("counts = %d/%d, want 2/0", rep.LocalAhead, rep.RemoteBehind)
	}
	if !rep.HasMergeBase || rep.MergeBase != "base" {
		t.Errorf("merge base = %q/%v, want base/true", rep.MergeBase, rep.HasMergeBase)
	}
}

func TestAnalyze_RemoteAheadOnly(t *testing.T) {
	g := newFakeGraph()
	g.add("base")
	g.add("r1", "base")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "base", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != RemoteAheadOnly {
		t.Errorf("relationship = %v, want RemoteAheadOnly", rep.Relationship)
	}
	if rep.LocalAhead != 0 || rep.RemoteBehind != 1 {
		t.Errorf("counts = %d/%d, want 0/1", rep.LocalAhead, rep.RemoteBehind)
	}
	if !rep.HasMergeBase || rep.MergeBase != "base" {
		t.Errorf("merge base = %q/%v, want base/true", rep.MergeBase, rep.HasMergeBase)
	}
}

func TestAnalyze_Diverged(t *testing.T) {
	g := newFakeGraph()
	g.add("base")
	g.add("l1", "base")
	g.add("r1", "base")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "l1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != Diverged {
		t.Errorf("relationship = %v, want Diverged", rep.Relationship)
	}
	if rep.LocalAhead != 1 || rep.RemoteBehind != 1 {
		t.Errorf("counts = %d/%d, want 1/1", rep.LocalAhead, rep.RemoteBehind)
	}
	if !rep.HasMergeBase || rep.MergeBase != "base" {
		t.Errorf("merge base = %q/%v, want base/true", rep.MergeBase, rep.HasMergeBase)
	}
}

func TestAnalyze_NoCommonHistory(t *testing.T) {
	g := newFakeGraph()
	g.add("a")
	g.add("b")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != NoCommonHistory {
		t.Errorf("relationship = %v, want NoCommonHistory", rep.Relationship)
	}
	if rep.HasMergeBase {
		t.Error("disjoint histories reported a merge base")
	}
	if rep.LocalAhead != 1 || rep.RemoteBehind != 1 {
		t.Errorf("counts = %d/%d, want 1/1", rep.LocalAhead, rep.RemoteBehind)
	}
}

func TestAnalyze_RemoteMissing(t *testing.T) {
	g := newFakeGraph()
	g.add("root")
	g.add("tip", "root")

	rep, err := newAnalyzer(g).Analyze(context.Background(), "tip", "")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != RemoteMissing {
		t.Errorf("relationship = %v, want RemoteMissing", rep.Relationship)
	}
	if rep.LocalAhead != 2 {
		t.Errorf("LocalAhead = %d, want 2", rep.LocalAhead)
	}
}

func TestAnalyze_LocalEmpty(t *testing.T) {
	g := newFakeGraph()

	rep, err := newAnalyzer(g).Analyze(context.Background(), "", "remote")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Relationship != LocalEmpty {
		t.Errorf("relationship = %v, want LocalEmpty", rep.Relationship)
	}
}

func TestAnalyze_CountsCapped(t *testing.T) {
	g := newFakeGraph()
	g.add("base")
	prev := vcs.CommitID("base")
	for i := 0; i < 20; i++ {
		id := vcs.CommitID(fmt.Sprintf("l%d", i))
		g.add(id, prev)
		prev = id
	}
	g.add("r1", "base")

	a := newAnalyzer(g)
	a.Cap = 5
	rep, err := a.Analyze(context.Background(), prev, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if !rep.CountsCapped {
		t.Error("expected CountsCapped with 20 commits ahead and cap 5")
	}
	if rep.LocalAhead > 5 {
		t.Errorf("LocalAhead = %d, want at most the cap", rep.LocalAhead)
	}
}

func TestAnalyze_MissingCommitErrors(t *testing.T) {
	g := newFakeGraph()
	g.add("a")

	_, err := newAnalyzer(g).Analyze(context.Background(), "a", "ghost")
	if err == nil {
		t.Fatal("expected error for unreadable commit")
	}
}
