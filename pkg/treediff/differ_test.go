package treediff

import (
	"context"
	"sort"
	"testing"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// fakeStore is an in-memory object store for trees and blobs. Tree entries
// are kept sorted by name on insert.
type fakeStore struct {
	trees     map[vcs.TreeID]*vcs.Tree
	blobs     map[vcs.BlobID][]byte
	treeReads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trees: make(map[vcs.TreeID]*vcs.Tree),
		blobs: make(map[vcs.BlobID][]byte),
	}
}

func (s *fakeStore) addBlob(id vcs.BlobID, content string) vcs.BlobID {
	s.blobs[id] = []byte(content)
	return id
}

func (s *fakeStore) addTree(id vcs.TreeID, entries ...vcs.TreeEntry) vcs.TreeID {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	s.trees[id] = &vcs.Tree{Entries: entries}
	return id
}

func file(name string, blob vcs.BlobID) vcs.TreeEntry {
	return vcs.TreeEntry{Name: name, Blob: blob}
}

func dir(name string, subtree vcs.TreeID) vcs.TreeEntry {
	return vcs.TreeEntry{Name: name, IsDir: true, Subtree: subtree}
}

func (s *fakeStore) ReadTree(ctx context.Context, id vcs.TreeID) (*vcs.Tree, error) {
	s.treeReads++
	t, ok := s.trees[id]
	if !ok {
		return nil, &vcs.RepositoryError{Op: "read tree", Ref: string(id), Err: vcs.ErrObjectNotFound}
	}
	return t, nil
}

func (s *fakeStore) ReadBlob(ctx context.Context, id vcs.BlobID) ([]byte, error) {
	b, ok := s.blobs[id]
	if !ok {
		return nil, &vcs.RepositoryError{Op: "read blob", Ref: string(id), Err: vcs.ErrObjectNotFound}
	}
	return b, nil
}

func byPath(entries []ChangeEntry) map[string]ChangeEntry {
	m := make(map[string]ChangeEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func TestDiff_Classification(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b-keep", "keep\n")
	s.addBlob("b-old", "old\n")
	s.addBlob("b-new", "new\n")
	s.addBlob("b-added", "added\n")

	old := s.addTree("t-old",
		file("keep.txt", "b-keep"),
		file("changed.txt", "b-old"),
		file("gone.txt", "b-old"),
	)
	newT := s.addTree("t-new",
		file("keep.txt", "b-keep"),
		file("changed.txt", "b-new"),
		file("fresh.txt", "b-added"),
	)

	d := New(s)
	d.DetectRenames = false
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %v", len(entries), entries)
	}

	m := byPath(entries)
	if e := m["changed.txt"]; e.Type != Modified || e.OldBlob != "b-old" || e.NewBlob != "b-new" {
		t.Errorf("changed.txt = %+v, want Modified b-old -> b-new", e)
	}
	if e := m["gone.txt"]; e.Type != Deleted || e.OldBlob != "b-old" {
		t.Errorf("gone.txt = %+v, want Deleted", e)
	}
	if e := m["fresh.txt"]; e.Type != Added || e.NewBlob != "b-added" {
		t.Errorf("fresh.txt = %+v, want Added", e)
	}
}

func TestDiff_IdenticalTreesNoReads(t *testing.T) {
	s := newFakeStore()
	d := New(s)
	entries, err := d.Diff(context.Background(), "same", "same")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("identical trees produced %v", entries)
	}
	if s.treeReads != 0 {
		t.Errorf("identical trees performed %d reads", s.treeReads)
	}
}

func TestDiff_UnchangedSubtreeNotDescended(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b1", "one\n")
	s.addBlob("b2", "two\n")

	shared := s.addTree("t-shared", file("deep.txt", "b1"))
	old := s.addTree("t-old",
		dir("lib", shared),
		file("top.txt", "b1"),
	)
	newT := s.addTree("t-new",
		dir("lib", shared),
		file("top.txt", "b2"),
	)

	d := New(s)
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != "top.txt" {
		t.Fatalf("entries = %v, want only top.txt", entries)
	}
	// Both roots read, the shared subtree never.
	if s.treeReads != 2 {
		t.Errorf("performed %d tree reads, want 2", s.treeReads)
	}
}

func TestDiff_EmptyTreeIDs(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b1", "one\n")
	tr := s.addTree("t1", file("a.txt", "b1"))

	d := New(s)
	added, err := d.Diff(context.Background(), "", tr)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || added[0].Type != Added {
		t.Fatalf("diff from empty = %v, want one Added", added)
	}

	deleted, err := d.Diff(context.Background(), tr, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(deleted) != 1 || deleted[0].Type != Deleted {
		t.Fatalf("diff to empty = %v, want one Deleted", deleted)
	}
}

func TestDiff_NestedPaths(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b1", "one\n")
	s.addBlob("b2", "two\n")

	oldInner := s.addTree("t-old-inner", file("leaf.txt", "b1"))
	newInner := s.addTree("t-new-inner", file("leaf.txt", "b2"))
	old := s.addTree("t-old", dir("a", s.addTree("t-old-a", dir("b", oldInner))))
	newT := s.addTree("t-new", dir("a", s.addTree("t-new-a", dir("b", newInner))))

	d := New(s)
	d.DetectRenames = false
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Path != "a/b/leaf.txt" || entries[0].Type != Modified {
		t.Fatalf("entries = %v, want a/b/leaf.txt Modified", entries)
	}
}

func TestDiff_FileBecomesDirectory(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b1", "one\n")
	s.addBlob("b2", "two\n")

	old := s.addTree("t-old", file("thing", "b1"))
	sub := s.addTree("t-sub", file("inner.txt", "b2"))
	newT := s.addTree("t-new", dir("thing", sub))

	d := New(s)
	d.DetectRenames = false
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	m := byPath(entries)
	if e := m["thing"]; e.Type != Deleted {
		t.Errorf("thing = %+v, want Deleted", e)
	}
	if e := m["thing/inner.txt"]; e.Type != Added {
		t.Errorf("thing/inner.txt = %+v, want Added", e)
	}
}

func TestDiff_RenameExactContent(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b1", "same content\n")

	old := s.addTree("t-old", file("before.txt", "b1"))
	newT := s.addTree("t-new", file("after.txt", "b1"))

	d := New(s)
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want single rename", entries)
	}
	e := entries[0]
	if e.Type != Renamed || e.Path != "after.txt" || e.OldPath != "before.txt" {
		t.Errorf("entry = %+v, want Renamed before.txt -> after.txt", e)
	}
}

func TestDiff_RenameSimilarContent(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b-old", "line1\nline2\nline3\nline4\nline5\n")
	s.addBlob("b-new", "line1\nline2\nline3\nline4\nchanged\n")

	old := s.addTree("t-old", file("before.txt", "b-old"))
	newT := s.addTree("t-new", file("after.txt", "b-new"))

	d := New(s)
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Type != Renamed {
		t.Fatalf("entries = %v, want single similarity rename", entries)
	}
}

func TestDiff_DissimilarStaysAddDelete(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b-old", "alpha\nbeta\ngamma\n")
	s.addBlob("b-new", "one\ntwo\nthree\n")

	old := s.addTree("t-old", file("before.txt", "b-old"))
	newT := s.addTree("t-new", file("after.txt", "b-new"))

	d := New(s)
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v, want separate add and delete", entries)
	}
}

func TestDiff_CopyDetection(t *testing.T) {
	s := newFakeStore()
	s.addBlob("b-orig", "original\ncontent\n")
	s.addBlob("b-edit", "edited\ncontent\n")

	old := s.addTree("t-old", file("source.txt", "b-orig"))
	newT := s.addTree("t-new",
		file("source.txt", "b-edit"),
		file("copy.txt", "b-orig"),
	)

	d := New(s)
	entries, err := d.Diff(context.Background(), old, newT)
	if err != nil {
		t.Fatal(err)
	}
	m := byPath(entries)
	if e := m["copy.txt"]; e.Type != Copied || e.OldPath != "source.txt" {
		t.Errorf("copy.txt = %+v, want Copied from source.txt", e)
	}
	if e := m["source.txt"]; e.Type != Modified {
		t.Errorf("source.txt = %+v, want Modified", e)
	}
}
