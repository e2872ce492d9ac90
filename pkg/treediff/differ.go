// Package treediff computes path-level differences between two directory
// snapshots. The walk is synchronized over sorted entries and skips
// unchanged subtrees without descending, so cost is proportional to the
// number of changed entries rather than total tree size.
package treediff

import (
	"context"
	"fmt"
	"path"

	"github.com/preflightvcs/preflight/pkg/textmerge"
	"github.com/preflightvcs/preflight/pkg/vcs"
)

// ChangeType classifies what happened to a path between two trees.
type ChangeType int

const (
	Added ChangeType = iota
	Modified
	Deleted
	Renamed
	Copied
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	case Copied:
		return "copied"
	default:
		return "unknown"
	}
}

// ChangeEntry is one row of a tree-to-tree diff. OldPath is set only for
// Renamed and Copied entries.
type ChangeEntry struct {
	Path    string
	Type    ChangeType
	OldPath string
	OldBlob vcs.BlobID
	NewBlob vcs.BlobID
}

// Reader is the object access the differ needs.
type Reader interface {
	vcs.TreeReader
	vcs.BlobReader
}

const defaultSimilarity = 0.6

// Differ diffs trees through a Reader. Rename and copy detection is
// best-effort similarity matching, not a correctness guarantee: a clearly
// identical deleted/added pair is reported as a rename, marginal cases may
// stay as separate delete and add rows.
type Differ struct {
	reader vcs.TreeReader
	blobs  vcs.BlobReader

	// DetectRenames enables the rename/copy pass. On by default via New.
	DetectRenames bool

	// Similarity is the minimum common-line ratio for a rename match.
	// Zero means the default threshold of 0.6.
	Similarity float64
}

// New returns a Differ with rename detection enabled.
func New(r Reader) *Differ {
	return &Differ{reader: r, blobs: r, DetectRenames: true}
}

// Diff produces the changes that transform old into new. Either ID may be
// empty, meaning an empty tree (everything added or everything deleted).
// A failed read anywhere fails the whole call; no partial diff is returned.
func (d *Differ) Diff(ctx context.Context, oldID, newID vcs.TreeID) ([]ChangeEntry, error) {
	if oldID == newID {
		return nil, nil
	}

	var entries []ChangeEntry
	if err := d.walk(ctx, oldID, newID, "", &entries); err != nil {
		return nil, err
	}

	if d.DetectRenames {
		var err error
		entries, err = d.detectRenames(ctx, entries)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// walk diffs two trees recursively. Empty tree IDs stand for absent trees.
func (d *Differ) walk(ctx context.Context, oldID, newID vcs.TreeID, prefix string, out *[]ChangeEntry) error {
	oldTree, err := d.readTree(ctx, oldID)
	if err != nil {
		return err
	}
	newTree, err := d.readTree(ctx, newID)
	if err != nil {
		return err
	}

	oi, ni := 0, 0
	for oi < len(oldTree.Entries) || ni < len(newTree.Entries) {
		switch {
		case ni >= len(newTree.Entries) || (oi < len(oldTree.Entries) && oldTree.Entries[oi].Name < newTree.Entries[ni].Name):
			// Present only in old.
			if err := d.emitAll(ctx, oldTree.Entries[oi], prefix, Deleted, out); err != nil {
				return err
			}
			oi++

		case oi >= len(oldTree.Entries) || newTree.Entries[ni].Name < oldTree.Entries[oi].Name:
			// Present only in new.
			if err := d.emitAll(ctx, newTree.Entries[ni], prefix, Added, out); err != nil {
				return err
			}
			ni++

		default:
			oe, ne := oldTree.Entries[oi], newTree.Entries[ni]
			oi++
			ni++
			p := path.Join(prefix, oe.Name)

			switch {
			case oe.IsDir && ne.IsDir:
				if oe.Subtree == ne.Subtree {
					continue // unchanged subtree, do not descend
				}
				if err := d.walk(ctx, oe.Subtree, ne.Subtree, p, out); err != nil {
					return err
				}
			case !oe.IsDir && !ne.IsDir:
				if oe.Blob != ne.Blob {
					*out = append(*out, ChangeEntry{Path: p, Type: Modified, OldBlob: oe.Blob, NewBlob: ne.Blob})
				}
			default:
				// File replaced by directory or vice versa.
				if err := d.emitAll(ctx, oe, prefix, Deleted, out); err != nil {
					return err
				}
				if err := d.emitAll(ctx, ne, prefix, Added, out); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// emitAll emits one entry, descending into directories so every contained
// file becomes its own Added or Deleted row.
func (d *Differ) emitAll(ctx context.Context, e vcs.TreeEntry, prefix string, typ ChangeType, out *[]ChangeEntry) error {
	p := path.Join(prefix, e.Name)
	if !e.IsDir {
		entry := ChangeEntry{Path: p, Type: typ}
		if typ == Deleted {
			entry.OldBlob = e.Blob
		} else {
			entry.NewBlob = e.Blob
		}
		*out = append(*out, entry)
		return nil
	}

	tree, err := d.readTree(ctx, e.Subtree)
	if err != nil {
		return err
	}
	for _, child := range tree.Entries {
		if err := d.emitAll(ctx, child, p, typ, out); err != nil {
			return err
		}
	}
	return nil
}

func (d *Differ) readTree(ctx context.Context, id vcs.TreeID) (*vcs.Tree, error) {
	if id == "" {
		return &vcs.Tree{}, nil
	}
	tree, err := d.reader.ReadTree(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	return tree, nil
}

// detectRenames pairs Deleted rows with Added rows of near-identical
// content. An exact blob-ID match is a rename outright; otherwise content
// similarity decides. An added blob identical to the pre-image of a
// Modified row is reported as a copy of that path.
func (d *Differ) detectRenames(ctx context.Context, entries []ChangeEntry) ([]ChangeEntry, error) {
	threshold := d.Similarity
	if threshold <= 0 {
		threshold = defaultSimilarity
	}

	var deleted, added []int
	oldBlobAt := make(map[vcs.BlobID]string) // modified pre-images, for copy detection
	for i, e := range entries {
		switch e.Type {
		case Deleted:
			deleted = append(deleted, i)
		case Added:
			added = append(added, i)
		case Modified:
			if e.OldBlob != "" {
				oldBlobAt[e.OldBlob] = e.Path
			}
		}
	}
	if len(added) == 0 {
		return entries, nil
	}

	matched := make(map[int]bool) // deleted indices already paired
	drop := make(map[int]bool)    // entries folded into a rename

	for _, ai := range added {
		add := &entries[ai]

		// Pass 1: exact content match.
		paired := false
		for _, di := range deleted {
			if matched[di] {
				continue
			}
			if entries[di].OldBlob != "" && entries[di].OldBlob == add.NewBlob {
				add.Type = Renamed
				add.OldPath = entries[di].Path
				add.OldBlob = entries[di].OldBlob
				matched[di] = true
				drop[di] = true
				paired = true
				break
			}
		}
		if paired {
			continue
		}

		// Copy: added content identical to a pre-image that survived at
		// its own path (its row is Modified, not Deleted).
		if src, ok := oldBlobAt[add.NewBlob]; ok {
			add.Type = Copied
			add.OldPath = src
			continue
		}

		// Pass 2: similarity match against remaining deletions.
		addData, err := d.readBlob(ctx, add.NewBlob)
		if err != nil {
			return nil, err
		}
		if len(addData) == 0 {
			continue
		}
		for _, di := range deleted {
			if matched[di] {
				continue
			}
			delData, err := d.readBlob(ctx, entries[di].OldBlob)
			if err != nil {
				return nil, err
			}
			if similarity(delData, addData) >= threshold {
				add.Type = Renamed
				add.OldPath = entries[di].Path
				add.OldBlob = entries[di].OldBlob
				matched[di] = true
				drop[di] = true
				break
			}
		}
	}

	if len(drop) == 0 {
		return entries, nil
	}
	out := entries[:0]
	for i := range entries {
		if !drop[i] {
			out = append(out, entries[i])
		}
	}
	return out, nil
}

func (d *Differ) readBlob(ctx context.Context, id vcs.BlobID) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	data, err := d.blobs.ReadBlob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	return data, nil
}

// similarity is the ratio of common lines between a and b, in [0, 1].
func similarity(a, b []byte) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	aLines := splitCount(a)
	bLines := splitCount(b)
	if aLines == 0 || bLines == 0 {
		return 0
	}

	equal := 0
	for _, sp := range textmerge.DiffLines(splitAll(a), splitAll(b)) {
		if sp.Matched {
			equal += sp.BaseHi - sp.BaseLo
		}
	}
	return float64(2*equal) / float64(aLines+bLines)
}

func splitAll(data []byte) []string {
	var lines []string
	start := 0
	for i, c := range data {
		if c == '\n' {
			lines = append(lines, string(data[start:i]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

func splitCount(data []byte) int {
	return len(splitAll(data))
}
