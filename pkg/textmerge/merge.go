// Package textmerge implements a line-oriented three-way merge. It is a
// pure function of (base, local, remote) content: the diffs base→local and
// base→remote are computed independently, non-overlapping changes apply in
// sequence, and overlapping changes with differing content become conflict
// blocks carrying all three line ranges.
package textmerge

import (
	"bytes"
	"slices"
	"strings"
	"unicode/utf8"
)

// ConflictBlock is one contiguous conflicting region. BeginLine and EndLine
// address the base content, 1-based with EndLine exclusive; BeginLine is
// always strictly less than EndLine (a pure-insertion conflict covers the
// single base line at the insertion point). A binary whole-file conflict
// carries the line ranges only: BaseLines, LocalLines, and RemoteLines stay
// empty because the content is not line-structured.
type ConflictBlock struct {
	BeginLine   int
	EndLine     int
	BaseLines   []string
	LocalLines  []string
	RemoteLines []string
}

// Outcome is the result of merging one file. When Clean is true, Merged is
// the merged content and Conflicts is empty. When Clean is false, Conflicts
// holds one block per conflicting region and Merged contains the content
// with <<<<<<< local / ======= / >>>>>>> remote markers.
type Outcome struct {
	Clean     bool
	Merged    []byte
	Conflicts []ConflictBlock
}

const binarySniffLen = 8000

// isBinary reports whether data should be treated as non-text: a NUL byte
// in the leading section, or content that is not valid UTF-8.
func isBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}

// Merge performs a three-way merge of base, local, and remote. It is
// deterministic and side-effect free; identical inputs always produce
// identical output.
func Merge(base, local, remote []byte) Outcome {
	// Trivial resolutions that need no line analysis.
	if bytes.Equal(local, remote) {
		return Outcome{Clean: true, Merged: append([]byte(nil), local...)}
	}
	if bytes.Equal(base, local) {
		return Outcome{Clean: true, Merged: append([]byte(nil), remote...)}
	}
	if bytes.Equal(base, remote) {
		return Outcome{Clean: true, Merged: append([]byte(nil), local...)}
	}

	// Binary content is never merged byte-for-byte: both sides changed it
	// (the trivial cases above already ruled out one-sided edits), so the
	// whole file is one conflict block.
	if isBinary(base) || isBinary(local) || isBinary(remote) {
		baseLineCount := len(splitLines(base))
		end := baseLineCount + 1
		if end < 2 {
			end = 2
		}
		return Outcome{
			Clean:  false,
			Merged: renderWholeFileConflict(local, remote),
			Conflicts: []ConflictBlock{{
				BeginLine: 1,
				EndLine:   end,
			}},
		}
	}

	baseLines := splitLines(base)
	localLines := splitLines(local)
	remoteLines := splitLines(remote)

	localChunks := buildChunks(baseLines, localLines)
	remoteChunks := buildChunks(baseLines, remoteLines)

	return mergeChunks(baseLines, localChunks, remoteChunks)
}

// splitLines breaks data into lines at '\n'. A final newline terminates
// the last line rather than opening an empty one.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte{'\n'})
	return strings.Split(string(data), "\n")
}

// chunk represents a contiguous region relative to the base.
type chunk struct {
	baseStart, baseEnd int      // range [baseStart, baseEnd) in base
	lines              []string // replacement lines for this region
	changed            bool     // true if this region differs from base
}

// buildChunks converts the base→side diff into base-aligned chunks.
// Matched spans split into one chunk per base line so the two sides stay
// aligned when mergeChunks walks them in parallel; each replacement span
// becomes a single changed chunk.
func buildChunks(base, side []string) []chunk {
	var chunks []chunk
	for _, sp := range DiffLines(base, side) {
		if !sp.Matched {
			chunks = append(chunks, chunk{
				baseStart: sp.BaseLo,
				baseEnd:   sp.BaseHi,
				lines:     side[sp.SideLo:sp.SideHi],
				changed:   true,
			})
			continue
		}
		for i := sp.BaseLo; i < sp.BaseHi; i++ {
			chunks = append(chunks, chunk{
				baseStart: i,
				baseEnd:   i + 1,
				lines:     base[i : i+1],
			})
		}
	}
	return chunks
}

// mergeChunks walks two chunk sequences (local and remote) in parallel,
// aligned by base-line positions, to produce the merge result.
func mergeChunks(baseLines []string, localChunks, remoteChunks []chunk) Outcome {
	var merged bytes.Buffer
	var conflicts []ConflictBlock

	li := 0 // index into localChunks
	ri := 0 // index into remoteChunks

	for li < len(localChunks) || ri < len(remoteChunks) {
		var lc, rc *chunk
		if li < len(localChunks) {
			lc = &localChunks[li]
		}
		if ri < len(remoteChunks) {
			rc = &remoteChunks[ri]
		}

		if lc == nil {
			// Only remote left.
			writeChunk(&merged, rc)
			ri++
			continue
		}
		if rc == nil {
			// Only local left.
			writeChunk(&merged, lc)
			li++
			continue
		}

		// Both chunks available. They should cover the same base region
		// since they are derived from the same base.
		if lc.baseStart == rc.baseStart && lc.baseEnd == rc.baseEnd {
			switch {
			case !lc.changed && !rc.changed:
				// Both unchanged → take base.
				writeChunk(&merged, lc)
			case lc.changed && !rc.changed:
				// Only local changed → take local.
				writeChunk(&merged, lc)
			case !lc.changed && rc.changed:
				// Only remote changed → take remote.
				writeChunk(&merged, rc)
			default:
				// Both changed.
				if slices.Equal(lc.lines, rc.lines) {
					// Identical change → take either, clean.
					writeChunk(&merged, lc)
				} else {
					writeConflict(&merged, lc.lines, rc.lines)
					conflicts = append(conflicts, makeBlock(baseLines, lc.baseStart, lc.baseEnd, lc.lines, rc.lines))
				}
			}
			li++
			ri++
			continue
		}

		// Chunks are misaligned. This happens when one side has a change
		// that spans multiple base-aligned chunks on the other side.
		// Collect all overlapping chunks from both sides.
		regionStart := min(lc.baseStart, rc.baseStart)
		regionEnd := max(lc.baseEnd, rc.baseEnd)

		var localRegion []chunk
		for li < len(localChunks) && localChunks[li].baseStart < regionEnd {
			localRegion = append(localRegion, localChunks[li])
			if localChunks[li].baseEnd > regionEnd {
				regionEnd = localChunks[li].baseEnd
			}
			li++
		}

		var remoteRegion []chunk
		for ri < len(remoteChunks) && remoteChunks[ri].baseStart < regionEnd {
			remoteRegion = append(remoteRegion, remoteChunks[ri])
			if remoteChunks[ri].baseEnd > regionEnd {
				regionEnd = remoteChunks[ri].baseEnd
			}
			ri++
		}

		localOut, localChanged := flattenRegion(localRegion)
		remoteOut, remoteChanged := flattenRegion(remoteRegion)

		switch {
		case !localChanged && !remoteChanged:
			writeLines(&merged, baseLines[regionStart:regionEnd])
		case localChanged && !remoteChanged:
			writeLines(&merged, localOut)
		case !localChanged && remoteChanged:
			writeLines(&merged, remoteOut)
		default:
			if slices.Equal(localOut, remoteOut) {
				writeLines(&merged, localOut)
			} else {
				writeConflict(&merged, localOut, remoteOut)
				conflicts = append(conflicts, makeBlock(baseLines, regionStart, regionEnd, localOut, remoteOut))
			}
		}
	}

	return Outcome{
		Clean:     len(conflicts) == 0,
		Merged:    merged.Bytes(),
		Conflicts: conflicts,
	}
}

// makeBlock builds a ConflictBlock for the base region [baseStart, baseEnd)
// in 0-based coordinates. Pure insertions (empty base region) are widened
// to cover the line at the insertion point so BeginLine < EndLine holds.
func makeBlock(baseLines []string, baseStart, baseEnd int, localOut, remoteOut []string) ConflictBlock {
	b := ConflictBlock{
		BeginLine:   baseStart + 1,
		EndLine:     baseEnd + 1,
		LocalLines:  copyLines(localOut),
		RemoteLines: copyLines(remoteOut),
	}
	if baseStart < baseEnd {
		b.BaseLines = copyLines(baseLines[baseStart:baseEnd])
	}
	if b.EndLine <= b.BeginLine {
		b.EndLine = b.BeginLine + 1
	}
	return b
}

func copyLines(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}

func writeChunk(buf *bytes.Buffer, c *chunk) {
	writeLines(buf, c.lines)
}

func writeLines(buf *bytes.Buffer, lines []string) {
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
}

func writeConflict(buf *bytes.Buffer, localLines, remoteLines []string) {
	buf.WriteString("<<<<<<< local\n")
	writeLines(buf, localLines)
	buf.WriteString("=======\n")
	writeLines(buf, remoteLines)
	buf.WriteString(">>>>>>> remote\n")
}

// renderWholeFileConflict renders raw (possibly binary) content between
// conflict markers without splitting it into lines.
func renderWholeFileConflict(local, remote []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("<<<<<<< local\n")
	buf.Write(local)
	if len(local) > 0 && local[len(local)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString("=======\n")
	buf.Write(remote)
	if len(remote) > 0 && remote[len(remote)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(">>>>>>> remote\n")
	return buf.Bytes()
}

// flattenRegion concatenates the replacement lines of a run of chunks and
// reports whether any of them changed relative to the base.
func flattenRegion(chunks []chunk) (lines []string, changed bool) {
	for _, c := range chunks {
		lines = append(lines, c.lines...)
		changed = changed || c.changed
	}
	return lines, changed
}
