package textmerge

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMerge_IdenticalSides(t *testing.T) {
	base := []byte("a\nb\nc\n")
	side := []byte("a\nX\nc\n")

	out := Merge(base, side, side)
	if !out.Clean {
		t.Fatalf("expected clean merge, got conflicts %v", out.Conflicts)
	}
	if !bytes.Equal(out.Merged, side) {
		t.Errorf("merged = %q, want %q", out.Merged, side)
	}
}

func TestMerge_OnlyLocalChanged(t *testing.T) {
	base := []byte("a\nb\nc\n")
	local := []byte("a\nX\nc\n")

	out := Merge(base, local, base)
	if !out.Clean {
		t.Fatalf("expected clean merge, got conflicts %v", out.Conflicts)
	}
	if !bytes.Equal(out.Merged, local) {
		t.Errorf("merged = %q, want %q", out.Merged, local)
	}
}

func TestMerge_OnlyRemoteChanged(t *testing.T) {
	base := []byte("a\nb\nc\n")
	remote := []byte("a\nY\nc\n")

	out := Merge(base, base, remote)
	if !out.Clean {
		t.Fatalf("expected clean merge, got conflicts %v", out.Conflicts)
	}
	if !bytes.Equal(out.Merged, remote) {
		t.Errorf("merged = %q, want %q", out.Merged, remote)
	}
}

func TestMerge_SameLineConflict(t *testing.T) {
	base := []byte("a\nb\nc\n")
	local := []byte("a\nX\nc\n")
	remote := []byte("a\nY\nc\n")

	out := Merge(base, local, remote)
	if out.Clean {
		t.Fatal("expected conflict")
	}
	if len(out.Conflicts) != 1 {
		t.Fatalf("got %d conflict blocks, want 1: %v", len(out.Conflicts), out.Conflicts)
	}

	b := out.Conflicts[0]
	if b.BeginLine != 2 || b.EndLine != 3 {
		t.Errorf("block range = [%d,%d), want [2,3)", b.BeginLine, b.EndLine)
	}
	if !reflect.DeepEqual(b.BaseLines, []string{"b"}) {
		t.Errorf("BaseLines = %v, want [b]", b.BaseLines)
	}
	if !reflect.DeepEqual(b.LocalLines, []string{"X"}) {
		t.Errorf("LocalLines = %v, want [X]", b.LocalLines)
	}
	if !reflect.DeepEqual(b.RemoteLines, []string{"Y"}) {
		t.Errorf("RemoteLines = %v, want [Y]", b.RemoteLines)
	}

	for _, marker := range []string{"<<<<<<< local", "=======", ">>>>>>> remote"} {
		if !bytes.Contains(out.Merged, []byte(marker)) {
			t.Errorf("merged output missing marker %q:\n%s", marker, out.Merged)
		}
	}
}

func TestMerge_SwapSymmetry(t *testing.T) {
	base := []byte("a\nb\nc\nd\n")
	local := []byte("a\nX\nc\nd\n")
	remote := []byte("a\nY\nc\nZ\n")

	fwd := Merge(base, local, remote)
	rev := Merge(base, remote, local)

	if fwd.Clean != rev.Clean {
		t.Fatalf("clean mismatch: %v vs %v", fwd.Clean, rev.Clean)
	}
	if len(fwd.Conflicts) != len(rev.Conflicts) {
		t.Fatalf("conflict count mismatch: %d vs %d", len(fwd.Conflicts), len(rev.Conflicts))
	}
	for i := range fwd.Conflicts {
		f, r := fwd.Conflicts[i], rev.Conflicts[i]
		if f.BeginLine != r.BeginLine || f.EndLine != r.EndLine {
			t.Errorf("block %d range mismatch: [%d,%d) vs [%d,%d)",
				i, f.BeginLine, f.EndLine, r.BeginLine, r.EndLine)
		}
		if !reflect.DeepEqual(f.LocalLines, r.RemoteLines) || !reflect.DeepEqual(f.RemoteLines, r.LocalLines) {
			t.Errorf("block %d sides not mirrored: %v/%v vs %v/%v",
				i, f.LocalLines, f.RemoteLines, r.LocalLines, r.RemoteLines)
		}
	}
}

func TestMerge_PrependAppendClean(t *testing.T) {
	base := []byte("a\nb\nc\n")
	local := []byte("p\na\nb\nc\n")
	remote := []byte("a\nb\nc\nz\n")

	out := Merge(base, local, remote)
	if !out.Clean {
		t.Fatalf("expected clean merge, got conflicts %v", out.Conflicts)
	}
	want := []byte("p\na\nb\nc\nz\n")
	if !bytes.Equal(out.Merged, want) {
		t.Errorf("merged = %q, want %q", out.Merged, want)
	}
}

func TestMerge_DeleteVersusModify(t *testing.T) {
	base := []byte("a\nb\nc\n")
	local := []byte("a\nc\n")
	remote := []byte("a\nB\nc\n")

	out := Merge(base, local, remote)
	if out.Clean {
		t.Fatal("expected conflict")
	}
	if len(out.Conflicts) != 1 {
		t.Fatalf("got %d conflict blocks, want 1", len(out.Conflicts))
	}
	b := out.Conflicts[0]
	if len(b.LocalLines) != 0 {
		t.Errorf("LocalLines = %v, want empty (deletion)", b.LocalLines)
	}
	if !reflect.DeepEqual(b.RemoteLines, []string{"B"}) {
		t.Errorf("RemoteLines = %v, want [B]", b.RemoteLines)
	}
}

func TestMerge_EmptyBaseBothAdd(t *testing.T) {
	out := Merge(nil, []byte("x\n"), []byte("y\n"))
	if out.Clean {
		t.Fatal("expected conflict")
	}
	if len(out.Conflicts) != 1 {
		t.Fatalf("got %d conflict blocks, want 1", len(out.Conflicts))
	}
	b := out.Conflicts[0]
	if b.BeginLine >= b.EndLine {
		t.Errorf("block range [%d,%d) is empty", b.BeginLine, b.EndLine)
	}
}

func TestMerge_BinaryConflict(t *testing.T) {
	base := []byte("plain\ntext\n")
	local := []byte{0x00, 0x01, 0x02}
	remote := []byte{0x00, 0x03, 0x04}

	out := Merge(base, local, remote)
	if out.Clean {
		t.Fatal("expected whole-file conflict for binary content")
	}
	if len(out.Conflicts) != 1 {
		t.Fatalf("got %d conflict blocks, want 1", len(out.Conflicts))
	}
	b := out.Conflicts[0]
	if b.BeginLine != 1 {
		t.Errorf("BeginLine = %d, want 1", b.BeginLine)
	}
	if b.EndLine <= b.BeginLine {
		t.Errorf("block range [%d,%d) is empty", b.BeginLine, b.EndLine)
	}
	// Binary blocks carry ranges only.
	if len(b.BaseLines) != 0 || len(b.LocalLines) != 0 || len(b.RemoteLines) != 0 {
		t.Errorf("binary block carries lines: base=%v local=%v remote=%v",
			b.BaseLines, b.LocalLines, b.RemoteLines)
	}
}

func TestMerge_BinaryOneSidedStaysClean(t *testing.T) {
	base := []byte{0x00, 0x01}
	local := []byte{0x00, 0x01}
	remote := []byte{0x00, 0x02}

	out := Merge(base, local, remote)
	if !out.Clean {
		t.Fatalf("one-sided binary change should resolve cleanly, got %v", out.Conflicts)
	}
	if !bytes.Equal(out.Merged, remote) {
		t.Errorf("merged = %v, want remote content", out.Merged)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	base := []byte("a\nb\nc\nd\ne\n")
	local := []byte("a\nB1\nc\nd\nE1\n")
	remote := []byte("a\nB2\nc\nd\nE2\n")

	first := Merge(base, local, remote)
	for i := 0; i < 5; i++ {
		again := Merge(base, local, remote)
		if !bytes.Equal(first.Merged, again.Merged) {
			t.Fatal("merged output changed between runs")
		}
		if !reflect.DeepEqual(first.Conflicts, again.Conflicts) {
			t.Fatal("conflict blocks changed between runs")
		}
	}
}

func TestIsBinary(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, false},
		{"text", []byte("hello\nworld\n"), false},
		{"utf8", []byte("héllo wörld"), false},
		{"nul byte", []byte{'a', 0x00, 'b'}, true},
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}, true},
	}
	for _, tc := range cases {
		if got := isBinary(tc.data); got != tc.want {
			t.Errorf("%s: isBinary = %v, want %v", tc.name, got, tc.want)
		}
	}
}
