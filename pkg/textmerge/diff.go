package textmerge

// Span pairs a run of base lines [BaseLo, BaseHi) with the side lines
// [SideLo, SideHi) that correspond to it. A matched span has identical
// content on both sides; an unmatched span is a replacement, where either
// range may be empty.
type Span struct {
	BaseLo, BaseHi int
	SideLo, SideHi int
	Matched        bool
}

// DiffLines computes a minimal line-level edit between base and side using
// Myers' greedy shortest-edit search. Lines compare by exact equality, no
// whitespace normalization. The common prefix and suffix are stripped
// before the search runs, so cost follows the size of the changed region
// rather than the whole file.
func DiffLines(base, side []string) []Span {
	n, m := len(base), len(side)

	pre := 0
	for pre < n && pre < m && base[pre] == side[pre] {
		pre++
	}
	suf := 0
	for suf < n-pre && suf < m-pre && base[n-1-suf] == side[m-1-suf] {
		suf++
	}

	var spans []Span
	if pre > 0 {
		spans = append(spans, Span{BaseHi: pre, SideHi: pre, Matched: true})
	}
	spans = append(spans, searchSpans(base[pre:n-suf], side[pre:m-suf], pre)...)
	if suf > 0 {
		spans = append(spans, Span{
			BaseLo: n - suf, BaseHi: n,
			SideLo: m - suf, SideHi: m,
			Matched: true,
		})
	}
	return spans
}

// searchSpans runs the d-by-d frontier search over the trimmed inputs and
// rebuilds the edit path from the recorded frontiers. off shifts every
// emitted index back into the caller's coordinates.
func searchSpans(a, b []string, off int) []Span {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}
	if n == 0 || m == 0 {
		return []Span{{BaseLo: off, BaseHi: off + n, SideLo: off, SideHi: off + m}}
	}

	// frontiers[d] maps each diagonal k to the furthest x reached before
	// step d runs, i.e. the state left behind by step d-1.
	var frontiers []map[int]int
	reach := map[int]int{1: 0}
	goal := -1

search:
	for d := 0; d <= n+m; d++ {
		snap := make(map[int]int, len(reach))
		for k, x := range reach {
			snap[k] = x
		}
		frontiers = append(frontiers, snap)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && reach[k-1] < reach[k+1]) {
				x = reach[k+1]
			} else {
				x = reach[k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			reach[k] = x
			if x >= n && y >= m {
				goal = d
				break search
			}
		}
	}
	if goal < 0 {
		// Unreachable for consistent inputs.
		return []Span{{BaseLo: off, BaseHi: off + n, SideLo: off, SideHi: off + m}}
	}

	return walkBack(frontiers, n, m, goal, off)
}

// walkBack retraces the edit path from (n, m) to the origin, emitting
// spans in reverse order and coalescing adjacent replacements into one
// unmatched span.
func walkBack(frontiers []map[int]int, n, m, goal, off int) []Span {
	x, y := n, m

	var rev []Span
	replace := func(bLo, bHi, sLo, sHi int) {
		if last := len(rev) - 1; last >= 0 && !rev[last].Matched &&
			rev[last].BaseLo == bHi && rev[last].SideLo == sHi {
			rev[last].BaseLo = bLo
			rev[last].SideLo = sLo
			return
		}
		rev = append(rev, Span{BaseLo: bLo, BaseHi: bHi, SideLo: sLo, SideHi: sHi})
	}

	for d := goal; d > 0; d-- {
		prev := frontiers[d]
		k := x - y

		var fromK int
		if k == -d || (k != d && prev[k-1] < prev[k+1]) {
			fromK = k + 1
		} else {
			fromK = k - 1
		}
		fx := prev[fromK]
		fy := fx - fromK

		// Landing point of the single edit taken at this step; anything
		// past it up to (x, y) is the trailing snake of matched lines.
		mx, my := fx, fy
		if fromK == k+1 {
			my++
		} else {
			mx++
		}
		if x > mx {
			rev = append(rev, Span{BaseLo: mx, BaseHi: x, SideLo: my, SideHi: y, Matched: true})
		}
		if fromK == k+1 {
			replace(fx, fx, fy, fy+1)
		} else {
			replace(fx, fx+1, fy, fy)
		}
		x, y = fx, fy
	}
	if x > 0 {
		rev = append(rev, Span{BaseHi: x, SideHi: y, Matched: true})
	}

	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	for i := range rev {
		rev[i].BaseLo += off
		rev[i].BaseHi += off
		rev[i].SideLo += off
		rev[i].SideHi += off
	}
	return rev
}
