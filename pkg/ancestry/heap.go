package ancestry

import "github.com/preflightvcs/preflight/pkg/vcs"

// walkItem is one pending commit in the priority walk. Newest commit
// timestamp wins; ties fall back to the shorter graph distance, then to
// the commit ID so the walk is deterministic.
type walkItem struct {
	id    vcs.CommitID
	when  int64
	depth int
}

type walkMaxHeap []walkItem

func (h walkMaxHeap) Len() int { return len(h) }

func (h walkMaxHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when > h[j].when
	}
	if h[i].depth != h[j].depth {
		return h[i].depth < h[j].depth
	}
	return h[i].id < h[j].id
}

func (h walkMaxHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *walkMaxHeap) Push(x any) {
	*h = append(*h, x.(walkItem))
}

func (h *walkMaxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
