package search

import "container/heap"

type frontierItem[T any] struct {
	node T
	g    int
	f    int
	seq  int
}

// frontier orders by f, then by larger g (deeper first), then by insertion
// order so equal-priority expansions are reproducible.
type frontier[T any] []frontierItem[T]

func (h frontier[T]) Len() int { return len(h) }
func (h frontier[T]) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].g != h[j].g {
		return h[i].g > h[j].g
	}
	return h[i].seq < h[j].seq
}
func (h frontier[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *frontier[T]) Push(x any)   { *h = append(*h, x.(frontierItem[T])) }
func (h *frontier[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// ShortestPath is an A* search from start to the first node satisfying
// isGoal. heuristic must be admissible and consistent; nil means zero
// (uniform-cost search). cost is the edge weight; nil means 1 per step.
// The returned path includes both start and goal.
func ShortestPath[T comparable](start T, isGoal func(T) bool, neighbors func(T) []T, heuristic func(T) int, cost func(from, to T) int) ([]T, bool) {
	if heuristic == nil {
		heuristic = func(T) int { return 0 }
	}
	if cost == nil {
		cost = func(T, T) int { return 1 }
	}

	best := map[T]int{start: 0}
	parent := map[T]T{}
	closed := map[T]struct{}{}
	seq := 0

	h := &frontier[T]{{node: start, g: 0, f: heuristic(start)}}
	for h.Len() > 0 {
		it := heap.Pop(h).(frontierItem[T])
		if _, done := closed[it.node]; done {
			continue
		}
		if it.g > best[it.node] {
			continue
		}
		if isGoal(it.node) {
			return buildPath(parent, start, it.node), true
		}
		closed[it.node] = struct{}{}

		for _, next := range neighbors(it.node) {
			if _, done := closed[next]; done {
				continue
			}
			g := it.g + cost(it.node, next)
			if old, ok := best[next]; ok && g >= old {
				continue
			}
			best[next] = g
			parent[next] = it.node
			seq++
			heap.Push(h, frontierItem[T]{node: next, g: g, f: g + heuristic(next), seq: seq})
		}
	}
	return nil, false
}

func buildPath[T comparable](parent map[T]T, start, goal T) []T {
	path := []T{goal}
	for n := goal; n != start; {
		n = parent[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
