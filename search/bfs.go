// Package search holds the graph searches used by the engine. Every function is
// generic over the node type and takes the neighbour function as an argument,
// so the same code walks plain board points or composite (point, time) states.
package search

// queue is a FIFO over a slice; popped slots are released by reslicing.
type queue[T any] struct {
	items []T
	head  int
}

func (q *queue[T]) push(v T) { q.items = append(q.items, v) }
func (q *queue[T]) empty() bool { return q.head >= len(q.items) }

func (q *queue[T]) pop() T {
	v := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head > 64 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return v
}

// BreadthFirst explores nearest-first from start and returns the first node
// satisfying isGoal. Each node is expanded at most once.
func BreadthFirst[T comparable](start T, isGoal func(T) bool, neighbors func(T) []T) (T, bool) {
	seen := map[T]struct{}{start: {}}
	q := queue[T]{items: []T{start}}
	for !q.empty() {
		n := q.pop()
		if isGoal(n) {
			return n, true
		}
		for _, next := range neighbors(n) {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			q.push(next)
		}
	}
	var zero T
	return zero, false
}

// Distances returns the BFS depth of every node reachable from start.
func Distances[T comparable](start T, neighbors func(T) []T) map[T]int {
	dist := map[T]int{start: 0}
	q := queue[T]{items: []T{start}}
	for !q.empty() {
		n := q.pop()
		d := dist[n]
		for _, next := range neighbors(n) {
			if _, ok := dist[next]; ok {
				continue
			}
			dist[next] = d + 1
			q.push(next)
		}
	}
	return dist
}
