package search

// FloodFill returns every node for which include holds and that is connected
// to start through included nodes only. start itself must satisfy include,
// otherwise the result is empty.
func FloodFill[T comparable](start T, include func(T) bool, neighbors func(T) []T) map[T]struct{} {
	out := make(map[T]struct{})
	if !include(start) {
		return out
	}
	out[start] = struct{}{}
	q := queue[T]{items: []T{start}}
	for !q.empty() {
		n := q.pop()
		for _, next := range neighbors(n) {
			if _, ok := out[next]; ok {
				continue
			}
			if !include(next) {
				continue
			}
			out[next] = struct{}{}
			q.push(next)
		}
	}
	return out
}
