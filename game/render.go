package game

import (
	"fmt"
	"strings"
)

// Render draws the board top-to-bottom. The controlled snake uses 'O' for its
// head and 'o' for its body; other snakes use 'A'/'a', 'B'/'b', ... in slice
// order. Food is '*', hazards are '~', dead snakes are not drawn.
func Render(state *GameState) string {
	if state == nil {
		return "<nil state>\n"
	}
	w, h := int(state.Width), int(state.Height)
	if w <= 0 || h <= 0 {
		return "<empty board>\n"
	}

	grid := make([][]byte, h)
	for y := range grid {
		grid[y] = make([]byte, w)
		for x := range grid[y] {
			grid[y][x] = '.'
		}
	}
	put := func(p Point, c byte) {
		if p.X >= 0 && int(p.X) < w && p.Y >= 0 && int(p.Y) < h {
			grid[p.Y][p.X] = c
		}
	}

	for _, hz := range state.Hazards {
		put(hz, '~')
	}
	for _, f := range state.Food {
		put(f, '*')
	}

	other := byte(0)
	for i := range state.Snakes {
		s := &state.Snakes[i]
		body, head := byte('o'), byte('O')
		if s.Id != state.YouId {
			body = 'a' + other%26
			head = body - 32
			other++
		}
		if !s.Alive() {
			continue
		}
		// Draw tail first so the head wins on stacked segments.
		for j := len(s.Body) - 1; j >= 0; j-- {
			if j == 0 {
				put(s.Body[j], head)
			} else {
				put(s.Body[j], body)
			}
		}
	}

	var sb strings.Builder
	for y := h - 1; y >= 0; y-- {
		sb.Write(grid[y])
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Describe is a one-line-per-snake summary used in logs and test output.
func Describe(state *GameState) string {
	if state == nil {
		return "<nil state>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Turn=%d Size=%dx%d You=%s Ruleset=%s\n", state.Turn, state.Width, state.Height, state.YouId, state.Ruleset.Name)
	fmt.Fprintf(&b, "Food(%d):", len(state.Food))
	for _, f := range state.Food {
		fmt.Fprintf(&b, " (%d,%d)", f.X, f.Y)
	}
	b.WriteString("\n")
	for _, s := range state.Snakes {
		fmt.Fprintf(&b, "Snake %s Health=%d Len=%d Body:", s.Id, s.Health, len(s.Body))
		for _, p := range s.Body {
			fmt.Fprintf(&b, " (%d,%d)", p.X, p.Y)
		}
		b.WriteString("\n")
	}
	return b.String()
}
