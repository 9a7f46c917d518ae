package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/snekmax/game"
)

// Frame renders a state for the live arena view: a header line, the board,
// and one line per snake.
func Frame(state *game.GameState, result *GameResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "turn %d  ruleset %s  alive %d/%d\n\n", state.Turn, state.Ruleset.Name, state.AliveCount(), len(state.Snakes))
	sb.WriteString(game.Render(state))
	sb.WriteString("\n")
	other := rune(0)
	for i := range state.Snakes {
		s := &state.Snakes[i]
		label := 'O'
		if s.Id != state.YouId {
			label = 'A' + other%26
			other++
		}
		status := "alive"
		if !s.Alive() {
			status = "dead"
		}
		fmt.Fprintf(&sb, "%c %-8s len=%-3d hp=%-3d %s\n", label, short(s.Id), s.Length(), s.Health, status)
	}
	if result != nil {
		winner := "draw"
		if result.WinnerID != "" {
			winner = short(result.WinnerID)
		}
		fmt.Fprintf(&sb, "\ngame over after %d turns: %s\n", result.Turns, winner)
	}
	return sb.String()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
