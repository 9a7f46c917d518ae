// Package replay fetches finished games from the Battlesnake engine and
// re-runs the decision engine over them turn by turn.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/snekmax/game"
)

type DownloadConfig struct {
	// EngineURL is a template with one %s for the game ID.
	EngineURL      string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		EngineURL:      "wss://engine.battlesnake.com/games/%s/events",
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    30 * time.Second,
	}
}

// ErrNoFrames is returned when a stream ends before any frame arrived.
var ErrNoFrames = errors.New("no frames received")

// Event is one message on the engine's event stream.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type GameInfo struct {
	Game GameDetails `json:"game"`
}

type GameDetails struct {
	ID      string      `json:"id"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Timeout int         `json:"timeout"`
	Map     string      `json:"map"`
	Ruleset RulesetInfo `json:"ruleset"`
}

type RulesetInfo struct {
	Name     string          `json:"name"`
	Settings RulesetSettings `json:"settings"`
}

type RulesetSettings struct {
	FoodSpawnChance     int `json:"foodSpawnChance"`
	MinimumFood         int `json:"minimumFood"`
	HazardDamagePerTurn int `json:"hazardDamagePerTurn"`
}

type Frame struct {
	Turn    int         `json:"turn"`
	Snakes  []SnakeData `json:"snakes"`
	Food    []Coord     `json:"food"`
	Hazards []Coord     `json:"hazards"`
}

type SnakeData struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Health int     `json:"health"`
	Body   []Coord `json:"body"`
	Death  *Death  `json:"death,omitempty"`
}

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Death struct {
	Cause string `json:"cause"`
	Turn  int    `json:"turn"`
}

// Game is a downloaded game: its settings and every frame in turn order.
type Game struct {
	Info   GameDetails
	Frames []Frame
}

// Winner names the sole survivor of the last frame, or "" for a draw.
func (g Game) Winner() string {
	if len(g.Frames) == 0 {
		return ""
	}
	var alive []string
	for _, s := range g.Frames[len(g.Frames)-1].Snakes {
		if s.Death == nil && s.Health > 0 {
			alive = append(alive, s.ID)
		}
	}
	if len(alive) == 1 {
		return alive[0]
	}
	return ""
}

// State converts frame i into the snapshot youID would have been sent.
// Dead snakes are kept with zero health so ids stay stable across turns.
func (g Game) State(i int, youID string) *game.GameState {
	f := g.Frames[i]
	state := &game.GameState{
		Width:   int32(g.Info.Width),
		Height:  int32(g.Info.Height),
		YouId:   youID,
		Turn:    int32(f.Turn),
		Food:    points(f.Food),
		Hazards: points(f.Hazards),
		Snakes:  make([]game.Snake, 0, len(f.Snakes)),
		Ruleset: game.Ruleset{
			Name:                game.RulesetName(g.Info.Ruleset.Name, g.Info.Map),
			FoodSpawnChance:     int32(g.Info.Ruleset.Settings.FoodSpawnChance),
			MinimumFood:         int32(g.Info.Ruleset.Settings.MinimumFood),
			HazardDamagePerTurn: int32(g.Info.Ruleset.Settings.HazardDamagePerTurn),
		},
		Solo: len(f.Snakes) == 1,
	}
	for _, s := range f.Snakes {
		health := int32(s.Health)
		if s.Death != nil {
			health = 0
		}
		state.Snakes = append(state.Snakes, game.Snake{Id: s.ID, Health: health, Body: points(s.Body)})
	}
	return state
}

func points(cs []Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	ps := make([]game.Point, len(cs))
	for i, c := range cs {
		ps[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return ps
}

// Download reads a game's event stream until the engine closes it or sends
// game_end. A stream that breaks after some frames is returned as is.
func Download(ctx context.Context, cfg DownloadConfig, gameID string, log *slog.Logger) (Game, error) {
	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, fmt.Sprintf(cfg.EngineURL, gameID), nil)
	if err != nil {
		return Game{}, fmt.Errorf("connect %s: %w", gameID, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	g := Game{Info: GameDetails{ID: gameID}}
	for {
		if cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Game{}, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || len(g.Frames) > 0 {
				break
			}
			return Game{}, fmt.Errorf("read %s: %w", gameID, err)
		}

		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			log.Debug("skip unparsable event", "game", gameID, "err", err)
			continue
		}
		switch ev.Type {
		case "game_info":
			var info GameInfo
			if err := json.Unmarshal(ev.Data, &info); err != nil {
				log.Debug("skip game_info", "game", gameID, "err", err)
				continue
			}
			g.Info = info.Game
			if g.Info.ID == "" {
				g.Info.ID = gameID
			}
		case "frame":
			var f Frame
			if err := json.Unmarshal(ev.Data, &f); err != nil {
				log.Debug("skip frame", "game", gameID, "err", err)
				continue
			}
			g.Frames = append(g.Frames, f)
		case "game_end":
			return finish(g)
		}
	}
	return finish(g)
}

func finish(g Game) (Game, error) {
	if len(g.Frames) == 0 {
		return Game{}, fmt.Errorf("game %s: %w", g.Info.ID, ErrNoFrames)
	}
	if g.Info.Width <= 0 || g.Info.Height <= 0 {
		g.Info.Width, g.Info.Height = 11, 11
	}
	return g, nil
}

// SnakeID resolves a snake by id or display name from the first frame.
func (g Game) SnakeID(nameOrID string) (string, bool) {
	if len(g.Frames) == 0 {
		return "", false
	}
	for _, s := range g.Frames[0].Snakes {
		if s.ID == nameOrID || s.Name == nameOrID {
			return s.ID, true
		}
	}
	return "", false
}
