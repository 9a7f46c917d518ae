// Package store persists games and decisions as zstd-compressed Parquet
// batches. Files are written under outDir/tmp and renamed into outDir so
// readers never see a partial file.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/snekmax/game"
)

// Schema names recorded in each file's key/value metadata.
const (
	SchemaArchiveTurn = "archive_turn_v1"
	SchemaDecision    = "decision_v1"
)

// Sources recorded on archive rows.
const (
	SourceArena  = "arena"
	SourceReplay = "replay"
)

// NoMove marks a snake that did not move on a turn (dead, or the last turn).
const NoMove int32 = -1

// ArchiveTurnRow is one (game, turn) snapshot. Food and hazards are stored
// once per turn and snakes are nested, which keeps files small.
type ArchiveTurnRow struct {
	GameID  string `parquet:"game_id,dict"`
	Turn    int32  `parquet:"turn"`
	Width   int32  `parquet:"width"`
	Height  int32  `parquet:"height"`
	Ruleset string `parquet:"ruleset,dict"`

	FoodX []int32 `parquet:"food_x"`
	FoodY []int32 `parquet:"food_y"`

	HazardX []int32 `parquet:"hazard_x"`
	HazardY []int32 `parquet:"hazard_y"`

	Snakes []ArchiveSnake `parquet:"snakes"`

	Source string `parquet:"source,dict"`
}

// ArchiveSnake is a snake on an archived turn. Move is the direction it took
// from this turn (0=up 1=down 2=left 3=right) or NoMove. Value is the final
// outcome for that snake: 1 won, -1 lost, 0 draw.
type ArchiveSnake struct {
	ID     string `parquet:"id,dict"`
	Alive  bool   `parquet:"alive"`
	Health int32  `parquet:"health"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	Move  int32   `parquet:"move"`
	Value float32 `parquet:"value"`
}

// NewArchiveTurnRow snapshots state. moves holds the direction each snake took
// from this state; snakes missing from it get NoMove.
func NewArchiveTurnRow(gameID, source string, state *game.GameState, moves map[string]game.Direction) ArchiveTurnRow {
	row := ArchiveTurnRow{
		GameID:  gameID,
		Turn:    state.Turn,
		Width:   state.Width,
		Height:  state.Height,
		Ruleset: state.Ruleset.Name,
		Source:  source,
		Snakes:  make([]ArchiveSnake, 0, len(state.Snakes)),
	}
	row.FoodX, row.FoodY = splitXY(state.Food)
	row.HazardX, row.HazardY = splitXY(state.Hazards)
	for i := range state.Snakes {
		s := &state.Snakes[i]
		as := ArchiveSnake{ID: s.Id, Alive: s.Alive(), Health: s.Health, Move: NoMove}
		as.BodyX, as.BodyY = splitXY(s.Body)
		if d, ok := moves[s.Id]; ok && s.Alive() {
			as.Move = int32(d)
		}
		row.Snakes = append(row.Snakes, as)
	}
	return row
}

// SetOutcome fills every snake's Value once the game is over. An empty
// winnerID scores the game as a draw.
func SetOutcome(rows []ArchiveTurnRow, winnerID string) {
	for i := range rows {
		for j := range rows[i].Snakes {
			s := &rows[i].Snakes[j]
			switch {
			case winnerID == "":
				s.Value = 0
			case s.ID == winnerID:
				s.Value = 1
			default:
				s.Value = -1
			}
		}
	}
}

func splitXY(ps []game.Point) (xs, ys []int32) {
	xs = make([]int32, len(ps))
	ys = make([]int32, len(ps))
	for i, p := range ps {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

// RawState is the JSON snapshot embedded in decision rows.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type RawState struct {
	Width   int32      `json:"width"`
	Height  int32      `json:"height"`
	Turn    int32      `json:"turn"`
	YouID   string     `json:"you_id"`
	Ruleset string     `json:"ruleset,omitempty"`
	Food    []Point    `json:"food"`
	Hazards []Point    `json:"hazards,omitempty"`
	Snakes  []RawSnake `json:"snakes"`
}

type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

type RawSnake struct {
	ID     string  `json:"id"`
	Health int32   `json:"health"`
	Body   []Point `json:"body"`
}

// EncodeState renders state as RawState JSON.
func EncodeState(state *game.GameState) ([]byte, error) {
	if state.Width <= 0 || state.Height <= 0 {
		return nil, fmt.Errorf("invalid state dimensions: %dx%d", state.Width, state.Height)
	}
	raw := RawState{
		Width:   state.Width,
		Height:  state.Height,
		Turn:    state.Turn,
		YouID:   state.YouId,
		Ruleset: state.Ruleset.Name,
		Food:    points(state.Food),
		Hazards: points(state.Hazards),
		Snakes:  make([]RawSnake, len(state.Snakes)),
	}
	for i := range state.Snakes {
		s := &state.Snakes[i]
		raw.Snakes[i] = RawSnake{ID: s.Id, Health: s.Health, Body: points(s.Body)}
	}
	return json.Marshal(raw)
}

func points(ps []game.Point) []Point {
	out := make([]Point, len(ps))
	for i, p := range ps {
		out[i] = Point{X: p.X, Y: p.Y}
	}
	return out
}

func writerOptions(schema string) []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", schema),
	}
}

// WriteBatchAtomic writes rows to outDir/tmp and renames the finished file
// into outDir. It returns the final path.
func WriteBatchAtomic[T any](outDir, schema string, rows []T) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions(schema)...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadRows loads every row of a file written by this package.
func ReadRows[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}
