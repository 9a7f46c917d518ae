// Command arena plays the engine against itself. With -live it shows one game
// in the terminal; otherwise it plays -games games on -workers goroutines and
// writes the archive rows as Parquet batches.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/executor/selfplay"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfgPath := fs.String("config", os.Getenv("SNEK_CONFIG"), "YAML config file for engine settings")
	live := fs.Bool("live", false, "Show a single game in the terminal")
	turnDelay := fs.Duration("turn-delay", 150*time.Millisecond, "Pause between turns in live mode")
	games := fs.Int("games", 100, "Games to play in headless mode")
	workers := fs.Int("workers", 4, "Concurrent games in headless mode")
	outDir := fs.String("out-dir", "data/arena", "Output directory for parquet batches")
	gamesPerFlush := fs.Int("games-per-flush", 50, "Games buffered per parquet flush")
	snakes := fs.Int("snakes", 2, "Snakes per game (1-4)")
	width := fs.Int("width", 11, "Board width")
	height := fs.Int("height", 11, "Board height")
	ruleset := fs.String("ruleset", game.RulesetStandard, "Ruleset name, e.g. standard, wrapped, constrictor")
	maxTurns := fs.Int("max-turns", 500, "Turn cap per game (0 = none)")
	depth := fs.Int("depth", 0, "Override search depth")
	budget := fs.Duration("budget", -1, "Override the per-move search budget (0 searches to full depth)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("config: %v", err)
	}
	mc, err := engineConfig(cfg, *depth, *budget)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.New(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	opts := selfplay.DefaultOptions()
	opts.Snakes = *snakes
	opts.Width, opts.Height = int32(*width), int32(*height)
	opts.Ruleset.Name = *ruleset
	opts.MaxTurns = *maxTurns

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *live {
		if err := runLive(ctx, mc, opts, *turnDelay); err != nil {
			log.Fatalf("live: %v", err)
		}
		return
	}
	if err := runHeadless(ctx, logger, mc, opts, *games, *workers, *outDir, *gamesPerFlush); err != nil {
		log.Fatalf("arena: %v", err)
	}
}

// engineConfig applies the command-line overrides. The configured budget is
// kept unless overridden: with four snakes an unbounded depth-3 search takes
// close to a minute per move.
func engineConfig(cfg config.Config, depth int, budget time.Duration) (minimax.Config, error) {
	if depth > 0 {
		cfg.Search.Depth = depth
	}
	if budget >= 0 {
		cfg.Search.Budget = budget
	}
	if err := cfg.Validate(); err != nil {
		return minimax.Config{}, err
	}
	return cfg.Minimax(), nil
}

type frameMsg struct {
	view string
	done bool
}

type errMsg struct{ err error }

type model struct {
	frames <-chan tea.Msg
	view   string
	done   bool
	err    error
}

func waitForFrame(frames <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-frames }
}

func (m model) Init() tea.Cmd { return waitForFrame(m.frames) }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case frameMsg:
		m.view, m.done = msg.view, msg.done
		if msg.done {
			return m, nil
		}
		return m, waitForFrame(m.frames)
	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var sb strings.Builder
	sb.WriteString(m.view)
	if m.err != nil {
		fmt.Fprintf(&sb, "\nerror: %v\n", m.err)
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}

func runLive(ctx context.Context, mc minimax.Config, opts selfplay.Options, delay time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan tea.Msg, 1)
	send := func(msg tea.Msg) {
		select {
		case frames <- msg:
		case <-ctx.Done():
		}
	}
	var last *game.GameState
	opts.OnTurn = func(s *game.GameState) {
		last = s
		send(frameMsg{view: selfplay.Frame(s, nil)})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	go func() {
		_, res, err := selfplay.PlayGame(ctx, mc, opts)
		if err != nil {
			send(errMsg{err})
			return
		}
		send(frameMsg{view: selfplay.Frame(last, &res), done: true})
	}()

	_, err := tea.NewProgram(model{frames: frames}, tea.WithContext(ctx)).Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

type finishedGame struct {
	rows   []store.ArchiveTurnRow
	result selfplay.GameResult
}

func runHeadless(ctx context.Context, logger *slog.Logger, mc minimax.Config, opts selfplay.Options, games, workers int, outDir string, gamesPerFlush int) error {
	finished := make(chan finishedGame, workers*2)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(logger, outDir, gamesPerFlush, finished)
	}()

	var started, played atomic.Int64
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range max(workers, 1) {
		g.Go(func() error {
			for started.Add(1) <= int64(games) {
				rows, res, err := selfplay.PlayGame(gctx, mc, opts)
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return fmt.Errorf("worker %d: %w", w, err)
				}
				n := played.Add(1)
				logger.Info("game finished", "worker", w, "n", n, "game", res.GameID,
					"winner", res.WinnerID, "turns", res.Turns, "elapsed", time.Since(start).Round(time.Millisecond))
				finished <- finishedGame{rows: rows, result: res}
			}
			return nil
		})
	}
	err := g.Wait()
	close(finished)
	<-writerDone
	logger.Info("arena done", "games", played.Load(), "elapsed", time.Since(start).Round(time.Second))
	return err
}

func writeLoop(logger *slog.Logger, outDir string, gamesPerFlush int, in <-chan finishedGame) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 50
	}
	pending := make([]store.ArchiveTurnRow, 0, 256*gamesPerFlush)
	games := 0
	flush := func() {
		if games == 0 {
			return
		}
		path, err := store.WriteBatchAtomic(outDir, store.SchemaArchiveTurn, pending)
		if err != nil {
			logger.Error("parquet flush failed", "games", games, "rows", len(pending), "err", err)
		} else {
			logger.Info("parquet flush", "path", path, "games", games, "rows", len(pending))
		}
		pending = pending[:0]
		games = 0
	}
	for fg := range in {
		pending = append(pending, fg.rows...)
		games++
		if games >= gamesPerFlush {
			flush()
		}
	}
	flush()
}
