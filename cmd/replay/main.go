// Command replay downloads finished games, re-runs the engine on every turn
// and reports how often it agrees with the moves actually played. Archive and
// decision rows are written as Parquet; replayed game IDs are logged so a
// rerun skips them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/brensch/snekmax/config"
	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/logging"
	"github.com/brensch/snekmax/replay"
	"github.com/brensch/snekmax/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	cfgPath := fs.String("config", os.Getenv("SNEK_CONFIG"), "YAML config file for engine settings")
	gameIDs := fs.String("games", "", "Comma-separated game IDs to replay")
	discover := fs.Bool("discover", false, "Find game IDs on the public leaderboards")
	maxPlayers := fs.Int("max-players", 20, "Players checked per leaderboard when discovering")
	snake := fs.String("snake", "", "Snake id or name to replay as (empty replays every snake)")
	workers := fs.Int("workers", 4, "Concurrent downloads")
	outDir := fs.String("out-dir", "data/replay", "Output directory for parquet batches")
	gamesPerFlush := fs.Int("games-per-flush", 20, "Games buffered per parquet flush")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.New(os.Stderr, cfg.LogFormat, level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	written, err := store.OpenWrittenLog(filepath.Join(*outDir, "replayed.log"))
	if err != nil {
		log.Fatalf("written log: %v", err)
	}
	defer written.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Replays are offline: search to full depth every turn.
	mc := cfg.Minimax()
	mc.Budget = 0

	ids := make(chan string, *workers)
	results := make(chan replay.Result, *workers)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(logger, *outDir, *gamesPerFlush, written, results)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ids)
		for _, id := range strings.Split(*gameIDs, ",") {
			if id = strings.TrimSpace(id); id == "" || written.Has(id) {
				continue
			}
			select {
			case ids <- id:
			case <-gctx.Done():
				return nil
			}
		}
		if !*discover {
			return nil
		}
		dcfg := replay.DefaultDiscoveryConfig()
		dcfg.MaxPlayers = *maxPlayers
		n, err := replay.NewDiscovery(dcfg, written.Has, logger).Discover(gctx, ids)
		logger.Info("discovery done", "games", n)
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("discover: %w", err)
		}
		return nil
	})
	for w := range max(*workers, 1) {
		g.Go(func() error {
			for id := range ids {
				replayGame(gctx, logger.With("worker", w), id, *snake, mc, results)
			}
			return nil
		})
	}
	err = g.Wait()
	close(results)
	<-writerDone
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func replayGame(ctx context.Context, logger *slog.Logger, id, snake string, mc minimax.Config, out chan<- replay.Result) {
	g, err := replay.Download(ctx, replay.DefaultDownloadConfig(), id, logger)
	if err != nil {
		logger.Warn("download failed", "game", id, "err", err)
		return
	}
	var snakeIDs []string
	if snake != "" {
		sid, ok := g.SnakeID(snake)
		if !ok {
			logger.Info("snake not in game", "game", id, "snake", snake)
			return
		}
		snakeIDs = append(snakeIDs, sid)
	} else {
		for _, s := range g.Frames[0].Snakes {
			snakeIDs = append(snakeIDs, s.ID)
		}
	}
	for _, sid := range snakeIDs {
		res, err := replay.Replay(g, sid, mc)
		if err != nil {
			logger.Warn("replay failed", "game", id, "snake", sid, "err", err)
			continue
		}
		logger.Info("replayed", "game", id, "snake", sid, "turns", len(res.Turns),
			"agreed", res.Agreed, "compared", res.Compared, "agreement", res.Agreement())
		out <- res
	}
}

// writeLoop keeps one archive and one decision batch open and publishes both
// every gamesPerFlush games. Game IDs are logged only after a successful flush.
func writeLoop(logger *slog.Logger, outDir string, gamesPerFlush int, written *store.WrittenLog, in <-chan replay.Result) {
	if gamesPerFlush <= 0 {
		gamesPerFlush = 20
	}
	var (
		archive   *store.BatchWriter[store.ArchiveTurnRow]
		decisions *store.BatchWriter[store.DecisionRow]
		pending   []string
		seen      = map[string]bool{}
		agreed    int
		compared  int
	)
	open := func() error {
		var err error
		if archive, err = store.NewBatchWriter[store.ArchiveTurnRow](filepath.Join(outDir, "archive"), store.SchemaArchiveTurn); err != nil {
			return err
		}
		if decisions, err = store.NewBatchWriter[store.DecisionRow](filepath.Join(outDir, "decisions"), store.SchemaDecision); err != nil {
			_, _, _, _ = archive.Finalize()
			archive = nil
			return err
		}
		return nil
	}
	flush := func() {
		if archive == nil {
			return
		}
		apath, arows, _, aerr := archive.Finalize()
		dpath, drows, _, derr := decisions.Finalize()
		archive, decisions = nil, nil
		if aerr != nil || derr != nil {
			logger.Error("flush failed", "archive_err", aerr, "decision_err", derr)
			pending = pending[:0]
			return
		}
		if err := written.AddMany(pending); err != nil {
			logger.Error("written log", "err", err)
		}
		logger.Info("flushed", "archive", apath, "archive_rows", arows, "decisions", dpath, "decision_rows", drows, "games", len(pending))
		pending = pending[:0]
	}

	for res := range in {
		if archive == nil {
			if err := open(); err != nil {
				logger.Error("open batch", "err", err)
				continue
			}
		}
		// Every snake's replay carries the same archive rows.
		if !seen[res.GameID] {
			if err := archive.WriteRows(res.Archive); err != nil {
				logger.Error("write archive", "game", res.GameID, "err", err)
				continue
			}
			archive.NoteGame()
			seen[res.GameID] = true
			pending = append(pending, res.GameID)
		}
		if err := decisions.WriteRows(res.Decisions); err != nil {
			logger.Error("write decisions", "game", res.GameID, "err", err)
		}
		agreed += res.Agreed
		compared += res.Compared
		if archive.BufferedGames() >= gamesPerFlush {
			flush()
		}
	}
	flush()
	if compared > 0 {
		logger.Info("overall agreement", "agreed", agreed, "compared", compared, "agreement", float64(agreed)/float64(compared))
	}
}
