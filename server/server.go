// Package server is the Battlesnake HTTP boundary: it decodes snapshots,
// asks a Decider for a move and answers within the game's timeout.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/store"
)

//go:generate go tool mockgen -destination=./mocks/decider_mock.go -package=mocks . Decider

// Decider picks a move for state.YouId within budget (0 means unbounded).
type Decider interface {
	Decide(ctx context.Context, state *game.GameState, budget time.Duration) (game.Direction, minimax.Stats)
}

// Engine is the minimax Decider.
type Engine struct {
	Config minimax.Config
}

func (e Engine) Decide(_ context.Context, state *game.GameState, budget time.Duration) (game.Direction, minimax.Stats) {
	cfg := e.Config
	cfg.Budget = budget
	return minimax.Decide(state, cfg)
}

// latencyReserve is kept back from the game's timeout for network round trips.
const (
	latencyReserve = 200 * time.Millisecond
	minBudget      = 50 * time.Millisecond
)

type Options struct {
	Info   InfoResponse
	Budget time.Duration
	Logger *slog.Logger
	// Recorder archives every answered move. Nil disables recording.
	Recorder *Recorder
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

type Server struct {
	decider Decider
	info    InfoResponse
	budget  time.Duration
	log     *slog.Logger
	rec     *Recorder
	tracer  trace.Tracer
}

func New(d Decider, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.Info.APIVersion == "" {
		opts.Info.APIVersion = "1"
	}
	return &Server{
		decider: d,
		info:    opts.Info,
		budget:  opts.Budget,
		log:     opts.Logger,
		rec:     opts.Recorder,
		tracer:  opts.TracerProvider.Tracer(tracerName),
	}
}

// Handler routes the four Battlesnake endpoints behind otelhttp.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /start", s.handleStart)
	mux.HandleFunc("POST /move", s.handleMove)
	mux.HandleFunc("POST /end", s.handleEnd)
	return otelhttp.NewHandler(mux, "battlesnake")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.info)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("game started", "game", req.Game.ID, "ruleset", req.Game.Ruleset.Name, "map", req.Game.Map,
		"snakes", len(req.Board.Snakes), "timeout_ms", req.Game.Timeout)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := ToGameState(&req)
	if err != nil {
		s.log.Warn("bad move request", "game", req.Game.ID, "turn", req.Turn, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	budget := s.moveBudget(req.Game.Timeout)
	ctx, span := s.tracer.Start(r.Context(), "decide", trace.WithAttributes(
		attribute.String("game.id", req.Game.ID),
		attribute.Int("game.turn", req.Turn),
		attribute.Int("snakes", len(state.Snakes)),
	))
	move, stats := s.decider.Decide(ctx, state, budget)
	overBudget := budget > 0 && stats.Elapsed > budget
	span.SetAttributes(
		attribute.Int("search.depth", stats.Depth),
		attribute.Int("search.nodes", stats.Nodes),
		attribute.Bool("search.fallback", stats.Fallback),
		attribute.Bool("search.over_budget", overBudget),
		attribute.String("move", move.String()),
	)
	span.End()

	attrs := []any{"game", req.Game.ID, "turn", req.Turn, "move", move.String(),
		"depth", stats.Depth, "nodes", stats.Nodes, "elapsed", stats.Elapsed}
	if overBudget {
		s.log.Warn("move over budget", append(attrs, "budget", budget, "over_budget", true)...)
	} else {
		s.log.Info("move", attrs...)
	}

	if s.rec != nil {
		row, err := store.NewDecisionRow(req.Game.ID, state, move, stats, budget)
		if err != nil {
			s.log.Error("build decision row", "game", req.Game.ID, "err", err)
		} else if !s.rec.Record(row) {
			s.log.Warn("decision recorder full, row dropped", "game", req.Game.ID, "turn", req.Turn)
		}
	}

	writeJSON(w, MoveResponse{Move: move.String(), Shout: fmt.Sprintf("depth %d", stats.Depth)})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Info("game ended", "game", req.Game.ID, "turn", req.Turn, "result", result(&req))
	w.WriteHeader(http.StatusOK)
}

// moveBudget is the configured budget capped by the game's own timeout.
func (s *Server) moveBudget(timeoutMS int) time.Duration {
	budget := s.budget
	if timeoutMS <= 0 {
		return budget
	}
	limit := max(time.Duration(timeoutMS)*time.Millisecond-latencyReserve, minBudget)
	if budget <= 0 || budget > limit {
		return limit
	}
	return budget
}

func result(req *GameRequest) string {
	for _, s := range req.Board.Snakes {
		if s.ID == req.You.ID {
			return "won"
		}
	}
	if len(req.Board.Snakes) == 0 {
		return "draw"
	}
	return "lost"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
