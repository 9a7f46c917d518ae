package server_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/server"
	"github.com/brensch/snekmax/server/mocks"
	"github.com/brensch/snekmax/store"
)

func cornerRequest(timeout int) server.GameRequest {
	me := server.Battlesnake{ID: "me", Name: "me", Health: 90, Body: []server.Coord{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}}}
	other := server.Battlesnake{ID: "other", Health: 90, Body: []server.Coord{{X: 6, Y: 6}, {X: 6, Y: 5}, {X: 6, Y: 4}}}
	return server.GameRequest{
		Game: server.Game{ID: "g1", Ruleset: server.Ruleset{Name: "standard"}, Timeout: timeout},
		Turn: 3,
		Board: server.Board{
			Width:  7,
			Height: 7,
			Food:   []server.Coord{{X: 3, Y: 3}},
			Snakes: []server.Battlesnake{other, me},
		},
		You: me,
	}
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, &buf))
	return rec
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	info := server.InfoResponse{Author: "me", Color: "#123456", Head: "smile", Tail: "bolt", Version: "2"}
	s := server.New(mocks.NewMockDecider(ctrl), server.Options{Info: info, Logger: quietLogger()})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var got server.InfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	info.APIVersion = "1"
	if got != info {
		t.Fatalf("info=%+v want=%+v", got, info)
	}
}

func TestMove_PassesConvertedStateAndCappedBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := mocks.NewMockDecider(ctrl)
	d.EXPECT().
		Decide(gomock.Any(), gomock.Any(), 300*time.Millisecond).
		DoAndReturn(func(_ any, state *game.GameState, _ time.Duration) (game.Direction, minimax.Stats) {
			if state.YouId != "me" || state.Solo || len(state.Snakes) != 2 || state.Turn != 3 {
				t.Errorf("state=%s", game.Describe(state))
			}
			return game.Right, minimax.Stats{Depth: 2, Nodes: 10}
		})

	s := server.New(d, server.Options{Budget: 400 * time.Millisecond, Logger: quietLogger()})
	rec := post(t, s.Handler(), "/move", cornerRequest(500))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body)
	}
	var resp server.MoveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Move != "right" {
		t.Fatalf("move=%q want=right", resp.Move)
	}
}

func TestMove_BadRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := mocks.NewMockDecider(ctrl)
	d.EXPECT().Decide(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	h := server.New(d, server.Options{Logger: quietLogger()}).Handler()

	if rec := post(t, h, "/move", "{not json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d want=400", rec.Code)
	}

	req := cornerRequest(500)
	req.You.ID = "ghost"
	rec := post(t, h, "/move", req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "not on the board") {
		t.Fatalf("missing you status=%d body=%q", rec.Code, rec.Body)
	}

	req = cornerRequest(500)
	req.Board.Width, req.Board.Height = 100000, 100000
	rec = post(t, h, "/move", req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "board size") {
		t.Fatalf("huge board status=%d body=%q", rec.Code, rec.Body)
	}
}

func TestMove_OverBudgetWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	d := mocks.NewMockDecider(ctrl)
	d.EXPECT().Decide(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(game.Up, minimax.Stats{Depth: 1, Elapsed: time.Second})

	var logs bytes.Buffer
	s := server.New(d, server.Options{Budget: 100 * time.Millisecond, Logger: slog.New(slog.NewJSONHandler(&logs, nil))})
	if rec := post(t, s.Handler(), "/move", cornerRequest(0)); rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var line map[string]any
	if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
		t.Fatalf("log line %q: %v", logs.String(), err)
	}
	if line["level"] != "WARN" || line["over_budget"] != true {
		t.Fatalf("log=%v want WARN with over_budget", line)
	}
}

func TestMove_RecordsDecisions(t *testing.T) {
	dir := t.TempDir()
	rec := server.NewRecorder(dir, 100, quietLogger())
	s := server.New(server.Engine{Config: minimax.DefaultConfig()}, server.Options{Logger: quietLogger(), Recorder: rec})
	h := s.Handler()
	for turn := range 2 {
		req := cornerRequest(500)
		req.Turn = turn
		if resp := post(t, h, "/move", req); resp.Code != http.StatusOK {
			t.Fatalf("turn %d status=%d", turn, resp.Code)
		}
	}
	rec.Close()

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	rows, err := store.ReadRows[store.DecisionRow](files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d want=2", len(rows))
	}
	for _, r := range rows {
		if r.GameID != "g1" || r.YouID != "me" || r.Move != "right" || len(r.Candidates) == 0 {
			t.Fatalf("row=%+v", r)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "tmp")); err != nil {
		t.Fatalf("tmp dir: %v", err)
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	rec := server.NewRecorder(t.TempDir(), 10, quietLogger())
	if !rec.Record(store.DecisionRow{GameID: "g", Move: "up"}) {
		t.Fatalf("record before close dropped")
	}
	rec.Close()
	rec.Close()

	if rec.Record(store.DecisionRow{GameID: "g", Turn: 1, Move: "up"}) {
		t.Fatalf("record after close accepted")
	}
	if got := rec.Dropped(); got != 1 {
		t.Fatalf("dropped=%d want=1", got)
	}

	// A move answered while the server drains still gets its reply.
	s := server.New(server.Engine{Config: minimax.DefaultConfig()}, server.Options{Logger: quietLogger(), Recorder: rec})
	if resp := post(t, s.Handler(), "/move", cornerRequest(500)); resp.Code != http.StatusOK {
		t.Fatalf("status=%d after recorder close", resp.Code)
	}
	if got := rec.Dropped(); got != 2 {
		t.Fatalf("dropped=%d want=2", got)
	}
}

func TestRecorder_CloseDuringRecords(t *testing.T) {
	rec := server.NewRecorder(t.TempDir(), 10, quietLogger())
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			for turn := range 50 {
				rec.Record(store.DecisionRow{GameID: "g", Turn: int32(i*50 + turn), Move: "up"})
			}
		})
	}
	rec.Close()
	wg.Wait()
}

func TestStartAndEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	var logs bytes.Buffer
	h := server.New(mocks.NewMockDecider(ctrl), server.Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))}).Handler()

	if rec := post(t, h, "/start", cornerRequest(500)); rec.Code != http.StatusOK {
		t.Fatalf("start status=%d", rec.Code)
	}
	end := cornerRequest(500)
	end.Board.Snakes = end.Board.Snakes[:1]
	if rec := post(t, h, "/end", end); rec.Code != http.StatusOK {
		t.Fatalf("end status=%d", rec.Code)
	}
	if !strings.Contains(logs.String(), "result=lost") {
		t.Fatalf("logs=%q want result=lost", logs.String())
	}
	if rec := post(t, h, "/end", "nope"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad end status=%d", rec.Code)
	}
}
