package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brensch/snekmax/store"
)

// Recorder writes decision rows to Parquet on its own goroutine. Rows that
// arrive while the queue is full, or after Close, are dropped and counted; the
// move handler never waits on disk.
type Recorder struct {
	dir       string
	flushRows int
	log       *slog.Logger

	mu      sync.RWMutex
	closed  bool
	rows    chan store.DecisionRow
	dropped atomic.Int64
	done    chan struct{}
}

func NewRecorder(dir string, flushRows int, log *slog.Logger) *Recorder {
	if flushRows <= 0 {
		flushRows = 1000
	}
	r := &Recorder{
		dir:       dir,
		flushRows: flushRows,
		log:       log,
		rows:      make(chan store.DecisionRow, 256),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues row. It reports false when the row was dropped.
func (r *Recorder) Record(row store.DecisionRow) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return false
	}
	select {
	case r.rows <- row:
		return true
	default:
		r.dropped.Add(1)
		return false
	}
}

func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Close flushes what is queued and waits for the last batch to be published.
// It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.rows)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	var w *store.BatchWriter[store.DecisionRow]
	flush := func() {
		if w == nil {
			return
		}
		path, rows, _, err := w.Finalize()
		w = nil
		if err != nil {
			r.log.Error("finalize decision batch", "err", err)
			return
		}
		if path != "" {
			r.log.Info("wrote decision batch", "path", path, "rows", rows)
		}
	}
	defer flush()

	for row := range r.rows {
		if w == nil {
			var err error
			if w, err = store.NewBatchWriter[store.DecisionRow](r.dir, store.SchemaDecision); err != nil {
				r.log.Error("open decision batch", "err", err)
				continue
			}
		}
		if err := w.WriteRows([]store.DecisionRow{row}); err != nil {
			r.log.Error("write decision row", "err", err)
			continue
		}
		if w.BufferedRows() >= r.flushRows {
			flush()
		}
	}
}
