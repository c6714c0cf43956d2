package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"coachgate/internal/model"
	"coachgate/internal/repository"
)

const (
	workoutLogBatchSize     = 10
	workoutLogFlushInterval = time.Second
)

// workoutLogWriter persists workout log entries in batches off the request
// path.
type workoutLogWriter struct {
	repo repository.WorkoutLogRepository
	log  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan model.WorkoutLog
	done   chan struct{}
}

func newWorkoutLogWriter(repo repository.WorkoutLogRepository, log zerolog.Logger) *workoutLogWriter {
	w := &workoutLogWriter{
		repo: repo,
		log:  log,
		ch:   make(chan model.WorkoutLog, 100),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *workoutLogWriter) run() {
	defer close(w.done)
	ctx := context.Background()
	batch := make([]model.WorkoutLog, 0, workoutLogBatchSize)
	ticker := time.NewTicker(workoutLogFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.repo.CreateBatch(ctx, batch); err != nil {
			w.log.Error().Err(err).Int("entries", len(batch)).Msg("write workout log batch")
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry, ok := <-w.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= workoutLogBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Record queues an entry. When the queue is full the entry is written
// synchronously.
func (w *workoutLogWriter) Record(ctx context.Context, entry model.WorkoutLog) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}

	select {
	case w.ch <- entry:
	default:
		if err := w.repo.Create(ctx, &entry); err != nil {
			w.log.Error().Err(err).Str("action", string(entry.Action)).Msg("write workout log")
		}
	}
}

// Close flushes pending entries and stops the writer.
func (w *workoutLogWriter) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()
	<-w.done
}
