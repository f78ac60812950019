package archive

import (
	"context"
	"sync"
	"time"

	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/notation"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/internal/session"
	"go.uber.org/zap"
)

const (
	defaultQueue        = 64
	defaultWriteTimeout = 5 * time.Second
)

// Snapshotter is the part of a session the recorder reads from.
type Snapshotter interface {
	Snapshot() domain.GameRecord
}

// Recorder writes a snapshot after every ply and a final record when the
// game ends. Writes happen on one goroutine so they land in order. Ply
// snapshots are dropped when the queue is full; final records never are.
type Recorder struct {
	store  Store
	src    Snapshotter
	logger *zap.Logger

	queue     chan domain.GameRecord
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

func NewRecorder(store Store, src Snapshotter, logger *zap.Logger) *Recorder {
	return newRecorder(store, src, logger, defaultQueue)
}

func newRecorder(store Store, src Snapshotter, logger *zap.Logger, queueSize int) *Recorder {
	r := &Recorder{
		store:  store,
		src:    src,
		logger: obslog.Or(logger).Named("archive"),
		queue:  make(chan domain.GameRecord, queueSize),
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Listener returns the session hook; attach it with session.WithListener or
// AddListener.
func (r *Recorder) Listener() session.Listener {
	return func(ev session.Event) {
		switch ev.Kind {
		case session.EventMove, session.EventOutcome:
		default:
			return
		}
		r.enqueue(r.src.Snapshot())
	}
}

// Flush queues the current snapshot regardless of events, e.g. right after
// the game starts.
func (r *Recorder) Flush() {
	r.enqueue(r.src.Snapshot())
}

func (r *Recorder) enqueue(rec domain.GameRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if rec.Finished() {
		// loop drains without r.mu, so this send cannot deadlock Close.
		r.queue <- rec
		return
	}
	select {
	case r.queue <- rec:
	default:
		r.logger.Warn("archive_queue_full", zap.String("game_id", rec.ID), zap.Int("plies", len(rec.MovesUCI)))
	}
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	for rec := range r.queue {
		r.write(rec)
	}
}

func (r *Recorder) write(rec domain.GameRecord) {
	if rec.Variant == chess.VariantStandard.String() {
		if san, err := notation.SAN(rec.MovesUCI); err == nil {
			rec.MovesSAN = san
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
	defer cancel()

	var err error
	if rec.Finished() {
		err = r.store.Finish(ctx, rec)
	} else {
		err = r.store.Save(ctx, rec)
	}
	if err != nil {
		r.logger.Warn("archive_save_error", zap.String("game_id", rec.ID), zap.Error(err))
		return
	}
	r.logger.Debug("archive_saved",
		zap.String("game_id", rec.ID),
		zap.Int("plies", len(rec.MovesUCI)),
		zap.Bool("finished", rec.Finished()),
	)
}

// Close drains queued snapshots and stops the writer.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
	})
	r.wg.Wait()
}
