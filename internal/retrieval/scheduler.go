package retrieval

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"tileview/internal/tile_cache"
)

// Loader reads and decodes one tile. It returns a nil image with an error when
// nothing could be loaded.
type Loader interface {
	Load(ctx context.Context, key tile_cache.Key) (tile_cache.Image, error)
}

// Result is a finished retrieval. A nil Image means the tile is confirmed missing.
type Result struct {
	Key        tile_cache.Key
	Image      tile_cache.Image
	Err        error
	DecodeTime time.Duration
}

type task struct {
	id       uuid.UUID
	key      tile_cache.Key
	ctx      context.Context
	cancel   context.CancelFunc
	result   chan Result
	queuedAt time.Time
}

// Scheduler tracks one in-flight retrieval per tile key. Loads run on a bounded
// pool of goroutines; their results are handed back only when the owner polls,
// so the scheduler itself is used from a single goroutine.
type Scheduler struct {
	loader Loader
	sem    *semaphore.Weighted
	log    *zap.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	tasks map[tile_cache.Key]*task
	order []tile_cache.Key
}

// New creates a scheduler running at most workers loads at once.
func New(loader Loader, workers int, log *zap.Logger) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		loader: loader,
		sem:    semaphore.NewWeighted(int64(workers)),
		log:    log,
		base:   base,
		stop:   stop,
		tasks:  make(map[tile_cache.Key]*task),
	}
}

// Queue starts a retrieval for key unless one is already in flight.
func (s *Scheduler) Queue(key tile_cache.Key) bool {
	if _, ok := s.tasks[key]; ok {
		return false
	}
	ctx, cancel := context.WithCancel(s.base)
	t := &task{
		id:       uuid.New(),
		key:      key,
		ctx:      ctx,
		cancel:   cancel,
		result:   make(chan Result),
		queuedAt: time.Now(),
	}
	s.tasks[key] = t
	s.order = append(s.order, key)

	s.wg.Add(1)
	go s.run(t)

	s.log.Debug("Tile queued", zap.Stringer("task", t.id), zap.Stringer("tile", key))
	return true
}

func (s *Scheduler) run(t *task) {
	defer s.wg.Done()

	if err := s.sem.Acquire(t.ctx, 1); err != nil {
		return
	}
	start := time.Now()
	img, err := s.loader.Load(t.ctx, t.key)
	elapsed := time.Since(start)
	s.sem.Release(1)

	if err != nil && img != nil {
		img.Release()
		img = nil
	}

	select {
	case t.result <- Result{Key: t.key, Image: img, Err: err, DecodeTime: elapsed}:
	case <-t.ctx.Done():
		// Nobody will take delivery.
		if img != nil {
			img.Release()
		}
	}
}

func (s *Scheduler) InFlight(key tile_cache.Key) bool {
	_, ok := s.tasks[key]
	return ok
}

func (s *Scheduler) Len() int {
	return len(s.tasks)
}

// Pending returns the in-flight keys in the order they were queued.
func (s *Scheduler) Pending() []tile_cache.Key {
	return slices.Clone(s.order)
}

// Poll takes the result for key if its load has finished, without blocking.
func (s *Scheduler) Poll(key tile_cache.Key) (Result, bool) {
	t, ok := s.tasks[key]
	if !ok {
		return Result{}, false
	}
	select {
	case res := <-t.result:
		return res, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the load for key finishes or ctx is done.
func (s *Scheduler) Wait(ctx context.Context, key tile_cache.Key) (Result, error) {
	t, ok := s.tasks[key]
	if !ok {
		return Result{}, context.Canceled
	}
	select {
	case res := <-t.result:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Finish forgets keys whose results have been taken.
func (s *Scheduler) Finish(keys ...tile_cache.Key) {
	if len(keys) == 0 {
		return
	}
	for _, k := range keys {
		if t, ok := s.tasks[k]; ok {
			t.cancel()
			delete(s.tasks, k)
		}
	}
	s.compact()
}

// CancelWhere drops every in-flight retrieval matching pred. Partial work is
// discarded and any image decoded after the fact is released by its worker.
func (s *Scheduler) CancelWhere(pred func(tile_cache.Key) bool) int {
	n := 0
	for k, t := range s.tasks {
		if !pred(k) {
			continue
		}
		t.cancel()
		delete(s.tasks, k)
		n++
		s.log.Debug("Tile retrieval cancelled",
			zap.Stringer("task", t.id),
			zap.Stringer("tile", k),
			zap.Duration("age", time.Since(t.queuedAt)),
		)
	}
	if n > 0 {
		s.compact()
	}
	return n
}

func (s *Scheduler) compact() {
	s.order = slices.DeleteFunc(s.order, func(k tile_cache.Key) bool {
		_, ok := s.tasks[k]
		return !ok
	})
}

// Close cancels everything in flight and waits for the workers to exit.
func (s *Scheduler) Close() {
	s.stop()
	for k := range s.tasks {
		delete(s.tasks, k)
	}
	s.order = nil
	s.wg.Wait()
}
