package frame_loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tileview/internal/sector"
	"tileview/internal/viewer"
)

// CameraSource is read once at the start of every frame.
type CameraSource interface {
	Snapshot() sector.Camera
}

// Loop drives the viewer at a fixed rate and publishes one Snapshot per frame.
type Loop struct {
	viewer *viewer.Viewer
	camera CameraSource
	period time.Duration
	log    *zap.Logger

	frame  uint64
	latest atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan *Snapshot]struct{}
}

func New(v *viewer.Viewer, cam CameraSource, fps int, log *zap.Logger) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		viewer: v,
		camera: cam,
		period: time.Second / time.Duration(fps),
		log:    log,
		subs:   make(map[chan *Snapshot]struct{}),
	}
}

// Period is the frame budget.
func (l *Loop) Period() time.Duration { return l.period }

// Latest returns the most recent snapshot, or nil before the first frame.
func (l *Loop) Latest() *Snapshot {
	return l.latest.Load()
}

// Subscribe returns a channel that receives new snapshots. A slow reader
// only ever sees the newest one; older undelivered snapshots are dropped.
func (l *Loop) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			l.mu.Unlock()
		})
	}
}

func (l *Loop) publish(s *Snapshot) {
	l.latest.Store(s)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Step runs a single frame that started at frameStart.
func (l *Loop) Step(ctx context.Context, frameStart time.Time) (*Snapshot, error) {
	f, err := l.viewer.Tick(ctx, l.camera.Snapshot(), frameStart, l.period)
	if err != nil {
		return nil, err
	}
	l.frame++
	s := newSnapshot(l.frame, frameStart, l.viewer, f)
	l.publish(s)

	if f.Retrieval.Deferred {
		l.log.Debug("Retrieval deferred to next frame",
			zap.Uint64("frame", l.frame),
			zap.Int("remaining", f.Retrieval.Remaining),
			zap.Duration("frame_time", f.Duration),
		)
	}
	return s, nil
}

// Run ticks until ctx is done, then releases the viewer.
func (l *Loop) Run(ctx context.Context) error {
	defer l.viewer.Close()

	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	l.log.Info("Frame loop started", zap.Duration("period", l.period))
	for {
		select {
		case <-ctx.Done():
			l.log.Info("Frame loop stopped", zap.Uint64("frames", l.frame))
			return nil
		case now := <-ticker.C:
			if _, err := l.Step(ctx, now); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				return err
			}
		}
	}
}
