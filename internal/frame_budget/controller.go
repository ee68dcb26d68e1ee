package frame_budget

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tileview/internal/metrics"
	"tileview/internal/retrieval"
	"tileview/internal/tile_cache"
)

// DefaultFraction is the share of the frame budget retrieval may fill.
const DefaultFraction = 0.7

// Scheduler is the part of retrieval.Scheduler the controller drives.
type Scheduler interface {
	Pending() []tile_cache.Key
	Poll(key tile_cache.Key) (retrieval.Result, bool)
	Wait(ctx context.Context, key tile_cache.Key) (retrieval.Result, error)
	Finish(keys ...tile_cache.Key)
	CancelWhere(pred func(tile_cache.Key) bool) int
	Len() int
}

// Sink receives finished tiles; a nil image records a confirmed miss.
type Sink interface {
	Insert(key tile_cache.Key, img tile_cache.Image)
}

// Report summarises one Retrieve call.
type Report struct {
	Cancelled int
	Decoded   int
	Missing   int
	Deferred  bool
	Remaining int
}

func (r Report) Completed() int { return r.Decoded + r.Missing }

// Controller moves finished retrievals into the cache for as long as the
// predicted cost of another decode fits in the frame.
type Controller struct {
	avg      *RollingAverage
	fraction float64
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewController(window int, fraction float64, log *zap.Logger, m *metrics.Metrics) *Controller {
	if fraction <= 0 {
		fraction = DefaultFraction
	}
	return &Controller{
		avg:      NewRollingAverage(window),
		fraction: fraction,
		now:      time.Now,
		log:      log,
		metrics:  m,
	}
}

// AverageDecode is the current rolling average decode time.
func (c *Controller) AverageDecode() time.Duration {
	return seconds(c.avg.Mean())
}

// Retrieve advances the in-flight retrievals for lod within the frame that
// began at frameStart and may last limit.
//
// Retrievals for any other lod are cancelled first. The budget check is
// skipped until one tile has been decoded in this call, and if no load has
// finished at all the oldest one is waited for, so every call with pending
// work makes progress even when that overruns the frame.
func (c *Controller) Retrieve(ctx context.Context, s Scheduler, sink Sink, lod int, frameStart time.Time, limit time.Duration) (Report, error) {
	var rep Report

	rep.Cancelled = s.CancelWhere(func(k tile_cache.Key) bool { return k.LOD != lod })
	c.metrics.ObserveCancelled(rep.Cancelled)

	var finished []tile_cache.Key
	for _, key := range s.Pending() {
		if rep.Decoded > 0 && c.overBudget(frameStart, limit) {
			rep.Deferred = true
			break
		}
		res, ok := s.Poll(key)
		if !ok {
			continue
		}
		c.store(sink, res, &rep)
		finished = append(finished, key)
	}

	if len(finished) == 0 {
		if pending := s.Pending(); len(pending) > 0 {
			res, err := s.Wait(ctx, pending[0])
			if err != nil {
				rep.Remaining = s.Len()
				return rep, err
			}
			c.store(sink, res, &rep)
			finished = append(finished, pending[0])
		}
	}

	s.Finish(finished...)
	rep.Remaining = s.Len()
	return rep, nil
}

func (c *Controller) overBudget(frameStart time.Time, limit time.Duration) bool {
	elapsed := c.now().Sub(frameStart)
	threshold := time.Duration(float64(limit) * c.fraction)
	return elapsed+c.AverageDecode() > threshold
}

func (c *Controller) store(sink Sink, res retrieval.Result, rep *Report) {
	sink.Insert(res.Key, res.Image)

	if res.Image == nil {
		rep.Missing++
		c.metrics.ObserveMissing()
		c.log.Debug("Tile missing", zap.Stringer("tile", res.Key), zap.Error(res.Err))
		return
	}

	rep.Decoded++
	avg := c.avg.Push(res.DecodeTime.Seconds())
	c.metrics.ObserveDecode(res.DecodeTime.Seconds(), avg)
	c.log.Debug("Tile decoded",
		zap.Stringer("tile", res.Key),
		zap.Duration("decode", res.DecodeTime),
		zap.Duration("avg", seconds(avg)),
	)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
