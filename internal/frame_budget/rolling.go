package frame_budget

import (
	"github.com/eapache/queue"
)

// DefaultWindow is how many recent decode durations the average covers.
const DefaultWindow = 100

// RollingAverage is the mean of the last window values pushed.
type RollingAverage struct {
	window int
	values *queue.Queue
	mean   float64
}

func NewRollingAverage(window int) *RollingAverage {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RollingAverage{
		window: window,
		values: queue.New(),
	}
}

// Push appends v, drops the oldest value once the window is full, and returns
// the new mean.
func (r *RollingAverage) Push(v float64) float64 {
	r.values.Add(v)
	if r.values.Length() > r.window {
		r.values.Remove()
	}

	sum := 0.0
	for i := 0; i < r.values.Length(); i++ {
		sum += r.values.Get(i).(float64)
	}
	r.mean = sum / float64(r.values.Length())
	return r.mean
}

// Mean is zero until the first push.
func (r *RollingAverage) Mean() float64 {
	return r.mean
}

func (r *RollingAverage) Len() int {
	return r.values.Length()
}

// Oldest returns the value that the next overflow will drop.
func (r *RollingAverage) Oldest() (float64, bool) {
	if r.values.Length() == 0 {
		return 0, false
	}
	return r.values.Peek().(float64), true
}
