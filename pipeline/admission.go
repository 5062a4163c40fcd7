package pipeline

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/metrics"
	"github.com/khaledhikmat/handpose-go/service/pose"
)

// Admission serializes calls into the pose detector so that it only ever sees
// strictly increasing timestamps, one call at a time.
//
// Ordinals are registered with Expect when they are enqueued. A frame is
// admitted once no lower registered ordinal is still pending, no call is in
// flight and its timestamp is newer than the last admitted one. A frame that
// has waited longer than the gap timeout stops waiting for lower ordinals.
type Admission struct {
	detector pose.IService
	gap      time.Duration

	mu       sync.Mutex
	changed  chan struct{}
	pending  map[uint64]struct{}
	order    ordinalHeap
	inFlight bool
	admitted bool
	lastTs   int64
	stale    int
	calls    int
}

func NewAdmission(detector pose.IService, gap time.Duration) *Admission {
	return &Admission{
		detector: detector,
		gap:      gap,
		changed:  make(chan struct{}),
		pending:  map[uint64]struct{}{},
	}
}

// Expect registers an ordinal that will later reach Detect or Release.
func (a *Admission) Expect(ordinal uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.pending[ordinal]; ok {
		return
	}
	a.pending[ordinal] = struct{}{}
	heap.Push(&a.order, ordinal)
}

// Release withdraws an ordinal that failed before reaching Detect.
func (a *Admission) Release(ordinal uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.settle(ordinal)
}

// Detect submits img to the detector once the frame is admitted. It returns
// nil for stale frames, cancelled waits and detector failures.
func (a *Admission) Detect(ctx context.Context, ordinal uint64, img model.Image, rel int64) *model.Detection {
	start := time.Now()
	gap := time.NewTimer(a.gap)
	defer gap.Stop()
	gapExpired := false

	a.mu.Lock()
	for {
		if a.admitted && rel <= a.lastTs {
			last := a.lastTs
			a.stale++
			a.settle(ordinal)
			a.mu.Unlock()

			metrics.StaleFramesTotal.Inc()
			lgr.Logger.Warn(
				"skipping detection for stale frame",
				slog.Uint64("ordinal", ordinal),
				slog.Int64("timestamp", rel),
				slog.Int64("lastAdmitted", last),
			)
			return nil
		}

		if !a.inFlight && (gapExpired || !a.lowerPending(ordinal)) {
			break
		}

		wait := a.changed
		a.mu.Unlock()

		var timeout <-chan time.Time
		if !gapExpired {
			timeout = gap.C
		}

		select {
		case <-wait:
		case <-timeout:
			gapExpired = true
		case <-ctx.Done():
			a.Release(ordinal)
			return nil
		}

		a.mu.Lock()
	}

	if gapExpired && a.lowerPending(ordinal) {
		metrics.GapTimeoutsTotal.Inc()
		lgr.Logger.Warn(
			"admitting frame ahead of missing lower ordinals",
			slog.Uint64("ordinal", ordinal),
			slog.Uint64("lowestPending", a.order[0]),
			slog.Duration("waited", time.Since(start)),
		)
	}

	a.inFlight = true
	a.admitted = true
	a.lastTs = rel
	a.calls++
	a.settle(ordinal)
	a.mu.Unlock()

	metrics.AdmissionWaitDuration.Observe(time.Since(start).Seconds())

	det, err := a.detector.DetectForVideo(img, rel)

	a.mu.Lock()
	a.inFlight = false
	a.broadcast()
	a.mu.Unlock()

	if err != nil {
		if errors.Is(err, pose.ErrNonMonotonic) {
			lgr.Logger.Error(
				"pose detector rejected an admitted timestamp",
				slog.Uint64("ordinal", ordinal),
				slog.Int64("timestamp", rel),
				slog.Any("error", err),
			)
			return nil
		}
		lgr.Logger.Error(
			"pose detection failed",
			slog.Uint64("ordinal", ordinal),
			slog.Any("error", err),
		)
		return nil
	}

	return &det
}

// Stale is the number of frames skipped because their timestamp was not
// newer than the last admitted one.
func (a *Admission) Stale() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stale
}

func (a *Admission) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// settle drops ordinal from the pending set and wakes waiters. Callers hold mu.
func (a *Admission) settle(ordinal uint64) {
	delete(a.pending, ordinal)
	for a.order.Len() > 0 {
		if _, ok := a.pending[a.order[0]]; ok {
			break
		}
		heap.Pop(&a.order)
	}
	a.broadcast()
}

func (a *Admission) lowerPending(ordinal uint64) bool {
	return a.order.Len() > 0 && a.order[0] < ordinal
}

func (a *Admission) broadcast() {
	close(a.changed)
	a.changed = make(chan struct{})
}

type ordinalHeap []uint64

func (h ordinalHeap) Len() int           { return len(h) }
func (h ordinalHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h ordinalHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *ordinalHeap) Push(x any) {
	*h = append(*h, x.(uint64))
}

func (h *ordinalHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
