package pose

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/khaledhikmat/handpose-go/model"
)

// DetectFunc scripts the fake detector's answer for one call.
type DetectFunc func(img model.Image, tsMs int64) (model.Detection, error)

// FakeService is a scripted detector that enforces the same call contract as
// the real one and records what it saw.
type FakeService struct {
	fn DetectFunc

	mu         sync.Mutex
	timestamps []int64
	started    bool
	last       int64

	active     atomic.Int32
	overlapped atomic.Bool
	closed     atomic.Bool
}

func NewFake(fn DetectFunc) *FakeService {
	if fn == nil {
		fn = func(model.Image, int64) (model.Detection, error) {
			return model.Detection{}, nil
		}
	}
	return &FakeService{fn: fn}
}

func (svc *FakeService) DetectForVideo(img model.Image, tsMs int64) (model.Detection, error) {
	if svc.active.Add(1) > 1 {
		svc.overlapped.Store(true)
	}
	defer svc.active.Add(-1)

	svc.mu.Lock()
	if svc.started && tsMs <= svc.last {
		last := svc.last
		svc.mu.Unlock()
		return model.Detection{}, fmt.Errorf("%w: %d after %d", ErrNonMonotonic, tsMs, last)
	}
	svc.started = true
	svc.last = tsMs
	svc.timestamps = append(svc.timestamps, tsMs)
	svc.mu.Unlock()

	return svc.fn(img, tsMs)
}

func (svc *FakeService) Close() error {
	svc.closed.Store(true)
	return nil
}

// Timestamps returns every timestamp accepted so far, in call order.
func (svc *FakeService) Timestamps() []int64 {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]int64(nil), svc.timestamps...)
}

// Overlapped reports whether two calls were ever in progress at once.
func (svc *FakeService) Overlapped() bool {
	return svc.overlapped.Load()
}

func (svc *FakeService) Closed() bool {
	return svc.closed.Load()
}

// OneHand returns a detection with a single hand whose landmarks are all at
// (x, y, 0).
func OneHand(x, y float32) model.Detection {
	hand := model.Hand{
		Label:          "left",
		Score:          0.9,
		Landmarks:      make([]model.Landmark, LandmarksPerHand),
		WorldLandmarks: make([]model.Landmark, LandmarksPerHand),
	}
	for i := range hand.Landmarks {
		hand.Landmarks[i] = model.Landmark{X: x, Y: y}
		hand.WorldLandmarks[i] = model.Landmark{X: x / 10, Y: y / 10}
	}
	return model.Detection{Hands: []model.Hand{hand}}
}
