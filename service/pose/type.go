package pose

import (
	"errors"

	"github.com/khaledhikmat/handpose-go/model"
)

// ErrNonMonotonic is returned when a timestamp is not strictly greater than
// the previous one submitted to the same detector.
var ErrNonMonotonic = errors.New("pose detector timestamps must be strictly increasing")

const LandmarksPerHand = 21

// IService is a video-mode hand detector. Calls must not overlap and their
// timestamps must strictly increase.
type IService interface {
	DetectForVideo(img model.Image, tsMs int64) (model.Detection, error)
	Close() error
}
