package imaging

import (
	"fmt"
	"sync"

	"github.com/khaledhikmat/handpose-go/model"
)

// FakeService renders a short textual stand-in for the JPEG. It records how
// many frames were annotated.
type FakeService struct {
	Err error

	mu        sync.Mutex
	rendered  int
	annotated int
}

func NewFake() *FakeService {
	return &FakeService{}
}

func (svc *FakeService) Render(img model.Image, hands []model.Hand, quality int) ([]byte, error) {
	if svc.Err != nil {
		return nil, svc.Err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.rendered++
	if len(hands) > 0 {
		svc.annotated++
	}
	return []byte(fmt.Sprintf("jpeg %dx%d q%d hands=%d", img.Width, img.Height, quality, len(hands))), nil
}

func (svc *FakeService) Counts() (rendered, annotated int) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.rendered, svc.annotated
}
