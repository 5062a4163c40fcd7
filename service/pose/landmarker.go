package pose

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

type landmarkerService struct {
	params config.PoseParameters
	net    gocv.Net

	mu      sync.Mutex
	last    int64
	started bool
}

// NewLandmarker loads an ONNX hand landmark model through the OpenCV DNN
// module. The model takes a square RGB crop and reports 21 landmarks, hand
// presence, handedness and world landmarks for a single hand.
func NewLandmarker(cfgSvc config.IService) (IService, error) {
	params := cfgSvc.GetPoseParameters()

	lgr.Logger.Info("hand landmarker starting...",
		slog.String("model", params.ModelPath),
		slog.Int("inputSize", params.InputSize),
		slog.Int("maxHands", params.MaxHands),
		slog.String("openCV", gocv.Version()),
	)

	if _, err := os.Stat(params.ModelPath); err != nil {
		return nil, fmt.Errorf("hand landmark model %s: %w", params.ModelPath, err)
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading hand landmark model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	return &landmarkerService{
		params: params,
		net:    net,
	}, nil
}

func (svc *landmarkerService) DetectForVideo(img model.Image, tsMs int64) (model.Detection, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.started && tsMs <= svc.last {
		return model.Detection{}, fmt.Errorf("%w: %d after %d", ErrNonMonotonic, tsMs, svc.last)
	}
	svc.started = true
	svc.last = tsMs

	if img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height*3 {
		return model.Detection{}, fmt.Errorf("invalid image %dx%d with %d bytes", img.Width, img.Height, len(img.Pix))
	}

	mat, err := gocv.NewMatFromBytes(img.Height, img.Width, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return model.Detection{}, err
	}
	defer mat.Close()

	// The image is already RGB, which is what the model expects
	size := svc.params.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	outputs := svc.net.ForwardLayers([]string{
		svc.params.LandmarksOutput,
		svc.params.PresenceOutput,
		svc.params.HandednessOutput,
		svc.params.WorldLandmarksOutput,
	})
	defer func() {
		for _, o := range outputs {
			o.Close()
		}
	}()

	if len(outputs) != 4 {
		return model.Detection{}, fmt.Errorf("unexpected number of model outputs: %d", len(outputs))
	}

	landmarks, err := outputs[0].DataPtrFloat32()
	if err != nil {
		return model.Detection{}, err
	}
	presence, err := outputs[1].DataPtrFloat32()
	if err != nil {
		return model.Detection{}, err
	}
	handedness, err := outputs[2].DataPtrFloat32()
	if err != nil {
		return model.Detection{}, err
	}
	world, err := outputs[3].DataPtrFloat32()
	if err != nil {
		return model.Detection{}, err
	}

	return decodeHands(landmarks, presence, handedness, world, float32(size), svc.params.MinPresence, svc.params.MaxHands)
}

func (svc *landmarkerService) Close() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.net.Close()
}

// decodeHands turns raw model outputs into a detection. The outputs hold one
// slot per hand: 63 landmark values, one presence score and one handedness
// score each. Single-hand exports have exactly one slot. Landmarks come out
// in input pixels and are normalized to [0,1]; world landmarks are in metres.
func decodeHands(landmarks, presence, handedness, world []float32, inputSize, minPresence float32, maxHands int) (model.Detection, error) {
	slots := len(presence)
	if slots < 1 || len(handedness) < slots {
		return model.Detection{}, fmt.Errorf("expected matching presence and handedness outputs, got %d and %d", len(presence), len(handedness))
	}

	values := LandmarksPerHand * 3
	if len(landmarks) < slots*values || len(world) < slots*values {
		return model.Detection{}, fmt.Errorf("expected %d landmark values, got %d and %d", slots*values, len(landmarks), len(world))
	}

	if maxHands > 0 && slots > maxHands {
		slots = maxHands
	}

	var det model.Detection
	for slot := 0; slot < slots; slot++ {
		score := sigmoidIfLogit(presence[slot])
		if score < minPresence {
			continue
		}

		label := "left"
		if sigmoidIfLogit(handedness[slot]) > 0.5 {
			label = "right"
		}

		hand := model.Hand{
			Label:          label,
			Score:          score,
			Landmarks:      make([]model.Landmark, LandmarksPerHand),
			WorldLandmarks: make([]model.Landmark, LandmarksPerHand),
		}
		base := slot * values
		for i := 0; i < LandmarksPerHand; i++ {
			j := base + i*3
			hand.Landmarks[i] = model.Landmark{
				X: landmarks[j] / inputSize,
				Y: landmarks[j+1] / inputSize,
				Z: landmarks[j+2] / inputSize,
			}
			hand.WorldLandmarks[i] = model.Landmark{
				X: world[j],
				Y: world[j+1],
				Z: world[j+2],
			}
		}
		det.Hands = append(det.Hands, hand)
	}

	return det, nil
}

// Some exports keep the final sigmoid, some don't.
func sigmoidIfLogit(v float32) float32 {
	if v >= 0 && v <= 1 {
		return v
	}
	return float32(1 / (1 + math.Exp(-float64(v))))
}
