package pose

import (
	"errors"
	"testing"

	"github.com/khaledhikmat/handpose-go/model"
)

func TestFakeRejectsNonMonotonicTimestamps(t *testing.T) {
	svc := NewFake(nil)

	for _, ts := range []int64{0, 33, 66} {
		if _, err := svc.DetectForVideo(model.Image{}, ts); err != nil {
			t.Fatalf("DetectForVideo(%d): %v", ts, err)
		}
	}

	for _, ts := range []int64{66, 10} {
		if _, err := svc.DetectForVideo(model.Image{}, ts); !errors.Is(err, ErrNonMonotonic) {
			t.Errorf("DetectForVideo(%d) error = %v, want ErrNonMonotonic", ts, err)
		}
	}

	got := svc.Timestamps()
	if len(got) != 3 || got[0] != 0 || got[2] != 66 {
		t.Errorf("Timestamps = %v, want [0 33 66]", got)
	}
	if svc.Overlapped() {
		t.Error("sequential calls reported as overlapping")
	}
}

func TestDecodeHandsSingleSlot(t *testing.T) {
	landmarks := make([]float32, LandmarksPerHand*3)
	world := make([]float32, LandmarksPerHand*3)
	for i := 0; i < LandmarksPerHand; i++ {
		landmarks[i*3] = 112
		landmarks[i*3+1] = 56
		world[i*3] = 0.01
	}

	det, err := decodeHands(landmarks, []float32{0.9}, []float32{0.8}, world, 224, 0.5, 2)
	if err != nil {
		t.Fatalf("decodeHands: %v", err)
	}
	if len(det.Hands) != 1 {
		t.Fatalf("hands = %d, want 1", len(det.Hands))
	}

	hand := det.Hands[0]
	if hand.Label != "right" || hand.Score != 0.9 {
		t.Errorf("label/score = %s/%v", hand.Label, hand.Score)
	}
	if hand.Landmarks[0].X != 0.5 || hand.Landmarks[0].Y != 0.25 {
		t.Errorf("landmark 0 = %+v, want (0.5, 0.25)", hand.Landmarks[0])
	}
	if hand.WorldLandmarks[20].X != 0.01 {
		t.Errorf("world landmark 20 = %+v", hand.WorldLandmarks[20])
	}

	det, err = decodeHands(landmarks, []float32{0.2}, []float32{0.8}, world, 224, 0.5, 2)
	if err != nil || !det.Empty() {
		t.Errorf("low presence should produce an empty detection, got %+v, %v", det, err)
	}

	if _, err := decodeHands(landmarks[:10], []float32{0.9}, []float32{0.8}, world, 224, 0.5, 2); err == nil {
		t.Error("expected error for short landmark output")
	}
}

func TestDecodeHandsTwoSlots(t *testing.T) {
	values := LandmarksPerHand * 3
	landmarks := make([]float32, 2*values)
	world := make([]float32, 2*values)
	for i := 0; i < LandmarksPerHand; i++ {
		landmarks[i*3] = 56
		landmarks[values+i*3] = 168
		world[values+i*3+2] = -0.02
	}
	presence := []float32{0.9, 0.7}
	handedness := []float32{0.2, 0.9}

	det, err := decodeHands(landmarks, presence, handedness, world, 224, 0.5, 2)
	if err != nil {
		t.Fatalf("decodeHands: %v", err)
	}
	if len(det.Hands) != 2 {
		t.Fatalf("hands = %d, want 2", len(det.Hands))
	}
	if det.Hands[0].Label != "left" || det.Hands[1].Label != "right" {
		t.Errorf("labels = %s/%s, want left/right", det.Hands[0].Label, det.Hands[1].Label)
	}
	if det.Hands[0].Landmarks[3].X != 0.25 || det.Hands[1].Landmarks[3].X != 0.75 {
		t.Errorf("landmark 3 x = %v/%v, want 0.25/0.75", det.Hands[0].Landmarks[3].X, det.Hands[1].Landmarks[3].X)
	}
	if det.Hands[1].WorldLandmarks[20].Z != -0.02 {
		t.Errorf("second hand world landmark 20 = %+v", det.Hands[1].WorldLandmarks[20])
	}

	rows := model.Measurements(3, 100, &det)
	if len(rows) != 2*LandmarksPerHand {
		t.Fatalf("rows = %d, want %d", len(rows), 2*LandmarksPerHand)
	}
	if last := rows[len(rows)-1]; last.HandIndex != 1 || last.HandLabel != "right" {
		t.Errorf("second hand row = index %d label %s, want 1/right", last.HandIndex, last.HandLabel)
	}

	det, _ = decodeHands(landmarks, presence, handedness, world, 224, 0.5, 1)
	if len(det.Hands) != 1 {
		t.Errorf("max hands 1 decoded %d hands", len(det.Hands))
	}

	det, _ = decodeHands(landmarks, []float32{0.1, 0.8}, handedness, world, 224, 0.5, 2)
	if len(det.Hands) != 1 || det.Hands[0].Landmarks[0].X != 0.75 {
		t.Errorf("expected only the second slot, got %+v", det.Hands)
	}

	if _, err := decodeHands(landmarks[:values], presence, handedness, world, 224, 0.5, 2); err == nil {
		t.Error("expected error when landmark values cover fewer slots than presence")
	}
}

func TestSigmoidIfLogit(t *testing.T) {
	if got := sigmoidIfLogit(0.7); got != 0.7 {
		t.Errorf("probability passed through as %v", got)
	}
	if got := sigmoidIfLogit(-20); got > 0.001 {
		t.Errorf("sigmoid(-20) = %v", got)
	}
	if got := sigmoidIfLogit(20); got < 0.999 {
		t.Errorf("sigmoid(20) = %v", got)
	}
}
