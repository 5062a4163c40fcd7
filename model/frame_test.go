package model

import "testing"

func TestMeasurementsProjectsEveryLandmark(t *testing.T) {
	det := &Detection{
		Hands: []Hand{
			{
				Label:          "Left",
				Score:          0.9,
				Landmarks:      []Landmark{{X: 0.1, Y: 0.2, Z: 0.3}, {X: 0.4, Y: 0.5, Z: 0.6}},
				WorldLandmarks: []Landmark{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
			},
			{
				Label:     "Right",
				Score:     0.8,
				Landmarks: []Landmark{{X: 0.7, Y: 0.8, Z: 0.9}},
			},
		},
	}

	rows := Measurements(12, 396, det)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	if rows[0].HandLabel != "left" || rows[2].HandLabel != "right" {
		t.Errorf("labels = %q/%q, want left/right", rows[0].HandLabel, rows[2].HandLabel)
	}
	if rows[1].LandmarkIndex != 1 || rows[1].WorldZ != 6 {
		t.Errorf("second row = %+v, want landmark 1 with world z 6", rows[1])
	}
	if rows[2].WorldX != 0 || rows[2].HandScore != 0.8 {
		t.Errorf("third row = %+v, want zero world coordinates and score 0.8", rows[2])
	}
	for _, r := range rows {
		if r.Frame != 12 || r.Timestamp != 396 {
			t.Errorf("frame/timestamp = %d/%d, want 12/396", r.Frame, r.Timestamp)
		}
	}
}

func TestMeasurementsEmpty(t *testing.T) {
	if rows := Measurements(1, 1, nil); rows != nil {
		t.Errorf("rows for nil detection = %d, want none", len(rows))
	}
	if rows := Measurements(1, 1, &Detection{}); rows != nil {
		t.Errorf("rows for empty detection = %d, want none", len(rows))
	}
}
