package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/khaledhikmat/handpose-go/model"
)

var csvHeader = []string{
	"session_frame", "timestamp", "hand_index", "hand_label", "hand_score", "landmark_index",
	"x", "y", "z", "world_x", "world_y", "world_z",
}

// ExportCSV writes the journal's measurements to path. It returns the number
// of rows written; with no rows nothing is written.
func ExportCSV(svc IService, path string) (int, error) {
	rows, err := svc.RetrieveMeasurements()
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := WriteCSV(path, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteCSV writes rows in the given order through a temp file renamed over
// path.
func WriteCSV(path string, rows []model.Measurement) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range rows {
		if err := w.Write(csvRecord(m)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func csvRecord(m model.Measurement) []string {
	return []string{
		strconv.FormatUint(m.Frame, 10),
		strconv.FormatInt(m.Timestamp, 10),
		strconv.Itoa(m.HandIndex),
		m.HandLabel,
		formatFloat(m.HandScore),
		strconv.Itoa(m.LandmarkIndex),
		formatFloat(m.X),
		formatFloat(m.Y),
		formatFloat(m.Z),
		formatFloat(m.WorldX),
		formatFloat(m.WorldY),
		formatFloat(m.WorldZ),
	}
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}
