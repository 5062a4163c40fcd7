package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/khaledhikmat/handpose-go/model"
)

// IService is the session's bookkeeping store: landmark measurements plus the
// errors, worker stats and summary reported while the session runs.
type IService interface {
	SessionID() string

	NewMeasurements(rows []model.Measurement) error
	// RetrieveMeasurements returns the session's rows ordered by frame, hand
	// and landmark.
	RetrieveMeasurements() ([]model.Measurement, error)
	CountMeasurements() (int, error)

	NewError(err interface{}) error
	NewWorkerStats(stats model.WorkerStats) error
	NewSessionSummary(summary model.SessionSummary) error

	Close() error
}

func sortMeasurements(rows []model.Measurement) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		if a.HandIndex != b.HandIndex {
			return a.HandIndex < b.HandIndex
		}
		return a.LandmarkIndex < b.LandmarkIndex
	})
}

type errorRecord struct {
	Timestamp  int64                  `json:"timestamp"`
	Processor  string                 `json:"processor"`
	Inner      string                 `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

// toErrorRecord accepts either a model.CustomError or a plain error.
func toErrorRecord(err interface{}) errorRecord {
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", e)
		customErr.StackTrace = "N/A"
	}

	rec := errorRecord{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	if customErr.Inner != nil {
		rec.Inner = customErr.Inner.Error()
	}
	return rec
}
