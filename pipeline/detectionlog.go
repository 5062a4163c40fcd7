package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"

	"github.com/khaledhikmat/handpose-go/model"
)

// DetectionLog appends one JSON line per frame with hands to a rotated file.
// A nil *DetectionLog discards everything.
type DetectionLog struct {
	mu sync.Mutex
	w  *lumberjack.Logger
}

type detectionEntry struct {
	Time      string       `json:"time"`
	Frame     uint64       `json:"frame"`
	Timestamp int64        `json:"timestamp"`
	Hands     []model.Hand `json:"hands"`
}

func NewDetectionLog(filename string) *DetectionLog {
	if filename == "" {
		return nil
	}
	return &DetectionLog{
		w: &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     7,    // days
			Compress:   true, // compress old logs
		},
	}
}

func (l *DetectionLog) Record(frame uint64, timestamp int64, det *model.Detection) error {
	if l == nil || det.Empty() {
		return nil
	}

	data, err := json.Marshal(detectionEntry{
		Time:      time.Now().Format(time.RFC3339Nano),
		Frame:     frame,
		Timestamp: timestamp,
		Hands:     det.Hands,
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}

func (l *DetectionLog) Close() error {
	if l == nil {
		return nil
	}
	return l.w.Close()
}
