package data

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

type memoryService struct {
	id string

	mu           sync.Mutex
	measurements []model.Measurement
	errors       []errorRecord
	workerStats  []model.WorkerStats
	summaries    []model.SessionSummary
}

// NewMemory keeps everything in process. Nothing survives the session except
// what the export writes.
func NewMemory() IService {
	return &memoryService{
		id: uuid.NewString(),
	}
}

func (svc *memoryService) SessionID() string {
	return svc.id
}

func (svc *memoryService) NewMeasurements(rows []model.Measurement) error {
	if len(rows) == 0 {
		return nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.measurements = append(svc.measurements, rows...)
	return nil
}

func (svc *memoryService) RetrieveMeasurements() ([]model.Measurement, error) {
	svc.mu.Lock()
	rows := make([]model.Measurement, len(svc.measurements))
	copy(rows, svc.measurements)
	svc.mu.Unlock()

	sortMeasurements(rows)
	return rows, nil
}

func (svc *memoryService) CountMeasurements() (int, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.measurements), nil
}

func (svc *memoryService) NewError(err interface{}) error {
	rec := toErrorRecord(err)

	svc.mu.Lock()
	svc.errors = append(svc.errors, rec)
	svc.mu.Unlock()

	lgr.Logger.Error(
		rec.Message,
		slog.String("processor", rec.Processor),
		slog.String("error", rec.Inner),
		slog.Any("misc", rec.Misc),
	)
	return nil
}

func (svc *memoryService) NewWorkerStats(stats model.WorkerStats) error {
	stats.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	svc.workerStats = append(svc.workerStats, stats)
	svc.mu.Unlock()

	lgr.Logger.Info(
		"worker stats",
		slog.String("name", stats.Name),
		slog.Int("worker", stats.Worker),
		slog.Int("frames", stats.Frames),
		slog.Int("errors", stats.Errors),
		slog.Int("fps", stats.FPS),
		slog.Float64("avgProcTime", stats.AvgProcTime),
	)
	return nil
}

func (svc *memoryService) NewSessionSummary(summary model.SessionSummary) error {
	summary.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	svc.summaries = append(svc.summaries, summary)
	svc.mu.Unlock()

	lgr.Logger.Info(
		"session summary",
		slog.Any("summary", summary),
	)
	return nil
}

func (svc *memoryService) Close() error {
	return nil
}
