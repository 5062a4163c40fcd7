package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

// Processor runs one mode. graceCtx asks for a drained shutdown, abortCtx
// for an immediate one.
type Processor func(graceCtx context.Context, abortCtx context.Context, svcs pipeline.ServicesFactory) error

func procStats(datasvc data.IService, stats interface{}) {
	switch stats := stats.(type) {
	case model.WorkerStats:
		procWorkerStats(datasvc, stats)
	case model.SessionSummary:
		procSessionSummary(datasvc, stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procWorkerStats(datasvc data.IService, stats model.WorkerStats) {
	err := datasvc.NewWorkerStats(stats)
	if err != nil {
		lgr.Logger.Error(
			"failed to store worker stats",
			slog.Any("stats", stats),
			slog.Any("error", err),
		)
	}
}

func procSessionSummary(datasvc data.IService, summary model.SessionSummary) {
	err := datasvc.NewSessionSummary(summary)
	if err != nil {
		lgr.Logger.Error(
			"failed to store session summary",
			slog.Any("summary", summary),
			slog.Any("error", err),
		)
	}
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
