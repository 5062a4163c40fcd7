package mode

import (
	"context"
	"log/slog"
	"os"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/metrics"
)

type sessionResult struct {
	summary model.SessionSummary
	err     error
}

// Run processes the watch folder until shutdown, then assembles the video
// and optionally removes the folder.
func Run(graceCtx context.Context, abortCtx context.Context, svcs pipeline.ServicesFactory) error {
	// Create an error stream
	errorStream := make(chan interface{})
	defer close(errorStream)

	// Create a stats stream
	statsStream := make(chan interface{})
	defer close(statsStream)

	ctrl, err := pipeline.NewController(svcs, errorStream, statsStream)
	if err != nil {
		return err
	}

	metricsCtx, stopMetrics := context.WithCancel(abortCtx)
	defer stopMetrics()
	go metrics.Serve(metricsCtx, svcs.CfgSvc.GetMetricsAddr())

	resultStream := make(chan sessionResult, 1)
	go func() {
		summary, err := ctrl.Run(graceCtx, abortCtx)
		resultStream <- sessionResult{summary: summary, err: err}
	}()

	var result sessionResult

	// Drain errors and stats until the controller has stopped every worker
	for {
		select {
		case result = <-resultStream:
			goto resume

		case s := <-statsStream:
			procStats(svcs.DataSvc, s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

resume:
	if result.err != nil {
		return result.err
	}

	procStats(svcs.DataSvc, result.summary)

	if result.summary.Aborted {
		lgr.Logger.Warn(
			"session aborted. Skipping video assembly",
			slog.String("session", result.summary.ID),
		)
		return nil
	}

	if err := pipeline.AssembleVideo(abortCtx, svcs.CfgSvc); err != nil {
		procError(svcs.DataSvc, model.GenError("run_mode",
			err,
			map[string]interface{}{"assembler": svcs.CfgSvc.GetAssemblerType()},
			"error assembling video"))
	}

	if svcs.CfgSvc.GetCleanupWatchFolder() {
		folder := svcs.CfgSvc.GetWatchFolder()
		if err := os.RemoveAll(folder); err != nil {
			procError(svcs.DataSvc, model.GenError("run_mode",
				err,
				map[string]interface{}{"folder": folder},
				"error removing watch folder"))
		} else {
			lgr.Logger.Info(
				"removed watch folder",
				slog.String("folder", folder),
			)
		}
	}

	lgr.Logger.Info(
		"session complete",
		slog.String("session", result.summary.ID),
		slog.Int("measurements", result.summary.Measurements),
		slog.Bool("exported", result.summary.Exported),
	)
	return nil
}
