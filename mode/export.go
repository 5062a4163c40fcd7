package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

// Export replays a journaled session into the measurement CSV.
func Export(_ context.Context, _ context.Context, svcs pipeline.ServicesFactory) error {
	exportFile := svcs.CfgSvc.GetExportFile()

	n, err := data.ExportCSV(svcs.DataSvc, exportFile)
	if err != nil {
		return err
	}

	if n == 0 {
		lgr.Logger.Info(
			"no landmarks to save",
			slog.String("session", svcs.DataSvc.SessionID()),
		)
		return nil
	}

	lgr.Logger.Info(
		"landmarks saved",
		slog.String("session", svcs.DataSvc.SessionID()),
		slog.String("file", exportFile),
		slog.Int("rows", n),
	)
	return nil
}
