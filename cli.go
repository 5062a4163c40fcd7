package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/imaging"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/pose"
	"github.com/khaledhikmat/handpose-go/service/storage"
	"github.com/khaledhikmat/handpose-go/service/watch"
)

// Version is the application version.
const Version = "0.1.0"

func newRootCmd(graceCtx context.Context, abortCtx context.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "handpose",
		Short:         "Hand pose post-processor for raw capture frames",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newRunCmd(graceCtx, abortCtx))
	rootCmd.AddCommand(newExportCmd(graceCtx, abortCtx))
	return rootCmd
}

func newRunCmd(graceCtx context.Context, abortCtx context.Context) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "run <watch_dir>",
		Short: "Process frames written to a watch directory until it is told to shut down",
		Long: `Processes every raw frame already in the watch directory and every one created
afterwards. The session ends when <watch_dir>/.shutdown appears or on the first
interrupt; queued frames are drained and landmarks.csv is written next to the
watch directory. A second interrupt aborts without exporting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgSvc := config.NewEnv(filepath.Clean(args[0]), workers)
			closer := setupLogging(cfgSvc)
			defer closer.Close()

			svcs, err := runServices(abortCtx, cfgSvc)
			if err != nil {
				return err
			}
			defer closeServices(svcs)

			return runMode(graceCtx, abortCtx, "run", svcs)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of frame workers (default from MAX_WORKERS or 4)")
	return cmd
}

func newExportCmd(graceCtx context.Context, abortCtx context.Context) *cobra.Command {
	var journalFile, sessionID, output string

	cmd := &cobra.Command{
		Use:   "export <watch_dir>",
		Short: "Replay a journaled session into landmarks.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgSvc := config.NewEnv(filepath.Clean(args[0]), 0)
			closer := setupLogging(cfgSvc)
			defer closer.Close()

			if journalFile == "" {
				journalFile = cfgSvc.GetJournalFile()
			}
			dataSvc, err := data.OpenSqliteSession(journalFile, sessionID)
			if err != nil {
				return err
			}
			defer dataSvc.Close()

			if output != "" {
				cfgSvc = exportOverride{IService: cfgSvc, file: output}
			}

			return runMode(graceCtx, abortCtx, "export", pipeline.ServicesFactory{
				CfgSvc:  cfgSvc,
				DataSvc: dataSvc,
			})
		},
	}

	cmd.Flags().StringVar(&journalFile, "journal", "", "sqlite journal (default <parent of watch_dir>/landmarks.db)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to replay (default: latest)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file to write (default <parent of watch_dir>/landmarks.csv)")
	return cmd
}

type exportOverride struct {
	config.IService
	file string
}

func (c exportOverride) GetExportFile() string {
	return c.file
}

func setupLogging(cfgSvc config.IService) io.Closer {
	return lgr.Setup(lgr.Options{
		Level:      cfgSvc.GetLogLevel(),
		File:       cfgSvc.GetLogFile(),
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 7,
	})
}

// runServices creates the services needed for the run mode processor.
func runServices(canxCtx context.Context, cfgSvc config.IService) (pipeline.ServicesFactory, error) {
	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfgSvc,
		WatchSvc:   watch.NewFSNotify(canxCtx, cfgSvc, pipeline.RawExt),
		StorageSvc: storage.NewLocal(),
		ImagingSvc: imaging.NewGoCV(),
	}

	switch cfgSvc.GetJournalType() {
	case config.JournalMemory:
		svcs.DataSvc = data.NewMemory()
	case config.JournalSqlite:
		dataSvc, err := data.NewSqlite(cfgSvc.GetJournalFile(), cfgSvc.GetWatchFolder())
		if err != nil {
			return svcs, err
		}
		svcs.DataSvc = dataSvc
	default:
		return svcs, fmt.Errorf("unknown journal %q", cfgSvc.GetJournalType())
	}

	switch cfgSvc.GetPoseDetectorType() {
	case config.PoseFake:
		svcs.PoseSvc = pose.NewFake(nil)
	case config.PoseLandmarker:
		poseSvc, err := pose.NewLandmarker(cfgSvc)
		if err != nil {
			svcs.DataSvc.Close()
			return svcs, err
		}
		svcs.PoseSvc = poseSvc
	default:
		svcs.DataSvc.Close()
		return svcs, fmt.Errorf("unknown pose detector %q", cfgSvc.GetPoseDetectorType())
	}

	return svcs, nil
}

func closeServices(svcs pipeline.ServicesFactory) {
	if svcs.PoseSvc != nil {
		svcs.PoseSvc.Close()
	}
	if svcs.DataSvc != nil {
		svcs.DataSvc.Close()
	}
}
