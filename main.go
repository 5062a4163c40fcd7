package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/handpose-go/mode"
	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"run":    mode.Run,
	"export": mode.Export,
}

func main() {
	rootCtx := context.Background()
	// The first signal asks for a drained shutdown, the second one aborts
	graceCtx, graceFn := context.WithCancel(rootCtx)
	abortCtx, abortFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the contexts
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal. Draining, signal again to abort",
			slog.Any("signal", sig),
		)
		graceFn()

		sig = <-sigChan
		lgr.Logger.Warn(
			"received second kill signal. Aborting",
			slog.Any("signal", sig),
		)
		abortFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			os.Exit(1)
		}
		if err == nil {
			lgr.Logger.Info("loaded env vars from .env file")
		}
	}

	err := newRootCmd(graceCtx, abortCtx).ExecuteContext(graceCtx)
	graceFn()
	abortFn()
	if err != nil {
		lgr.Logger.Error(
			"frame processor exited with error",
			slog.Any("error", xerrors.New(err.Error())),
		)
		os.Exit(1)
	}
}

// runMode runs the named mode processor. Once the abort context is cancelled
// it gives the processor `waitOnShutdown` to join its workers.
func runMode(graceCtx context.Context, abortCtx context.Context, modeType string, svcs pipeline.ServicesFactory) error {
	modeProc, ok := modeProcessors[modeType]
	if !ok {
		return xerrors.Errorf("invalid mode: %s", modeType)
	}

	// Create mode processor result
	modeProcResult := make(chan error, 1)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(graceCtx, abortCtx, svcs)
	}()

	// Wait for the mode proc or an abort
	select {
	case err := <-modeProcResult:
		return err

	case <-abortCtx.Done():
		lgr.Logger.Info(
			"frame processor context aborted",
		)
	}

	lgr.Logger.Info(
		"frame processor is waiting for all go routines to exit",
	)

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	select {
	case <-timer.C:
		lgr.Logger.Info(
			"frame processor shutdown waiting period expired. Exiting now",
			slog.Duration("period", waitOnShutdown),
		)
		return nil

	case err := <-modeProcResult:
		return err
	}
}
