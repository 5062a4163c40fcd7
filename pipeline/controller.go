package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/metrics"
)

var ErrWatchFolder = errors.New("watch folder is not usable")

const (
	sourceScan  = "scan"
	sourceWatch = "watch"
	sourceSweep = "sweep"
)

// Controller owns one processing session over a watch folder: discovery,
// the worker pool and the drain-then-export shutdown.
type Controller struct {
	svcs        ServicesFactory
	queue       *Queue
	pool        *Pool
	clock       *SessionClock
	admission   *Admission
	processor   *Processor
	detections  *DetectionLog
	errorStream chan interface{}

	discovered   int
	notified     int
	originQueued bool
}

func NewController(svcs ServicesFactory, errorStream chan interface{}, statsStream chan interface{}) (*Controller, error) {
	codec, err := NewCodec(svcs.CfgSvc.GetFrameParameters())
	if err != nil {
		return nil, err
	}

	clock := NewSessionClock()
	admission := NewAdmission(svcs.PoseSvc, svcs.CfgSvc.GetAdmissionGapTimeout())
	detections := NewDetectionLog(svcs.CfgSvc.GetDetectionLogFile())
	processor := NewProcessor(svcs, codec, clock, admission, detections)
	queue := NewQueue()

	return &Controller{
		svcs:        svcs,
		queue:       queue,
		pool:        NewPool(queue, processor, svcs.CfgSvc.GetMaxWorkers(), svcs.CfgSvc.GetQueuePopTimeout(), errorStream, statsStream),
		clock:       clock,
		admission:   admission,
		processor:   processor,
		detections:  detections,
		errorStream: errorStream,
	}, nil
}

// Run processes the session until the shutdown marker appears or graceCtx is
// cancelled, then drains the queue, stops the workers and exports the
// measurements once. Cancelling abortCtx skips the drain and the export.
func (c *Controller) Run(graceCtx context.Context, abortCtx context.Context) (model.SessionSummary, error) {
	startTime := time.Now()
	folder := c.svcs.CfgSvc.GetWatchFolder()
	marker := c.svcs.CfgSvc.GetShutdownMarker()
	summary := model.SessionSummary{
		ID:          c.svcs.DataSvc.SessionID(),
		WatchFolder: folder,
	}

	info, err := os.Stat(folder)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrWatchFolder, err)
	}
	if !info.IsDir() {
		return summary, fmt.Errorf("%w: %s is not a directory", ErrWatchFolder, folder)
	}

	if err := os.Remove(marker); err == nil {
		lgr.Logger.Info(
			"removed stale shutdown marker",
			slog.String("marker", marker),
		)
	}

	frames, err := ListFrames(folder)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", ErrWatchFolder, err)
	}
	for _, f := range frames {
		c.enqueue(f, sourceScan)
	}
	lgr.Logger.Info(
		"enqueued existing frames",
		slog.String("folder", folder),
		slog.Int("frames", len(frames)),
	)

	c.pool.Start(abortCtx)

	paths, err := c.svcs.WatchSvc.Subscribe()
	if err != nil {
		c.pool.Stop()
		return summary, err
	}

	ticker := time.NewTicker(c.svcs.CfgSvc.GetControllerPeriodicTimeout())
	defer ticker.Stop()

	for {
		select {
		case <-graceCtx.Done():
			lgr.Logger.Info(
				"pipeline controller context cancelled",
			)
			goto shutdown

		case p := <-paths:
			c.enqueue(p, sourceWatch)

		case <-ticker.C:
			if _, err := os.Stat(marker); err == nil {
				lgr.Logger.Info(
					"shutdown marker found",
					slog.String("marker", marker),
				)
				goto shutdown
			}

			pending := c.queue.Pending()
			metrics.QueueDepth.Set(float64(pending))
			if pending > 0 {
				lgr.Logger.Info(
					"frames waiting",
					slog.Int("pending", pending),
				)
			}
		}
	}

shutdown:
	c.shutdown(abortCtx, &summary)

	summary.Uptime = int64(time.Since(startTime).Seconds())
	summary.Timestamp = time.Now().Unix()
	return summary, nil
}

func (c *Controller) shutdown(abortCtx context.Context, summary *model.SessionSummary) {
	if err := c.svcs.WatchSvc.Unsubscribe(); err != nil {
		c.errorStream <- model.GenError("pipeline_controller",
			err,
			map[string]interface{}{},
			"error unsubscribing from watch service")
	}

	// Frames created after the last notification was handled
	if frames, err := ListFrames(c.svcs.CfgSvc.GetWatchFolder()); err == nil {
		swept := 0
		for _, f := range frames {
			if c.enqueue(f, sourceSweep) {
				swept++
			}
		}
		if swept > 0 {
			lgr.Logger.Info(
				"enqueued frames found on final sweep",
				slog.Int("frames", swept),
			)
		}
	}

	// Nothing can latch the clock any more, so frames waiting on it must fail
	if !c.originQueued {
		c.clock.Abandon("no origin frame in session")
	}

	lgr.Logger.Info(
		"pipeline controller is waiting for the queue to drain",
		slog.Int("pending", c.queue.Pending()),
	)
	if err := c.queue.Wait(abortCtx, c.progress()); err != nil {
		summary.Aborted = true
		lgr.Logger.Warn(
			"drain aborted",
			slog.Int("pending", c.queue.Pending()),
		)
	}
	metrics.QueueDepth.Set(float64(c.queue.Pending()))

	summary.Poisoned = c.pool.Stop()
	summary.Discovered = c.discovered
	summary.Notified = c.notified
	summary.StaleAdmitted = c.admission.Stale()
	if abortCtx.Err() != nil {
		summary.Aborted = true
	}

	if n, err := c.svcs.DataSvc.CountMeasurements(); err == nil {
		summary.Measurements = n
	}

	if !summary.Aborted {
		c.export(summary)
	}

	if err := os.Remove(c.svcs.CfgSvc.GetShutdownMarker()); err != nil && !errors.Is(err, os.ErrNotExist) {
		lgr.Logger.Warn(
			"failed to remove shutdown marker",
			slog.Any("error", err),
		)
	}

	if err := c.detections.Close(); err != nil {
		lgr.Logger.Warn(
			"failed to close detection log",
			slog.Any("error", err),
		)
	}
}

func (c *Controller) export(summary *model.SessionSummary) {
	exportFile := c.svcs.CfgSvc.GetExportFile()
	n, err := data.ExportCSV(c.svcs.DataSvc, exportFile)
	if err != nil {
		c.errorStream <- model.GenError("pipeline_controller",
			err,
			map[string]interface{}{"file": exportFile},
			"error exporting measurements")
		return
	}

	if n == 0 {
		lgr.Logger.Info("no landmarks to save")
		return
	}

	summary.ExportFile = exportFile
	summary.Exported = true
	lgr.Logger.Info(
		"landmarks saved",
		slog.String("file", exportFile),
		slog.Int("rows", n),
	)
}

// enqueue pushes a frame and registers its ordinal for admission. Paths that
// were already pushed are ignored. Only the controller pushes frames, so the
// Seen check cannot race another push.
func (c *Controller) enqueue(path string, source string) bool {
	if c.queue.Seen(path) {
		return false
	}

	// Register before the push so a worker never sees an unregistered ordinal
	if ordinal, err := ParseOrdinal(path); err == nil {
		c.admission.Expect(ordinal)
		if ordinal == 0 {
			c.originQueued = true
		}
	}
	c.queue.Push(WorkItem{Path: path})

	switch source {
	case sourceWatch:
		c.notified++
	default:
		c.discovered++
	}
	metrics.FramesDiscoveredTotal.WithLabelValues(source).Inc()
	return true
}

func (c *Controller) progress() func(int) {
	total := c.queue.Pending()
	if !c.svcs.CfgSvc.GetShowProgress() || total == 0 {
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("draining frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	return func(remaining int) {
		_ = bar.Set(total - remaining)
		if remaining == 0 {
			_ = bar.Finish()
		}
	}
}
