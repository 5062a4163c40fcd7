package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mdobak/go-xerrors"
	"golang.org/x/sync/errgroup"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/metrics"
)

// FrameProcessor handles one frame file end to end.
type FrameProcessor interface {
	Process(ctx context.Context, path string) error
}

// Pool runs a fixed number of workers competing on one queue. Workers leave
// on a poison item or when the context is cancelled.
type Pool struct {
	queue       *Queue
	proc        FrameProcessor
	workers     int
	popTimeout  time.Duration
	errorStream chan interface{}
	statsStream chan interface{}

	group   errgroup.Group
	running atomic.Bool
	poisons atomic.Int32
}

func NewPool(queue *Queue, proc FrameProcessor, workers int, popTimeout time.Duration, errorStream chan interface{}, statsStream chan interface{}) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		queue:       queue,
		proc:        proc,
		workers:     workers,
		popTimeout:  popTimeout,
		errorStream: errorStream,
		statsStream: statsStream,
	}
}

func (p *Pool) Workers() int {
	return p.workers
}

// Start launches the workers. ctx is the abort context: cancelling it makes
// workers leave without draining.
func (p *Pool) Start(ctx context.Context) {
	p.running.Store(true)

	for i := 0; i < p.workers; i++ {
		worker := i
		p.group.Go(func() error {
			p.work(ctx, worker)
			return nil
		})
	}

	lgr.Logger.Info(
		"frame workers started",
		slog.Int("workers", p.workers),
	)
}

// Stop pushes one poison item per worker and waits for all of them to exit.
// It returns the number of poison items consumed.
func (p *Pool) Stop() int {
	p.running.Store(false)
	for i := 0; i < p.workers; i++ {
		p.queue.Push(WorkItem{Poison: true})
	}

	_ = p.group.Wait()

	consumed := int(p.poisons.Load())
	lgr.Logger.Info(
		"frame workers stopped",
		slog.Int("workers", p.workers),
		slog.Int("poisoned", consumed),
	)
	return consumed
}

func (p *Pool) work(ctx context.Context, worker int) {
	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	frames := 0
	errors := 0
	beginTime := time.Now()
	var totalProcTime time.Duration

	defer func() {
		uptime := int64(time.Since(beginTime).Seconds())
		fps := 0
		if uptime > 0 {
			fps = int(float64(frames) / float64(uptime))
		}

		var avgProcTime float64
		if frames > 0 {
			avgProcTime = totalProcTime.Seconds() / float64(frames)
		}

		p.report(p.statsStream, model.WorkerStats{
			Name:        "frameWorker",
			Worker:      worker,
			Frames:      frames,
			Errors:      errors,
			Uptime:      uptime,
			FPS:         fps,
			AvgProcTime: avgProcTime,
		})
	}()

	for {
		item, ok := p.queue.Pop(ctx, p.popTimeout)
		if !ok {
			if ctx.Err() != nil {
				lgr.Logger.Info(
					"frame worker context cancelled",
					slog.Int("worker", worker),
				)
				return
			}
			if !p.running.Load() {
				lgr.Logger.Debug(
					"frame worker idle while stopping",
					slog.Int("worker", worker),
				)
			}
			continue
		}

		if item.Poison {
			p.poisons.Add(1)
			lgr.Logger.Debug(
				"frame worker received poison",
				slog.Int("worker", worker),
			)
			return
		}

		start := time.Now()
		err := p.safeProcess(ctx, item.Path)
		totalProcTime += time.Since(start)
		frames++
		if err == nil {
			// the raw file has been removed
			p.queue.Forget(item.Path)
		}
		p.queue.Done()

		if err != nil {
			errors++
			p.report(p.errorStream, model.GenError("frame_worker",
				err,
				map[string]interface{}{
					"path":   item.Path,
					"worker": worker,
				},
				"error processing frame %s",
				item.Path))
		}
	}
}

// safeProcess turns a panic in the processor into an error so one bad frame
// never takes a worker down.
func (p *Pool) safeProcess(ctx context.Context, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.New(fmt.Sprintf("panic processing %s", path), xerrors.FromRecover(r))
		}
	}()
	return p.proc.Process(ctx, path)
}

func (p *Pool) report(stream chan interface{}, v interface{}) {
	if stream == nil {
		return
	}
	stream <- v
}
