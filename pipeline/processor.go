package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/imaging"
	"github.com/khaledhikmat/handpose-go/service/lgr"
	"github.com/khaledhikmat/handpose-go/service/metrics"
	"github.com/khaledhikmat/handpose-go/service/storage"
)

// Processor turns one raw frame file into a JPEG artifact plus journaled
// measurements. The raw file is only removed once the artifact is stored.
type Processor struct {
	codec      *Codec
	clock      *SessionClock
	admission  *Admission
	imaging    imaging.IService
	storage    storage.IService
	journal    data.IService
	detections *DetectionLog
	quality    int
	tracer     trace.Tracer
}

func NewProcessor(svcs ServicesFactory, codec *Codec, clock *SessionClock, admission *Admission, detections *DetectionLog) *Processor {
	return &Processor{
		codec:      codec,
		clock:      clock,
		admission:  admission,
		imaging:    svcs.ImagingSvc,
		storage:    svcs.StorageSvc,
		journal:    svcs.DataSvc,
		detections: detections,
		quality:    svcs.CfgSvc.GetJpegQuality(),
		tracer:     otel.Tracer("github.com/khaledhikmat/handpose-go/pipeline"),
	}
}

func (p *Processor) Process(ctx context.Context, path string) (err error) {
	ctx, span := p.tracer.Start(ctx, "process_frame", trace.WithAttributes(attribute.String("path", path)))
	start := time.Now()

	defer func() {
		if err != nil {
			step := "unknown"
			if se, ok := err.(*StepError); ok {
				step = se.Step
			}
			metrics.FramesFailedTotal.WithLabelValues(step).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			metrics.FramesProcessedTotal.Inc()
			metrics.FrameProcessingDuration.Observe(time.Since(start).Seconds())
		}
		span.End()
	}()

	ordinal, err := ParseOrdinal(path)
	if err != nil {
		return &StepError{Step: StepParse, Err: err}
	}
	span.SetAttributes(attribute.Int64("ordinal", int64(ordinal)))

	frame, err := p.codec.DecodeFile(path)
	if err != nil {
		p.admission.Release(ordinal)
		if errors.Is(err, ErrTruncatedPayload) || errors.Is(err, ErrPayloadSize) {
			// the header is intact, so ordinal 0 still defines the origin
			p.clock.Observe(ordinal, frame.Timestamp)
		} else if ordinal == 0 {
			p.clock.Abandon("origin frame header unreadable")
		}
		return &StepError{Step: StepDecode, Err: err}
	}

	p.clock.Observe(ordinal, frame.Timestamp)
	if err := p.clock.Wait(ctx); err != nil {
		p.admission.Release(ordinal)
		return &StepError{Step: StepClock, Err: err}
	}
	rel, err := p.clock.Relative(frame.Timestamp)
	if err != nil {
		p.admission.Release(ordinal)
		return &StepError{Step: StepClock, Err: err}
	}

	img := p.codec.Image(frame)
	det := p.admission.Detect(ctx, ordinal, img, rel)
	if err := ctx.Err(); err != nil {
		// aborted while waiting for admission, leave the raw frame
		return &StepError{Step: StepDetect, Err: err}
	}

	var hands []model.Hand
	if det.Empty() {
		metrics.FramesWithoutHandsTotal.Inc()
		lgr.Logger.Debug(
			"no hands detected",
			slog.Uint64("ordinal", ordinal),
		)
	} else {
		hands = det.Hands
		rows := model.Measurements(ordinal, rel, det)
		if err := p.journal.NewMeasurements(rows); err != nil {
			return &StepError{Step: StepJournal, Err: err}
		}
		metrics.MeasurementsTotal.Add(float64(len(rows)))

		if err := p.detections.Record(ordinal, rel, det); err != nil {
			lgr.Logger.Warn(
				"failed to write detection log",
				slog.Uint64("ordinal", ordinal),
				slog.Any("error", err),
			)
		}
	}

	jpeg, err := p.imaging.Render(img, hands, p.quality)
	if err != nil {
		return &StepError{Step: StepEncode, Err: err}
	}

	if err := p.storage.StoreFile(ArtifactPath(path), jpeg); err != nil {
		return &StepError{Step: StepStore, Err: err}
	}

	if err := p.storage.RemoveFile(path); err != nil {
		return &StepError{Step: StepRemove, Err: err}
	}

	lgr.Logger.Debug(
		"frame processed",
		slog.Uint64("ordinal", ordinal),
		slog.Int64("timestamp", rel),
		slog.Int("hands", len(hands)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
