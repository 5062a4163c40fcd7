package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// envService reads overrides from the environment and falls back to the
// hardcoded defaults for anything unset or unparsable.
type envService struct {
	IService
	workers int
}

// NewEnv builds the runtime configuration. A positive workers value (from the
// command line) wins over MAX_WORKERS.
func NewEnv(watchFolder string, workers int) IService {
	return &envService{
		IService: NewHardCoded(watchFolder),
		workers:  workers,
	}
}

func (svc *envService) GetShutdownMarker() string {
	return filepath.Join(svc.GetWatchFolder(), getEnv("SHUTDOWN_MARKER", ".shutdown"))
}

func (svc *envService) GetMaxWorkers() int {
	if svc.workers > 0 {
		return svc.workers
	}
	return getEnvAsInt("MAX_WORKERS", svc.IService.GetMaxWorkers())
}

func (svc *envService) GetQueuePopTimeout() time.Duration {
	return getEnvAsDuration("QUEUE_POP_TIMEOUT", svc.IService.GetQueuePopTimeout())
}

func (svc *envService) GetWatchSettleDelay() time.Duration {
	return getEnvAsDuration("WATCH_SETTLE_DELAY", svc.IService.GetWatchSettleDelay())
}

func (svc *envService) GetControllerPeriodicTimeout() time.Duration {
	return getEnvAsDuration("CONTROLLER_POLL_INTERVAL", svc.IService.GetControllerPeriodicTimeout())
}

func (svc *envService) GetAdmissionGapTimeout() time.Duration {
	return getEnvAsDuration("ADMISSION_GAP_TIMEOUT", svc.IService.GetAdmissionGapTimeout())
}

func (svc *envService) GetFrameParameters() FrameParameters {
	p := svc.IService.GetFrameParameters()
	p.Layout = getEnv("FRAME_LAYOUT", p.Layout)
	p.Width = getEnvAsInt("FRAME_WIDTH", p.Width)
	p.Height = getEnvAsInt("FRAME_HEIGHT", p.Height)
	p.CropWidth = getEnvAsInt("FRAME_CROP_WIDTH", p.CropWidth)
	p.CropHeight = getEnvAsInt("FRAME_CROP_HEIGHT", p.CropHeight)
	p.Rotate180 = getEnvAsBool("FRAME_ROTATE180", p.Rotate180)
	return p
}

func (svc *envService) GetJpegQuality() int {
	return getEnvAsInt("JPEG_QUALITY", svc.IService.GetJpegQuality())
}

func (svc *envService) GetPoseDetectorType() string {
	return getEnv("POSE_DETECTOR", svc.IService.GetPoseDetectorType())
}

func (svc *envService) GetPoseParameters() PoseParameters {
	p := svc.IService.GetPoseParameters()
	p.ModelPath = getEnv("POSE_MODEL_PATH", p.ModelPath)
	p.InputSize = getEnvAsInt("POSE_INPUT_SIZE", p.InputSize)
	p.MinPresence = getEnvAsFloat32("POSE_MIN_PRESENCE", p.MinPresence)
	p.MaxHands = getEnvAsInt("POSE_MAX_HANDS", p.MaxHands)
	return p
}

func (svc *envService) GetJournalType() string {
	return getEnv("JOURNAL", svc.IService.GetJournalType())
}

func (svc *envService) GetJournalFile() string {
	return getEnv("JOURNAL_FILE", svc.IService.GetJournalFile())
}

func (svc *envService) GetExportFile() string {
	return getEnv("EXPORT_FILE", svc.IService.GetExportFile())
}

func (svc *envService) GetDetectionLogFile() string {
	return getEnv("DETECTION_LOG_FILE", svc.IService.GetDetectionLogFile())
}

func (svc *envService) GetAssemblerType() string {
	return getEnv("ASSEMBLER", svc.IService.GetAssemblerType())
}

func (svc *envService) GetAssemblerParameters() AssemblerParameters {
	p := svc.IService.GetAssemblerParameters()
	p.FrameRate = getEnvAsInt("ASSEMBLER_FRAME_RATE", p.FrameRate)
	p.Output = getEnv("ASSEMBLER_OUTPUT", p.Output)
	p.FFmpegPath = getEnv("FFMPEG_PATH", p.FFmpegPath)
	return p
}

func (svc *envService) GetCleanupWatchFolder() bool {
	return getEnvAsBool("CLEANUP_WATCH_DIR", svc.IService.GetCleanupWatchFolder())
}

func (svc *envService) GetLogLevel() string {
	return getEnv("LOG_LEVEL", svc.IService.GetLogLevel())
}

func (svc *envService) GetLogFile() string {
	return getEnv("LOG_FILE", svc.IService.GetLogFile())
}

func (svc *envService) GetMetricsAddr() string {
	return getEnv("METRICS_ADDR", svc.IService.GetMetricsAddr())
}

func (svc *envService) GetShowProgress() bool {
	return getEnvAsBool("SHOW_PROGRESS", svc.IService.GetShowProgress())
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvAsFloat32(key string, fallback float32) float32 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}
