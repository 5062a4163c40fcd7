package config

import "time"

const (
	LayoutInterleaved = "interleaved"
	LayoutNV12        = "nv12"

	PoseLandmarker = "landmarker"
	PoseFake       = "fake"

	JournalMemory = "memory"
	JournalSqlite = "sqlite"

	AssemblerFFmpeg = "ffmpeg"
	AssemblerGoCV   = "gocv"
	AssemblerNone   = "none"
)

type FrameParameters struct {
	Layout     string
	Width      int // fixed resolution for the nv12 layout
	Height     int
	CropWidth  int // 0 disables the bottom-centre crop
	CropHeight int
	Rotate180  bool
}

// PoseParameters describes the hand landmark model. MaxHands caps how many
// hand slots of the model outputs are decoded per frame.
type PoseParameters struct {
	ModelPath            string
	InputSize            int
	MinPresence          float32
	MaxHands             int
	LandmarksOutput      string
	PresenceOutput       string
	HandednessOutput     string
	WorldLandmarksOutput string
}

type AssemblerParameters struct {
	FrameRate  int
	Output     string
	FFmpegPath string
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetWatchFolder() string
	GetShutdownMarker() string
	GetMaxWorkers() int
	GetQueuePopTimeout() time.Duration
	GetWatchSettleDelay() time.Duration
	GetControllerPeriodicTimeout() time.Duration
	GetAdmissionGapTimeout() time.Duration
	GetFrameParameters() FrameParameters
	GetJpegQuality() int
	GetPoseDetectorType() string
	GetPoseParameters() PoseParameters
	GetJournalType() string
	GetJournalFile() string
	GetExportFile() string
	GetDetectionLogFile() string
	GetAssemblerType() string
	GetAssemblerParameters() AssemblerParameters
	GetCleanupWatchFolder() bool
	GetLogLevel() string
	GetLogFile() string
	GetMetricsAddr() string
	GetShowProgress() bool
}
