package config

import (
	"path/filepath"
	"time"
)

type hardcodedService struct {
	watchFolder string
}

// NewHardCoded returns the built-in defaults. The defaults match the capture
// client: frame_%06d.raw files with the interleaved RGB header.
func NewHardCoded(watchFolder string) IService {
	return &hardcodedService{
		watchFolder: watchFolder,
	}
}

func (svc *hardcodedService) GetModeMaxShutdownTime() int {
	return 5
}

func (svc *hardcodedService) GetWatchFolder() string {
	return svc.watchFolder
}

func (svc *hardcodedService) GetShutdownMarker() string {
	return filepath.Join(svc.GetWatchFolder(), ".shutdown")
}

func (svc *hardcodedService) GetMaxWorkers() int {
	return 4
}

func (svc *hardcodedService) GetQueuePopTimeout() time.Duration {
	return time.Second
}

func (svc *hardcodedService) GetWatchSettleDelay() time.Duration {
	return 10 * time.Millisecond
}

func (svc *hardcodedService) GetControllerPeriodicTimeout() time.Duration {
	return time.Second
}

func (svc *hardcodedService) GetAdmissionGapTimeout() time.Duration {
	return 5 * time.Second
}

func (svc *hardcodedService) GetFrameParameters() FrameParameters {
	return FrameParameters{
		Layout:     LayoutInterleaved,
		Width:      1920,
		Height:     1080,
		CropWidth:  0,
		CropHeight: 0,
		Rotate180:  true,
	}
}

func (svc *hardcodedService) GetJpegQuality() int {
	// 95 keeps finger detail intact in the assembled video
	return 95
}

func (svc *hardcodedService) GetPoseDetectorType() string {
	return PoseLandmarker
}

func (svc *hardcodedService) GetPoseParameters() PoseParameters {
	return PoseParameters{
		ModelPath:            "./models/hand_landmark.onnx",
		InputSize:            224,
		MinPresence:          0.5,
		MaxHands:             2,
		LandmarksOutput:      "Identity",
		PresenceOutput:       "Identity_1",
		HandednessOutput:     "Identity_2",
		WorldLandmarksOutput: "Identity_3",
	}
}

func (svc *hardcodedService) GetJournalType() string {
	return JournalMemory
}

func (svc *hardcodedService) GetJournalFile() string {
	return filepath.Join(filepath.Dir(filepath.Clean(svc.GetWatchFolder())), "landmarks.db")
}

func (svc *hardcodedService) GetExportFile() string {
	return filepath.Join(filepath.Dir(filepath.Clean(svc.GetWatchFolder())), "landmarks.csv")
}

func (svc *hardcodedService) GetDetectionLogFile() string {
	return ""
}

func (svc *hardcodedService) GetAssemblerType() string {
	return AssemblerFFmpeg
}

func (svc *hardcodedService) GetAssemblerParameters() AssemblerParameters {
	return AssemblerParameters{
		FrameRate:  30,
		Output:     filepath.Join(filepath.Dir(filepath.Clean(svc.GetWatchFolder())), "output.mp4"),
		FFmpegPath: "ffmpeg",
	}
}

func (svc *hardcodedService) GetCleanupWatchFolder() bool {
	return false
}

func (svc *hardcodedService) GetLogLevel() string {
	return "info"
}

func (svc *hardcodedService) GetLogFile() string {
	return "frame_processor.log"
}

func (svc *hardcodedService) GetMetricsAddr() string {
	return ""
}

func (svc *hardcodedService) GetShowProgress() bool {
	return true
}
