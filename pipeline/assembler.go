package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

// AssembleVideo stitches the session's JPEG stills into a video with the
// configured assembler. It runs after the pool has fully stopped.
func AssembleVideo(ctx context.Context, cfgSvc config.IService) error {
	params := cfgSvc.GetAssemblerParameters()
	folder := cfgSvc.GetWatchFolder()

	switch cfgSvc.GetAssemblerType() {
	case config.AssemblerNone, "":
		return nil
	case config.AssemblerFFmpeg:
		return assembleWithFFmpeg(ctx, folder, params)
	case config.AssemblerGoCV:
		return assembleWithGoCV(folder, params)
	default:
		return fmt.Errorf("unknown assembler %q", cfgSvc.GetAssemblerType())
	}
}

// FFmpegArgs are the arguments run inside the watch folder.
func FFmpegArgs(params config.AssemblerParameters) []string {
	return []string{
		"-y",
		"-framerate", strconv.Itoa(params.FrameRate),
		"-i", "frame_%06d" + ArtifactExt,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		params.Output,
	}
}

func assembleWithFFmpeg(ctx context.Context, folder string, params config.AssemblerParameters) error {
	output, err := filepath.Abs(params.Output)
	if err != nil {
		return err
	}
	params.Output = output

	cmd := exec.CommandContext(ctx, params.FFmpegPath, FFmpegArgs(params)...)
	cmd.Dir = folder

	lgr.Logger.Info(
		"assembling video with ffmpeg",
		slog.String("folder", folder),
		slog.String("output", output),
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLines(out, 5))
	}
	return nil
}

// WARNING:
// The gocv writer depends on the codecs OpenCV was built with and produces
// much larger files than ffmpeg with libx264.
func assembleWithGoCV(folder string, params config.AssemblerParameters) error {
	stills, err := ListArtifacts(folder)
	if err != nil {
		return err
	}
	if len(stills) == 0 {
		return fmt.Errorf("no frames to assemble in %s", folder)
	}

	first := gocv.IMRead(stills[0], gocv.IMReadColor)
	if first.Empty() {
		return fmt.Errorf("invalid first frame %s", stills[0])
	}
	cols, rows := first.Cols(), first.Rows()
	first.Close()

	lgr.Logger.Info(
		"assembling video with gocv",
		slog.String("folder", folder),
		slog.String("output", params.Output),
		slog.Int("frames", len(stills)),
	)

	writer, err := gocv.VideoWriterFile(params.Output, "avc1", float64(params.FrameRate), cols, rows, true)
	if err != nil {
		return err
	}
	defer writer.Close()

	for _, still := range stills {
		if err := writeStill(writer, still, cols, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeStill(writer *gocv.VideoWriter, path string, cols, rows int) error {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()
	if mat.Empty() {
		lgr.Logger.Warn(
			"skipping unreadable frame",
			slog.String("path", path),
		)
		return nil
	}

	if mat.Cols() == cols && mat.Rows() == rows {
		return writer.Write(mat)
	}

	lgr.Logger.Warn(
		"frame dimensions do not match video dimensions, resizing frame",
		slog.Int("frame_cols", mat.Cols()),
		slog.Int("frame_rows", mat.Rows()),
		slog.Int("video_cols", cols),
		slog.Int("video_rows", rows),
	)

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(mat, &resized, image.Pt(cols, rows), 0, 0, gocv.InterpolationLinear); err != nil {
		return err
	}
	return writer.Write(resized)
}

func lastLines(out []byte, n int) string {
	end := len(out)
	for end > 0 && (out[end-1] == '\n' || out[end-1] == '\r') {
		end--
	}
	start := end
	for lines := 0; start > 0; start-- {
		if out[start-1] == '\n' {
			lines++
			if lines == n {
				break
			}
		}
	}
	return string(out[start:end])
}
