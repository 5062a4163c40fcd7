package pipeline

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/service/config"
)

const (
	RawExt      = ".raw"
	ArtifactExt = ".jpg"

	interleavedHeaderSize = 20 // ts:u64 width:u32 height:u32 size:u32
	nv12HeaderSize        = 12 // ts:u64 size:u32
)

var (
	ErrTruncatedHeader  = errors.New("truncated frame header")
	ErrTruncatedPayload = errors.New("truncated frame payload")
	ErrPayloadSize      = errors.New("frame payload size does not match dimensions")
	ErrBadOrdinal       = errors.New("frame file name has no ordinal")
)

// Layout selects one of the two on-disk frame containers. It is fixed for the
// whole session; files are never probed.
type Layout int

const (
	LayoutInterleaved Layout = iota
	LayoutNV12
)

func (l Layout) String() string {
	switch l {
	case LayoutInterleaved:
		return config.LayoutInterleaved
	case LayoutNV12:
		return config.LayoutNV12
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(s) {
	case config.LayoutInterleaved, "rgb":
		return LayoutInterleaved, nil
	case config.LayoutNV12:
		return LayoutNV12, nil
	default:
		return 0, fmt.Errorf("unknown frame layout %q", s)
	}
}

// Frame is a decoded frame container. Payload is still in the capture layout.
type Frame struct {
	Timestamp uint64
	Width     int
	Height    int
	Payload   []byte
}

type Codec struct {
	layout     Layout
	width      int
	height     int
	cropWidth  int
	cropHeight int
	rotate180  bool
}

func NewCodec(params config.FrameParameters) (*Codec, error) {
	layout, err := ParseLayout(params.Layout)
	if err != nil {
		return nil, err
	}

	c := &Codec{
		layout:     layout,
		width:      params.Width,
		height:     params.Height,
		cropWidth:  params.CropWidth,
		cropHeight: params.CropHeight,
		rotate180:  params.Rotate180,
	}

	if layout == LayoutNV12 {
		if c.width <= 0 || c.height <= 0 || c.width%2 != 0 || c.height%2 != 0 {
			return nil, fmt.Errorf("nv12 layout needs positive even dimensions, got %dx%d", c.width, c.height)
		}
	}
	if c.cropWidth < 0 || c.cropHeight < 0 {
		return nil, fmt.Errorf("invalid crop %dx%d", c.cropWidth, c.cropHeight)
	}

	return c, nil
}

func (c *Codec) Layout() Layout {
	return c.layout
}

func (c *Codec) DecodeFile(path string) (Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, err
	}
	defer f.Close()

	return c.Decode(bufio.NewReader(f))
}

// Decode reads one frame container. Short reads are reported as
// ErrTruncatedHeader or ErrTruncatedPayload. When the header decoded but the
// payload is unusable (ErrPayloadSize, ErrTruncatedPayload) the returned frame
// still carries the header fields and a nil payload.
func (c *Codec) Decode(r io.Reader) (Frame, error) {
	headerSize := interleavedHeaderSize
	if c.layout == LayoutNV12 {
		headerSize = nv12HeaderSize
	}

	header := make([]byte, headerSize)
	if n, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedHeader, n, headerSize)
		}
		return Frame{}, err
	}

	frame := Frame{Timestamp: binary.LittleEndian.Uint64(header[0:8])}

	var size, expected uint64
	switch c.layout {
	case LayoutNV12:
		frame.Width, frame.Height = c.width, c.height
		size = uint64(binary.LittleEndian.Uint32(header[8:12]))
		expected = uint64(c.width) * uint64(c.height) * 3 / 2
	default:
		frame.Width = int(binary.LittleEndian.Uint32(header[8:12]))
		frame.Height = int(binary.LittleEndian.Uint32(header[12:16]))
		size = uint64(binary.LittleEndian.Uint32(header[16:20]))
		expected = uint64(frame.Width) * uint64(frame.Height) * 3
	}

	if size != expected {
		return frame, fmt.Errorf("%w: declared %d bytes for %dx%d, expected %d", ErrPayloadSize, size, frame.Width, frame.Height, expected)
	}

	payload := make([]byte, size)
	if n, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frame, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedPayload, n, size)
		}
		return frame, err
	}
	frame.Payload = payload

	return frame, nil
}

// Encode writes frame in the codec's container layout.
func (c *Codec) Encode(w io.Writer, frame Frame) error {
	var header []byte
	switch c.layout {
	case LayoutNV12:
		header = make([]byte, nv12HeaderSize)
		binary.LittleEndian.PutUint64(header[0:8], frame.Timestamp)
		binary.LittleEndian.PutUint32(header[8:12], uint32(len(frame.Payload)))
	default:
		header = make([]byte, interleavedHeaderSize)
		binary.LittleEndian.PutUint64(header[0:8], frame.Timestamp)
		binary.LittleEndian.PutUint32(header[8:12], uint32(frame.Width))
		binary.LittleEndian.PutUint32(header[12:16], uint32(frame.Height))
		binary.LittleEndian.PutUint32(header[16:20], uint32(len(frame.Payload)))
	}

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(frame.Payload)
	return err
}

// Image converts the payload into the RGB image the pose detector consumes.
// The conversion depends only on the frame and the codec settings.
func (c *Codec) Image(frame Frame) model.Image {
	var img model.Image
	switch c.layout {
	case LayoutNV12:
		img = NV12ToRGB(frame.Width, frame.Height, frame.Payload)
		img = CropBottomCentre(img, c.cropWidth, c.cropHeight)
		if c.rotate180 {
			img = Rotate180(img)
		}
	default:
		img = model.Image{Width: frame.Width, Height: frame.Height, Pix: frame.Payload}
		img = CropBottomCentre(img, c.cropWidth, c.cropHeight)
	}
	return img
}

// ParseOrdinal extracts the zero-padded ordinal from names like frame_000042.raw.
func ParseOrdinal(path string) (uint64, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	token := stem[strings.LastIndex(stem, "_")+1:]
	ordinal, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrBadOrdinal, filepath.Base(path))
	}
	return ordinal, nil
}

// ArtifactPath is where the encoded still for a raw frame is written.
func ArtifactPath(rawPath string) string {
	return strings.TrimSuffix(rawPath, filepath.Ext(rawPath)) + ArtifactExt
}

func FrameFileName(ordinal uint64) string {
	return fmt.Sprintf("frame_%06d%s", ordinal, RawExt)
}
