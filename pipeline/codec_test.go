package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/handpose-go/service/config"
)

func newTestCodec(t *testing.T, params config.FrameParameters) *Codec {
	t.Helper()
	c, err := NewCodec(params)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func interleavedParams() config.FrameParameters {
	return config.FrameParameters{Layout: config.LayoutInterleaved}
}

func TestDecodeInterleavedRoundTrip(t *testing.T) {
	c := newTestCodec(t, interleavedParams())
	in := Frame{Timestamp: 1_000_000, Width: 2, Height: 1, Payload: []byte{1, 2, 3, 4, 5, 6}}

	var buf bytes.Buffer
	if err := c.Encode(&buf, in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf.Len() != interleavedHeaderSize+6 {
		t.Fatalf("encoded %d bytes, want %d", buf.Len(), interleavedHeaderSize+6)
	}

	out, err := c.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Timestamp != in.Timestamp || out.Width != 2 || out.Height != 1 {
		t.Errorf("header mismatch: %+v", out)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("payload = %v, want %v", out.Payload, in.Payload)
	}
}

func TestDecodeErrors(t *testing.T) {
	c := newTestCodec(t, interleavedParams())

	var full bytes.Buffer
	_ = c.Encode(&full, Frame{Timestamp: 7, Width: 2, Height: 2, Payload: make([]byte, 12)})
	raw := full.Bytes()

	var mismatched bytes.Buffer
	_ = c.Encode(&mismatched, Frame{Timestamp: 7, Width: 2, Height: 2, Payload: make([]byte, 5)})

	// Payload failures still report the header timestamp
	tests := []struct {
		name   string
		data   []byte
		want   error
		wantTs uint64
	}{
		{"empty", nil, ErrTruncatedHeader, 0},
		{"short header", raw[:10], ErrTruncatedHeader, 0},
		{"header only", raw[:interleavedHeaderSize], ErrTruncatedPayload, 7},
		{"short payload", raw[:len(raw)-1], ErrTruncatedPayload, 7},
		{"size mismatch", mismatched.Bytes(), ErrPayloadSize, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := c.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
			if frame.Timestamp != tt.wantTs {
				t.Errorf("Timestamp = %d, want %d", frame.Timestamp, tt.wantTs)
			}
			if frame.Payload != nil {
				t.Errorf("payload of a failed decode = %d bytes, want nil", len(frame.Payload))
			}
		})
	}
}

func TestDecodeFileNV12(t *testing.T) {
	c := newTestCodec(t, config.FrameParameters{Layout: config.LayoutNV12, Width: 4, Height: 2})

	path := filepath.Join(t.TempDir(), FrameFileName(3))
	var buf bytes.Buffer
	_ = c.Encode(&buf, Frame{Timestamp: 42, Payload: make([]byte, 12)})
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	frame, err := c.DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}
	if frame.Timestamp != 42 || frame.Width != 4 || frame.Height != 2 || len(frame.Payload) != 12 {
		t.Errorf("unexpected frame %+v", frame)
	}
}

func TestNewCodecRejectsOddNV12(t *testing.T) {
	if _, err := NewCodec(config.FrameParameters{Layout: config.LayoutNV12, Width: 3, Height: 2}); err == nil {
		t.Error("expected error for odd nv12 width")
	}
	if _, err := NewCodec(config.FrameParameters{Layout: "yuyv"}); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestParseOrdinal(t *testing.T) {
	tests := []struct {
		path    string
		want    uint64
		wantErr bool
	}{
		{"/tmp/frames/frame_000000.raw", 0, false},
		{"frame_000042.raw", 42, false},
		{"cam_a_frame_1234567.raw", 1234567, false},
		{"frame_.raw", 0, true},
		{"frame_abc.raw", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseOrdinal(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOrdinal(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrBadOrdinal) {
			t.Errorf("ParseOrdinal(%q) error = %v, want ErrBadOrdinal", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("ParseOrdinal(%q) = %d, want %d", tt.path, got, tt.want)
		}
	}
}

func TestArtifactPath(t *testing.T) {
	if got := ArtifactPath("/w/frame_000007.raw"); got != "/w/frame_000007.jpg" {
		t.Errorf("ArtifactPath = %q", got)
	}
	if got := FrameFileName(7); got != "frame_000007.raw" {
		t.Errorf("FrameFileName = %q", got)
	}
}
