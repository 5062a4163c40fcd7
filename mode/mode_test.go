package mode

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/data"
	"github.com/khaledhikmat/handpose-go/service/imaging"
	"github.com/khaledhikmat/handpose-go/service/pose"
	"github.com/khaledhikmat/handpose-go/service/storage"
)

type testConfig struct {
	config.IService
}

func (c testConfig) GetMaxWorkers() int { return 2 }
func (c testConfig) GetQueuePopTimeout() time.Duration { return 10 * time.Millisecond }
func (c testConfig) GetControllerPeriodicTimeout() time.Duration { return 10 * time.Millisecond }
func (c testConfig) GetShowProgress() bool { return false }
func (c testConfig) GetAssemblerType() string { return config.AssemblerNone }
func (c testConfig) GetCleanupWatchFolder() bool { return true }

type staticWatch struct{}

func (staticWatch) Subscribe() (<-chan string, error) { return make(chan string), nil }
func (staticWatch) Unsubscribe() error { return nil }

func writeFrame(t *testing.T, dir string, ordinal uint64, ts uint64) {
	t.Helper()
	codec, err := pipeline.NewCodec(config.FrameParameters{Layout: config.LayoutInterleaved})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_ = codec.Encode(&buf, pipeline.Frame{Timestamp: ts, Width: 1, Height: 1, Payload: []byte{1, 2, 3}})
	if err := os.WriteFile(filepath.Join(dir, pipeline.FrameFileName(ordinal)), buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunDrainsExportsAndCleansUp(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "frames")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeFrame(t, dir, 0, 10)
	writeFrame(t, dir, 1, 43)

	cfg := testConfig{IService: config.NewHardCoded(dir)}
	journal, err := data.NewSqlite(filepath.Join(root, "landmarks.db"), dir)
	if err != nil {
		t.Fatal(err)
	}
	defer journal.Close()

	svcs := pipeline.ServicesFactory{
		CfgSvc:     cfg,
		DataSvc:    journal,
		WatchSvc:   staticWatch{},
		StorageSvc: storage.NewLocal(),
		PoseSvc: pose.NewFake(func(model.Image, int64) (model.Detection, error) {
			return pose.OneHand(0.4, 0.6), nil
		}),
		ImagingSvc: imaging.NewFake(),
	}

	go func() {
		// Give the startup scan time to be processed before asking to stop
		for i := 0; i < 500; i++ {
			if n, _ := journal.CountMeasurements(); n == 2*pose.LandmarksPerHand {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		_ = os.WriteFile(cfg.GetShutdownMarker(), nil, 0644)
	}()

	if err := Run(context.Background(), context.Background(), svcs); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(cfg.GetExportFile()); err != nil {
		t.Errorf("export file missing: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("watch folder should have been removed")
	}

	// The journal can replay the same session afterwards
	exportFile := filepath.Join(root, "replay.csv")
	replay, err := data.OpenSqliteSession(filepath.Join(root, "landmarks.db"), "")
	if err != nil {
		t.Fatal(err)
	}
	defer replay.Close()

	if err := Export(context.Background(), context.Background(), pipeline.ServicesFactory{
		CfgSvc:  exportConfig{IService: cfg, file: exportFile},
		DataSvc: replay,
	}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	want, _ := os.ReadFile(cfg.GetExportFile())
	got, _ := os.ReadFile(exportFile)
	if !bytes.Equal(got, want) {
		t.Error("replayed export differs from the session export")
	}
}

type exportConfig struct {
	config.IService
	file string
}

func (c exportConfig) GetExportFile() string { return c.file }

func TestRunFailsOnMissingWatchFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	svcs := pipeline.ServicesFactory{
		CfgSvc:     testConfig{IService: config.NewHardCoded(dir)},
		DataSvc:    data.NewMemory(),
		WatchSvc:   staticWatch{},
		StorageSvc: storage.NewLocal(),
		PoseSvc:    pose.NewFake(nil),
		ImagingSvc: imaging.NewFake(),
	}

	if err := Run(context.Background(), context.Background(), svcs); err == nil {
		t.Error("expected an error for a missing watch folder")
	}
}

func TestProcStatsAcceptsKnownTypes(t *testing.T) {
	journal := data.NewMemory()
	procStats(journal, model.WorkerStats{Name: "frameWorker"})
	procStats(journal, model.SessionSummary{ID: journal.SessionID()})
	procStats(journal, "unexpected")
	procError(journal, model.GenError("test", os.ErrNotExist, nil, "missing"))
}
