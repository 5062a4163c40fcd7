package main

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/khaledhikmat/handpose-go/model"
	"github.com/khaledhikmat/handpose-go/pipeline"
	"github.com/khaledhikmat/handpose-go/service/data"
)

func TestRunModeRejectsUnknownMode(t *testing.T) {
	err := runMode(context.Background(), context.Background(), "replay", pipeline.ServicesFactory{})
	if err == nil {
		t.Fatal("expected an error for an unknown mode")
	}
}

func TestRootCommandHasModes(t *testing.T) {
	root := newRootCmd(context.Background(), context.Background())
	for _, name := range []string{"run", "export"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %q not registered: %v", name, err)
		}
	}
}

func TestExportCommandReplaysJournal(t *testing.T) {
	root := t.TempDir()
	watchDir := filepath.Join(root, "frames")
	if err := os.Mkdir(watchDir, 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOG_FILE", filepath.Join(root, "frame_processor.log"))

	journal := filepath.Join(root, "landmarks.db")
	svc, err := data.NewSqlite(journal, watchDir)
	if err != nil {
		t.Fatal(err)
	}
	det := &model.Detection{Hands: []model.Hand{
		{Score: 0.9, Landmarks: []model.Landmark{{X: 0.1}, {X: 0.2}}},
	}}
	if err := svc.NewMeasurements(model.Measurements(1, 33, det)); err != nil {
		t.Fatal(err)
	}
	svc.Close()

	output := filepath.Join(root, "replayed.csv")
	cmd := newRootCmd(context.Background(), context.Background())
	cmd.SetArgs([]string{"export", watchDir, "--journal", journal, "-o", output})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header plus one row per landmark
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
}

func TestExportCommandWithoutSession(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LOG_FILE", filepath.Join(root, "frame_processor.log"))

	cmd := newRootCmd(context.Background(), context.Background())
	cmd.SetArgs([]string{"export", root, "--journal", filepath.Join(root, "empty.db")})
	err := cmd.Execute()
	if !errors.Is(err, data.ErrNoSession) {
		t.Fatalf("got %v, want ErrNoSession", err)
	}
}
