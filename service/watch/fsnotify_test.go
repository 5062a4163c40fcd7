package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/khaledhikmat/handpose-go/service/config"
)

func TestSubscribeDeliversCreatedRawFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewFSNotify(ctx, config.NewHardCoded(dir), ".raw")
	paths, err := svc.Subscribe()
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer svc.Unsubscribe()

	if _, err := svc.Subscribe(); err == nil {
		t.Error("second Subscribe should fail")
	}

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "frame_000000.raw")
	if err := os.WriteFile(want, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-paths:
		if got != want {
			t.Errorf("delivered %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification for created raw file")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	svc := NewFSNotify(context.Background(), config.NewHardCoded(dir), ".raw")

	if err := svc.Unsubscribe(); err == nil {
		t.Error("Unsubscribe before Subscribe should fail")
	}

	paths, err := svc.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	_ = os.WriteFile(filepath.Join(dir, "frame_000001.raw"), []byte("x"), 0644)
	select {
	case p := <-paths:
		t.Errorf("unexpected delivery after unsubscribe: %s", p)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeMissingFolder(t *testing.T) {
	svc := NewFSNotify(context.Background(), config.NewHardCoded(filepath.Join(t.TempDir(), "gone")), ".raw")
	if _, err := svc.Subscribe(); err == nil {
		t.Error("expected error watching a missing folder")
	}
}
