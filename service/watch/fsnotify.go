package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/handpose-go/service/config"
	"github.com/khaledhikmat/handpose-go/service/lgr"
)

type created struct {
	path string
	at   time.Time
}

type fsnotifyService struct {
	CanxCtx context.Context
	Folder  string
	Ext     string
	Settle  time.Duration

	mu          sync.Mutex
	SubsCtx     context.Context
	SubsCancel  context.CancelFunc
	Watcher     *fsnotify.Watcher
	PathChannel chan string
}

// NewFSNotify watches the configured folder, non-recursively, for created
// files with the given extension. Each path is delivered once the settle
// delay has passed since its creation event.
func NewFSNotify(canxCtx context.Context, cfgSvc config.IService, ext string) IService {
	return &fsnotifyService{
		CanxCtx: canxCtx,
		Folder:  cfgSvc.GetWatchFolder(),
		Ext:     ext,
		Settle:  cfgSvc.GetWatchSettleDelay(),
	}
}

func (svc *fsnotifyService) Subscribe() (<-chan string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.SubsCtx != nil {
		return nil, xerrors.New("watch service. already subscribed. Unsubscribe first")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, xerrors.Errorf("watch service. creating watcher: %w", err)
	}
	if err := watcher.Add(svc.Folder); err != nil {
		watcher.Close()
		return nil, xerrors.Errorf("watch service. watching %s: %w", svc.Folder, err)
	}

	// One channel for the lifetime of the service, regardless of how many
	// times we subscribe/unsubscribe
	if svc.PathChannel == nil {
		svc.PathChannel = make(chan string)
	}

	subsCtx, subsCancel := context.WithCancel(svc.CanxCtx)
	svc.SubsCtx = subsCtx
	svc.SubsCancel = subsCancel
	svc.Watcher = watcher

	settling := make(chan created, 1024)
	go svc.listen(subsCtx, watcher, settling)
	go svc.forward(subsCtx, settling, svc.PathChannel)

	lgr.Logger.Info(
		"watching folder for new frames",
		slog.String("folder", svc.Folder),
		slog.String("ext", svc.Ext),
		slog.Duration("settle", svc.Settle),
	)

	return svc.PathChannel, nil
}

func (svc *fsnotifyService) Unsubscribe() error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.SubsCtx == nil {
		return xerrors.New("watch service. not subscribed yet. Subscribe first")
	}

	svc.SubsCancel()
	err := svc.Watcher.Close()
	svc.SubsCtx = nil
	svc.SubsCancel = nil
	svc.Watcher = nil
	return err
}

func (svc *fsnotifyService) listen(ctx context.Context, watcher *fsnotify.Watcher, settling chan<- created) {
	defer close(settling)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || filepath.Ext(event.Name) != svc.Ext {
				continue
			}
			select {
			case settling <- created{path: event.Name, at: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			lgr.Logger.Error(
				"watch service error",
				slog.String("folder", svc.Folder),
				slog.Any("error", err),
			)
		}
	}
}

// forward delivers paths in creation order, each no earlier than its settle
// deadline.
func (svc *fsnotifyService) forward(ctx context.Context, settling <-chan created, out chan<- string) {
	for c := range settling {
		if wait := time.Until(c.at.Add(svc.Settle)); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
		}

		select {
		case out <- c.path:
		case <-ctx.Done():
			return
		}
	}
}
