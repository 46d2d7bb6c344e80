// Package artifact reports on the media file a capture writes.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/tchung1970/record/lib/logger"
)

// Artifact is a finished recording on disk.
type Artifact struct {
	Path string
	Size int64
}

// Stat returns the artifact at path, or nil when nothing was written there.
func Stat(path string) (*Artifact, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat recording: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("recording path %s is a directory", path)
	}
	if fi.Size() == 0 {
		return nil, nil
	}
	return &Artifact{Path: path, Size: fi.Size()}, nil
}

// Tracker follows the size of a file while another process writes it.
type Tracker struct {
	path      string
	size      atomic.Int64
	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewTracker watches path for writes. When file notifications are unavailable
// the tracker falls back to stat on every Size call.
func NewTracker(ctx context.Context, path string) *Tracker {
	t := &Tracker{
		path: filepath.Clean(path),
		done: make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.FromContext(ctx).Debug("file notifications unavailable, using stat", "err", err)
		close(t.done)
		return t
	}
	if err := watcher.Add(filepath.Dir(t.path)); err != nil {
		logger.FromContext(ctx).Debug("failed to watch recording directory, using stat", "err", err)
		_ = watcher.Close()
		close(t.done)
		return t
	}
	t.watcher = watcher
	t.refresh()

	go t.run(ctx)
	return t
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)
	log := logger.FromContext(ctx)
	for {
		select {
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				t.size.Store(0)
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				t.refresh()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			log.Debug("recording watcher error", "err", err)
		}
	}
}

func (t *Tracker) refresh() {
	if fi, err := os.Stat(t.path); err == nil {
		t.size.Store(fi.Size())
	}
}

// Size returns the last known size of the file in bytes.
func (t *Tracker) Size() int64 {
	if t.watcher == nil {
		t.refresh()
	}
	return t.size.Load()
}

// Close stops watching. It is safe to call more than once.
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.watcher != nil {
			err = t.watcher.Close()
		}
		<-t.done
	})
	return err
}
