package harness

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchCrashes reports the first file created in dir. It returns nil when
// ctx is done or when dir does not exist yet.
func watchCrashes(ctx context.Context, dir string, found chan<- string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) {
				continue
			}
			select {
			case found <- filepath.Base(ev.Name):
			default:
			}
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
