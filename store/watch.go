package store

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type IWatcher interface {
	Watch(ctx context.Context, onChange func(name string)) error
}

// FileWatcher reports changes to a fixed set of files. The parent folders
// are watched so editors that replace files on save are still noticed.
type FileWatcher struct {
	Paths  []string
	Logger *logrus.Logger
}

func NewFileWatcher(paths []string, logger *logrus.Logger) *FileWatcher {
	return &FileWatcher{
		Paths:  paths,
		Logger: logger,
	}
}

// Watch blocks until ctx is done, calling onChange for every write, create,
// rename or removal of one of the watched files.
func (fileWatcher *FileWatcher) Watch(ctx context.Context, onChange func(name string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer watcher.Close()

	watched := map[string]bool{}
	folders := map[string]bool{}
	for _, path := range fileWatcher.Paths {
		absolutePath, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", path)
		}
		watched[absolutePath] = true
		folders[filepath.Dir(absolutePath)] = true
	}
	for folder := range folders {
		if err := watcher.Add(folder); err != nil {
			return errors.Wrapf(err, "watching %s", folder)
		}
		fileWatcher.Logger.Debugf("Watching folder %s", folder)
	}

	for {
		select {
		case <-ctx.Done():
			fileWatcher.Logger.Debug("Stopped watching files")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			name, err := filepath.Abs(event.Name)
			if err != nil || !watched[name] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				fileWatcher.Logger.Debugf("File %s changed (%s)", name, event.Op)
				onChange(name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fileWatcher.Logger.Warnf("File watcher error: %v", err)
		}
	}
}
