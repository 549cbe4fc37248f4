package dispatch

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// CacheInvalidator watches registered handler-set directories for file
// changes and invokes a callback so a CachedResolver layered in front of a
// Registry (spec §9: "handler sets can optionally be cached by (dir,
// name)... invalidate on file-mtime change") can drop its stale entries.
type CacheInvalidator struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	onEvent func(directory string)
}

// NewCacheInvalidator starts watching no directories; call Watch to add
// them. onEvent is called (on the watcher's own goroutine) whenever a
// watched directory's contents change; its argument is the path of the
// changed entry inside that directory, not the directory itself.
func NewCacheInvalidator(logger *slog.Logger, onEvent func(directory string)) (*CacheInvalidator, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	ci := &CacheInvalidator{watcher: w, logger: logger, onEvent: onEvent}
	go ci.run()
	return ci, nil
}

// Watch adds directory to the watch set.
func (c *CacheInvalidator) Watch(directory string) error {
	return c.watcher.Add(directory)
}

// Close stops the watcher.
func (c *CacheInvalidator) Close() error {
	return c.watcher.Close()
}

func (c *CacheInvalidator) run() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				c.logger.Debug("handler directory changed", "path", event.Name, "op", event.Op.String())
				if c.onEvent != nil {
					c.onEvent(event.Name)
				}
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("handler directory watch error", "error", err)
		}
	}
}
