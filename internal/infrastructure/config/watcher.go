package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads non-identity config fields (log level, retry tuning)
// on config file writes. Grounded on the teacher's plugin/loader.go
// StartWatching/handleWatchEvent, which watches a directory with
// fsnotify directly rather than polling — the core's
// domain/service.ConfigWatcher in the teacher instead polls os.Stat every
// few seconds, which this package deliberately does not imitate: a file
// write is the one event that matters here, and fsnotify reports it
// directly. Never reloads agent identity (ID, model, system prompt) —
// those require a fresh Agent/Orchestrator construction in cmd/, not a
// silent swap underneath a running conversation.
type Watcher struct {
	watcher    *fsnotify.Watcher
	configFile string
	logger     *zap.Logger
	onChange   func(*Config)
}

// NewWatcher opens an fsnotify watch on the directory containing
// configFile. onChange is invoked with a freshly Load()-ed Config
// whenever configFile is written.
func NewWatcher(configFile string, logger *zap.Logger, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(configFile)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		watcher:    fw,
		configFile: filepath.Clean(configFile),
		logger:     logger,
		onChange:   onChange,
	}, nil
}

// Start runs the watch loop until ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", zap.Error(err))
			}
		}
	}()

	w.logger.Info("config hot-reload watching started", zap.String("file", w.configFile))
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.configFile {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cfg, err := Load()
	if err != nil {
		w.logger.Error("config reload failed, keeping previous values", zap.Error(err))
		return
	}

	w.logger.Info("config reloaded", zap.String("file", w.configFile))
	w.onChange(cfg)
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
