package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the presence section whenever the config file changes
type Watcher struct {
	path     string
	onChange func(PresenceConfig)
	log      zerolog.Logger
	watcher  *fsnotify.Watcher
	last     PresenceConfig
}

// NewWatcher watches path. onChange runs on the watch goroutine with the
// new presence section, only when it differs from the last one seen.
func NewWatcher(path string, onChange func(PresenceConfig), log zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// editors often replace the file, so watch the directory
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		log:      log.With().Str("component", "config").Logger(),
		watcher:  fw,
	}
	if cfg, err := Load(abs); err == nil {
		w.last = cfg.Presence
	}
	return w, nil
}

// Run handles file events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn().Err(err).Msg("config reload failed")
		return
	}
	if cfg.Presence == w.last {
		return
	}
	w.last = cfg.Presence
	w.log.Info().Msg("presence config reloaded")
	if w.onChange != nil {
		w.onChange(cfg.Presence)
	}
}
