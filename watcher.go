package fedguard

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/oarkflow/log"
)

// ConfigWatcher hot-reloads the simulation config when a .json file in the
// config directory changes. Invalid or out-of-range configs are logged and
// ignored; the engine keeps running on the last accepted config.
type ConfigWatcher struct {
	engine    *Engine
	watcher   *fsnotify.Watcher
	configDir string
	logger    *log.Logger
	done      chan struct{}
}

func WatchConfig(engine *Engine, configDir string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, err
	}
	w := &ConfigWatcher{
		engine:    engine,
		watcher:   watcher,
		configDir: configDir,
		logger:    engine.logger,
		done:      make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *ConfigWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			w.reload(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *ConfigWatcher) reload(changed string) {
	cfg, err := LoadConfig(w.configDir)
	if err != nil {
		w.logger.Error().Err(err).Str("file", changed).Msg("config reload failed")
		return
	}
	if err := w.engine.SetConfig(cfg); err != nil {
		w.logger.Error().Err(err).Str("file", changed).Msg("config rejected")
		return
	}
	w.logger.Info().Str("file", changed).Msg("config reloaded")
}

func (w *ConfigWatcher) Stop() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
