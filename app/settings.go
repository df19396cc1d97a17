package app

import (
	"sync"

	"github.com/kbukum/demandflow/pipeline"
)

// configSource is the part of config.Watcher the run depends on.
type configSource interface {
	Current() Config
	Subscribe(fn func(Config)) (unsubscribe func())
}

// watchedSettings exposes the pipeline section of a watched config as a
// pipeline.SettingsProvider. Reloads that leave the section unchanged are
// not forwarded.
type watchedSettings struct {
	src configSource
}

func (s watchedSettings) Current() pipeline.Settings {
	return s.src.Current().Pipeline.Settings()
}

func (s watchedSettings) Subscribe(fn func(pipeline.Settings)) (unsubscribe func()) {
	var mu sync.Mutex
	last := s.Current()
	return s.src.Subscribe(func(c Config) {
		next := c.Pipeline.Settings()
		mu.Lock()
		changed := next != last
		last = next
		mu.Unlock()
		if changed {
			fn(next)
		}
	})
}
