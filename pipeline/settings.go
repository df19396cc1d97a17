package pipeline

import "time"

// Settings are the tunables that may change while a run is in progress.
type Settings struct {
	Workers          int
	ProgressInterval time.Duration
}

// SettingsProvider supplies the current Settings and pushes every change.
type SettingsProvider interface {
	Current() Settings
	Subscribe(fn func(Settings)) (unsubscribe func())
}
