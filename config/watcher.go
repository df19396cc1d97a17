package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/spf13/viper"
)

// Loadable is implemented by config structs that can fill defaults and
// check themselves.
type Loadable interface {
	ApplyDefaults()
	Validate() error
}

// loadable constrains PT to be *T implementing Loadable.
type loadable[T any] interface {
	*T
	Loadable
}

// Watcher holds the current value of a typed configuration and pushes every
// valid change of the underlying file to its subscribers. Invalid changes are
// logged and the previous value stays in effect.
type Watcher[T any] struct {
	v       *viper.Viper
	file    string
	prepare func(*T) error
	log     *logger.Logger

	reloadMu sync.Mutex // serializes reloads and notifications

	mu      sync.RWMutex
	current T
	subs    map[int]func(T)
	nextSub int
	closed  bool
}

// NewWatcher loads, defaults and validates the configuration for serviceName.
// Call Start to begin watching the file for changes.
func NewWatcher[T any, PT loadable[T]](serviceName string, opts ...LoaderOption) (*Watcher[T], error) {
	v, files, err := newViper(serviceName, reflect.TypeOf((*T)(nil)).Elem(), opts...)
	if err != nil {
		return nil, err
	}
	w := &Watcher[T]{
		v:    v,
		file: files.ConfigFile,
		prepare: func(cfg *T) error {
			PT(cfg).ApplyDefaults()
			return PT(cfg).Validate()
		},
		log:  logger.WithComponent("config"),
		subs: make(map[int]func(T)),
	}

	cfg, err := w.decode()
	if err != nil {
		return nil, err
	}
	w.current = cfg
	return w, nil
}

// File returns the config file being watched, or "" when none was found.
func (w *Watcher[T]) File() string { return w.file }

// Current returns the latest valid configuration.
func (w *Watcher[T]) Current() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe registers fn to be called with every new valid configuration.
// Calls are serialized. The returned function removes the subscription.
func (w *Watcher[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

// Start watches the config file for changes. It is a no-op when no config
// file was resolved.
func (w *Watcher[T]) Start() {
	if w.file == "" {
		w.log.Warn("no config file to watch, live reload disabled")
		return
	}
	w.v.OnConfigChange(func(e fsnotify.Event) {
		w.log.Debug("config file changed", logger.Fields("file", e.Name, "op", e.Op.String()))
		w.apply()
	})
	w.v.WatchConfig()
	w.log.Info("watching config file", logger.Fields("file", w.file))
}

// Reload re-reads the config file and applies it as if a change had been
// detected. It returns the validation error of an invalid file, which is
// otherwise ignored.
func (w *Watcher[T]) Reload() error {
	w.reloadMu.Lock()
	if w.file != "" {
		if err := w.v.ReadInConfig(); err != nil {
			w.reloadMu.Unlock()
			w.log.Warn("config reload failed, keeping previous values", logger.Fields(logger.FieldError, err.Error()))
			return errors.Wrap(err, errors.ErrCodeInvalidConfig, fmt.Sprintf("failed to read config file %s", w.file))
		}
	}
	w.reloadMu.Unlock()
	return w.apply()
}

// Close stops delivering changes to subscribers.
func (w *Watcher[T]) Close() {
	w.mu.Lock()
	w.closed = true
	w.subs = make(map[int]func(T))
	w.mu.Unlock()
}

func (w *Watcher[T]) apply() error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	cfg, err := w.decode()
	if err != nil {
		w.log.Warn("ignoring invalid config change", logger.Fields(logger.FieldError, err.Error()))
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.current = cfg
	subs := make([]func(T), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

func (w *Watcher[T]) decode() (T, error) {
	var cfg T
	if err := w.v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to unmarshal config")
	}
	if err := w.prepare(&cfg); err != nil {
		if errors.IsAppError(err) {
			return cfg, err
		}
		return cfg, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid config")
	}
	return cfg, nil
}
