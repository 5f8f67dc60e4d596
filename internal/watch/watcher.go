// Package watch keeps a generated site fresh by polling its inputs and
// rebuilding after changes settle.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/metrics"
	"git.home.luguber.info/inful/formulary/internal/retry"
)

// RebuildFunc regenerates the site. It runs synchronously inside the watch loop.
type RebuildFunc func(ctx context.Context) error

const (
	DefaultPollInterval = time.Second
	DefaultDebounce     = time.Second
	DefaultErrorBackoff = 2 * time.Second
)

// Watcher polls a set of targets and invokes a rebuild whenever the newest
// modification time moves past the last observed baseline.
type Watcher struct {
	targets  Targets
	rebuild  RebuildFunc
	poll     time.Duration
	debounce time.Duration
	backoff  retry.Policy
	notify   bool
	recorder metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
	state    *State
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithPollInterval sets how often the targets are scanned.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithDebounce sets the quiet period between detecting a change and rebuilding.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithErrorBackoff sets the pause after a failed rebuild.
func WithErrorBackoff(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.backoff = retry.NewPolicy(w.backoff.Mode, d, max(w.backoff.Max, d))
		}
	}
}

// WithBackoffPolicy sets how the pause grows across consecutive failed rebuilds.
func WithBackoffPolicy(p retry.Policy) Option {
	return func(w *Watcher) { w.backoff = p }
}

// WithNotify toggles fsnotify wakeups.
func WithNotify(enabled bool) Option {
	return func(w *Watcher) { w.notify = enabled }
}

// WithRecorder sets the metrics recorder for rebuild outcomes.
func WithRecorder(r metrics.Recorder) Option {
	return func(w *Watcher) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher over targets.
func New(targets Targets, rebuild RebuildFunc, opts ...Option) *Watcher {
	w := &Watcher{
		targets:  targets,
		rebuild:  rebuild,
		poll:     DefaultPollInterval,
		debounce: DefaultDebounce,
		backoff:  retry.NewPolicy(retry.ModeFixed, DefaultErrorBackoff, 0),
		notify:   true,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
		state:    &State{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the live watcher state.
func (w *Watcher) State() *State { return w.state }

// WatchedFiles lists every regular file currently observed, sorted.
func (w *Watcher) WatchedFiles() []string {
	_, files := scan(w.targets)
	return files
}

// Run loops until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.rebuild == nil {
		return errors.InternalError("watcher has no rebuild function").Build()
	}
	baseline, files := scan(w.targets)
	w.state.setBaseline(baseline)
	w.logger.Info("Watching for changes",
		logfields.Count(len(files)),
		slog.Duration("poll", w.poll),
		slog.Duration("debounce", w.debounce))

	wake := make(chan struct{}, 1)
	if w.notify {
		stop, err := w.startNotify(ctx, wake)
		if err != nil {
			w.logger.Warn("File notifications unavailable; polling only", logfields.Error(err))
		} else {
			defer stop()
		}
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}

		latest, _ := scan(w.targets)
		if !w.state.changed(latest) {
			continue
		}
		w.state.markPending()
		w.logger.Info("Change detected; rebuilding site")

		if !sleep(ctx, w.debounce) {
			return nil
		}
		settled, _ := scan(w.targets)
		if settled.Before(latest) {
			settled = latest
		}

		err := w.safeRebuild(ctx)
		if ctx.Err() != nil {
			w.state.finish(settled, w.now(), nil)
			return nil
		}
		if err != nil {
			err = errors.WatchError("rebuild failed").WithCause(err).Build()
		}
		w.state.finish(settled, w.now(), err)
		drain(wake)

		if err != nil {
			failures++
			delay := w.backoff.Delay(failures)
			w.recorder.IncRebuild(metrics.ResultFatal)
			w.logger.Warn("Rebuild failed; keeping last good site",
				logfields.Error(err),
				slog.Int("consecutive_failures", failures),
				slog.Duration("backoff", delay))
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}
		failures = 0
		w.recorder.IncRebuild(metrics.ResultSuccess)
		w.logger.Info("Rebuild complete")
	}
}

// safeRebuild runs the rebuild function, converting panics into errors.
func (w *Watcher) safeRebuild(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError("rebuild panicked").
				WithContext("panic", fmt.Sprint(r)).
				Build()
		}
	}()
	return w.rebuild(ctx)
}

// startNotify registers fsnotify watches on every target directory and the
// parent directories of target files. Relevant events wake the loop.
func (w *Watcher) startNotify(ctx context.Context, wake chan<- struct{}) (func(), error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryWatch, "create fsnotify watcher").Build()
	}
	for _, dir := range w.targets.Dirs {
		if dir == "" {
			continue
		}
		if _, statErr := os.Stat(dir); statErr != nil {
			continue
		}
		w.addDirsRecursive(fw, dir)
	}
	for _, f := range w.targets.Files {
		if f == "" {
			continue
		}
		if err := fw.Add(filepath.Dir(f)); err != nil {
			w.logger.Debug("Watch add failed", logfields.Path(filepath.Dir(f)), logfields.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				w.handleEvent(fw, ev, wake)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("Watcher error", logfields.Error(err))
			}
		}
	}()
	return func() {
		_ = fw.Close()
		<-done
	}, nil
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, ev fsnotify.Event, wake chan<- struct{}) {
	if shouldIgnore(ev.Name) && !w.isTargetFile(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(fw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	select {
	case wake <- struct{}{}:
	default:
	}
}

func (w *Watcher) isTargetFile(path string) bool {
	for _, f := range w.targets.Files {
		if filepath.Clean(f) == filepath.Clean(path) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(fw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && shouldIgnore(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func drain(ch <-chan struct{}) {
	select {
	case <-ch:
	default:
	}
}
