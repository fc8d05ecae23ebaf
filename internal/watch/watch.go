// Package watch turns moves of a project ref on disk into ref-updated events.
// It combines fsnotify notifications with a periodic rescan, so a missed
// notification only delays an event until the next poll.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

const (
	defaultInterval = 2 * time.Second
	debounceDelay   = 50 * time.Millisecond
)

// Source lists projects and reports the current revision of the watched ref.
type Source interface {
	Root() string
	All() []project.Name
	Revision(name project.Name) (string, error)
	RepoPath(name project.Name) string
}

// Sink receives ref-updated events, one project's events in commit order.
type Sink func(event project.RefUpdatedEvent)

// Watcher emits an event whenever the watched ref of a project moves,
// including creation and deletion.
type Watcher struct {
	source   Source
	refName  string
	interval time.Duration
	log      logrus.FieldLogger
	notify   *fsnotify.Watcher

	mu      sync.Mutex
	revs    map[project.Name]string
	watched map[string]bool
}

// New creates a watcher for refName in every project of source. A zero
// interval selects the default poll interval.
func New(source Source, refName string, interval time.Duration, log logrus.FieldLogger) (*Watcher, error) {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		source:   source,
		refName:  refName,
		interval: interval,
		log:      log.WithField("component", "watch"),
		notify:   notify,
		revs:     make(map[project.Name]string),
		watched:  make(map[string]bool),
	}, nil
}

// Prime records the current revision of every project without emitting
// events. Moves after Prime are reported by the next scan.
func (w *Watcher) Prime() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, name := range w.source.All() {
		rev, err := w.source.Revision(name)
		if err != nil {
			w.log.WithError(err).WithField("project", name).Warn("Failed to read ref")
			continue
		}
		w.revs[name] = rev
		w.watchProjectLocked(name)
	}
	w.watchLocked(w.source.Root())
}

// Run watches until ctx is done, passing every ref move to sink.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.notify.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			w.log.WithField("path", event.Name).Trace("File event")
			if debounce == nil {
				debounce = time.After(debounceDelay)
			}
		case <-debounce:
			debounce = nil
			w.Scan(sink)
		case <-ticker.C:
			w.Scan(sink)
		case err, ok := <-w.notify.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			// Continue on errors, polling will catch up
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

// Scan compares every project's ref with the last seen revision and emits
// an event for each that moved. Projects are visited in name order.
func (w *Watcher) Scan(sink Sink) {
	w.mu.Lock()
	events := w.scanLocked()
	w.mu.Unlock()

	for _, ev := range events {
		w.log.WithFields(logrus.Fields{
			"project": ev.Project,
			"old":     ev.OldRev,
			"new":     ev.NewRev,
		}).Debug("Ref updated")
		sink(ev)
	}
}

func (w *Watcher) scanLocked() []project.RefUpdatedEvent {
	var events []project.RefUpdatedEvent
	seen := make(map[project.Name]bool)

	for _, name := range w.source.All() {
		seen[name] = true
		w.watchProjectLocked(name)

		rev, err := w.source.Revision(name)
		if err != nil {
			w.log.WithError(err).WithField("project", name).Warn("Failed to read ref")
			continue
		}
		if ev, moved := w.moveLocked(name, rev); moved {
			events = append(events, ev)
		}
	}

	for name := range w.revs {
		if seen[name] {
			continue
		}
		if ev, moved := w.moveLocked(name, project.ZeroRevision); moved {
			events = append(events, ev)
		}
		delete(w.revs, name)
	}
	return events
}

func (w *Watcher) moveLocked(name project.Name, rev string) (project.RefUpdatedEvent, bool) {
	old, ok := w.revs[name]
	if !ok {
		old = project.ZeroRevision
	}
	w.revs[name] = rev
	if old == rev || (project.IsZeroRevision(old) && project.IsZeroRevision(rev)) {
		return project.RefUpdatedEvent{}, false
	}
	return project.RefUpdatedEvent{
		Project: name,
		RefName: w.refName,
		OldRev:  old,
		NewRev:  rev,
	}, true
}

// watchProjectLocked watches the directories a ref update of name touches:
// the repository (packed-refs), the ref's directory, and every directory
// between the root and the repository so new projects are noticed.
func (w *Watcher) watchProjectLocked(name project.Name) {
	repo := w.source.RepoPath(name)
	root := filepath.Clean(w.source.Root())

	for dir := filepath.Dir(repo); len(dir) > len(root); dir = filepath.Dir(dir) {
		w.watchLocked(dir)
	}
	w.watchLocked(repo)

	refDir := filepath.Join(repo, filepath.Dir(filepath.FromSlash(w.refName)))
	for dir := refDir; len(dir) > len(repo); dir = filepath.Dir(dir) {
		w.watchLocked(dir)
	}
}

func (w *Watcher) watchLocked(dir string) {
	if w.watched[dir] {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		return
	}
	if err := w.notify.Add(dir); err != nil {
		w.log.WithError(err).WithField("path", dir).Debug("Failed to watch directory")
		return
	}
	w.watched[dir] = true
}

// Close stops the underlying fsnotify watcher. Run returns once it notices.
func (w *Watcher) Close() error {
	return w.notify.Close()
}
