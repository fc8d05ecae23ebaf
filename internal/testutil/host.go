// Package testutil provides an in-memory project host for tests: a project
// cache and a revisioned config reader that share one history.
package testutil

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

// Host is an in-memory project.Cache and project.ConfigReader. Every call to
// SetConfig records a new revision of the project's configuration.
type Host struct {
	mu        sync.Mutex
	root      project.Name
	current   map[project.Name]string
	revisions map[string]*project.Config
	broken    map[string]error
	next      int
}

var (
	_ project.Cache        = (*Host)(nil)
	_ project.ConfigReader = (*Host)(nil)
)

// NewHost returns an empty host rooted at project.AllProjects.
func NewHost() *Host {
	return &Host{
		root:      project.AllProjects,
		current:   make(map[project.Name]string),
		revisions: make(map[string]*project.Config),
		broken:    make(map[string]error),
	}
}

// SetConfig stores a new revision of p's configuration and makes it current.
// It returns the old and new revisions.
func (h *Host) SetConfig(p project.Name, parent project.Name, plugin string, values map[string]string) (oldRev, newRev string) {
	cfg := &project.Config{
		Parent:  parent,
		Plugins: map[string]project.PluginConfig{plugin: project.PluginConfig(values)},
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store(p, cfg)
}

// SetBrokenConfig records a revision of p whose configuration fails to read
// with err. The current state of p is left unchanged so that only reads at
// the returned revision fail.
func (h *Host) SetBrokenConfig(p project.Name, err error) (oldRev, newRev string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	oldRev = h.currentRev(p)
	newRev = h.nextRev()
	h.broken[newRev] = err
	return oldRev, newRev
}

// Delete removes p from the host and returns its last revision.
func (h *Host) Delete(p project.Name) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	rev := h.currentRev(p)
	delete(h.current, p)
	return rev
}

// Event builds the ref-updated event for a configuration change.
func Event(p project.Name, oldRev, newRev string) project.RefUpdatedEvent {
	return project.RefUpdatedEvent{
		Project: p,
		RefName: project.ConfigRef,
		OldRev:  oldRev,
		NewRev:  newRev,
	}
}

// All implements project.Cache.
func (h *Host) All() []project.Name {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]project.Name, 0, len(h.current))
	for name := range h.current {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Get implements project.Cache.
func (h *Host) Get(name project.Name) (*project.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return project.NewChain(name, h.root, func(n project.Name) (*project.Config, bool) {
		rev, ok := h.current[n]
		if !ok {
			return nil, false
		}
		return h.revisions[rev], true
	})
}

// ReadConfig implements project.ConfigReader.
func (h *Host) ReadConfig(name project.Name, rev string) (*project.Config, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err, ok := h.broken[rev]; ok {
		return nil, err
	}
	cfg, ok := h.revisions[rev]
	if !ok {
		return nil, fmt.Errorf("reading %s at %s: revision not found", name, rev)
	}
	return cfg, nil
}

func (h *Host) store(p project.Name, cfg *project.Config) (string, string) {
	oldRev := h.currentRev(p)
	newRev := h.nextRev()
	h.revisions[newRev] = cfg
	h.current[p] = newRev
	return oldRev, newRev
}

func (h *Host) currentRev(p project.Name) string {
	if rev, ok := h.current[p]; ok {
		return rev
	}
	return project.ZeroRevision
}

func (h *Host) nextRev() string {
	h.next++
	return fmt.Sprintf("%040x", h.next)
}
