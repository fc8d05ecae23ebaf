package download

import (
	"sort"
	"sync"
)

// Handle retracts a catalog registration.
type Handle interface {
	Remove()
}

// Catalog is the set of download commands the host renders to users.
type Catalog interface {
	// Register exposes cmd under (plugin, name), replacing any previous
	// registration for the same key.
	Register(plugin, name string, cmd Command) Handle
}

// Entry is one registration in a MapCatalog snapshot.
type Entry struct {
	Plugin  string
	Name    string
	Command Command
}

type catalogKey struct {
	plugin string
	name   string
}

type registration struct {
	cmd Command
}

// MapCatalog is an in-memory Catalog safe for concurrent use.
type MapCatalog struct {
	mu      sync.RWMutex
	entries map[catalogKey]*registration
}

var _ Catalog = (*MapCatalog)(nil)

// NewMapCatalog returns an empty catalog.
func NewMapCatalog() *MapCatalog {
	return &MapCatalog{entries: make(map[catalogKey]*registration)}
}

// Register implements Catalog.
func (c *MapCatalog) Register(plugin, name string, cmd Command) Handle {
	key := catalogKey{plugin: plugin, name: name}
	reg := &registration{cmd: cmd}

	c.mu.Lock()
	c.entries[key] = reg
	c.mu.Unlock()

	return &mapHandle{catalog: c, key: key, reg: reg}
}

// Get returns the command registered under (plugin, name).
func (c *MapCatalog) Get(plugin, name string) (Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	reg, ok := c.entries[catalogKey{plugin: plugin, name: name}]
	if !ok {
		return nil, false
	}
	return reg.cmd, true
}

// Entries returns a snapshot of all registrations sorted by plugin and name.
func (c *MapCatalog) Entries() []Entry {
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for key, reg := range c.entries {
		entries = append(entries, Entry{Plugin: key.plugin, Name: key.name, Command: reg.cmd})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Plugin != entries[j].Plugin {
			return entries[i].Plugin < entries[j].Plugin
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Len returns the number of registrations.
func (c *MapCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

type mapHandle struct {
	catalog *MapCatalog
	key     catalogKey
	reg     *registration
	once    sync.Once
}

// Remove drops the registration unless it was already replaced.
func (h *mapHandle) Remove() {
	h.once.Do(func() {
		h.catalog.mu.Lock()
		defer h.catalog.mu.Unlock()
		if h.catalog.entries[h.key] == h.reg {
			delete(h.catalog.entries, h.key)
		}
	})
}
