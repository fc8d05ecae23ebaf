// Package project models the host-side view of projects that download
// commands are configured on: project names, their inheritance chain and the
// per-plugin sections of each project's configuration file.
//
// Projects form a forest. Every project except the root inherits from exactly
// one parent; a project that names no parent inherits from the root
// (All-Projects by default).
package project

import (
	"errors"
	"sort"
	"strings"
)

const (
	// ConfigRef is the ref holding a project's administrative configuration.
	ConfigRef = "refs/meta/config"

	// ConfigFile is the file on ConfigRef holding the configuration.
	ConfigFile = "project.config"

	// AllProjects is the default root of the inheritance forest.
	AllProjects Name = "All-Projects"

	// ZeroRevision marks a ref that did not exist before, or no longer exists
	// after, an update.
	ZeroRevision = "0000000000000000000000000000000000000000"
)

var (
	// ErrNotFound is returned when a project does not exist.
	ErrNotFound = errors.New("project not found")

	// ErrConfigInvalid is returned when project.config cannot be parsed.
	ErrConfigInvalid = errors.New("invalid project config")
)

// Name uniquely identifies a project.
type Name string

func (n Name) String() string {
	return string(n)
}

// IsZeroRevision reports whether rev denotes an absent ref.
func IsZeroRevision(rev string) bool {
	return rev == "" || strings.Trim(rev, "0") == ""
}

// PluginConfig is the key/value section of project.config owned by one plugin.
type PluginConfig map[string]string

// Names returns the configured keys in sorted order.
func (c PluginConfig) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String returns the value of name, or "" when it is not set.
func (c PluginConfig) String(name string) string {
	return c[name]
}

// Config is the parsed content of a project's project.config.
type Config struct {
	// Parent is the project this one inherits from; empty means the root.
	Parent Name

	// Plugins holds one section per plugin namespace.
	Plugins map[string]PluginConfig
}

// PluginConfig returns the section for plugin. A missing section yields an
// empty, non-nil PluginConfig.
func (c *Config) PluginConfig(plugin string) PluginConfig {
	if c == nil || c.Plugins[plugin] == nil {
		return PluginConfig{}
	}
	return c.Plugins[plugin]
}

// RefUpdatedEvent reports that a ref of a project moved from OldRev to NewRev.
type RefUpdatedEvent struct {
	Project Name
	RefName string
	OldRev  string
	NewRev  string
}

// Cache gives access to the current state of every known project.
type Cache interface {
	// All returns the names of all known projects.
	All() []Name

	// Get returns the current state of name, or false when the project is
	// unknown.
	Get(name Name) (*State, bool)
}

// ConfigReader reads a project's configuration as of a given revision of
// ConfigRef.
type ConfigReader interface {
	// ReadConfig fails with an error wrapping ErrConfigInvalid when the file
	// cannot be parsed, or an I/O error when the revision cannot be read.
	ReadConfig(name Name, rev string) (*Config, error)
}
