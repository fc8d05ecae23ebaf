package download

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

// ErrUnknownCommand is returned when removing a binding for a command name
// that was never installed.
var ErrUnknownCommand = errors.New("unknown download command")

// Registry tracks every configured command name and its catalog registration.
// A name is present exactly while at least one project configures it.
type Registry struct {
	plugin   string
	projects project.Cache
	catalog  Catalog

	commands map[string]*ProjectCommand
	handles  map[string]Handle
}

// NewRegistry returns an empty registry exposing commands in catalog under
// the plugin namespace.
func NewRegistry(plugin string, projects project.Cache, catalog Catalog) *Registry {
	return &Registry{
		plugin:   plugin,
		projects: projects,
		catalog:  catalog,
		commands: make(map[string]*ProjectCommand),
		handles:  make(map[string]Handle),
	}
}

// Install binds template to p for command name, registering the command in
// the catalog the first time the name is seen. Installing again for the same
// project overwrites the template.
func (r *Registry) Install(p project.Name, name, template string) {
	if cmd, ok := r.commands[name]; ok {
		cmd.add(p, template)
		return
	}

	cmd := newProjectCommand(r.projects, p, template)
	r.commands[name] = cmd
	r.handles[name] = r.catalog.Register(r.plugin, DisplayName(name), cmd)
}

// Remove drops the binding of p for command name. When no project configures
// the name anymore its catalog registration is retracted.
func (r *Registry) Remove(p project.Name, name string) error {
	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("removing %q for project %s: %w", name, p, ErrUnknownCommand)
	}

	cmd.remove(p)
	if cmd.hasCommands() {
		return nil
	}

	if h, ok := r.handles[name]; ok {
		h.Remove()
		delete(r.handles, name)
	}
	delete(r.commands, name)
	return nil
}

// Clear retracts every registration and drops all commands.
func (r *Registry) Clear() {
	for name, h := range r.handles {
		h.Remove()
		delete(r.handles, name)
	}
	r.commands = make(map[string]*ProjectCommand)
}

// Lookup returns the command installed under name.
func (r *Registry) Lookup(name string) (*ProjectCommand, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Names returns the installed command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of installed command names.
func (r *Registry) Len() int {
	return len(r.commands)
}
