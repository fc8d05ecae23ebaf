// Package download resolves the download commands shown to users for a
// project. Administrators override a command per project in project.config;
// a project without an override inherits the nearest ancestor's.
//
// Registry owns one ProjectCommand per command name and keeps a Catalog in
// sync with the names that are configured on at least one project. Registry
// is not safe for concurrent mutation: all writes go through a single worker.
// ProjectCommand.Command may be called from any goroutine.
package download

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

// Placeholders substituted in command templates.
const (
	RefPlaceholder     = "${ref}"
	URLPlaceholder     = "${url}"
	ProjectPlaceholder = "${project}"
)

// Scheme is a transport a project can be fetched over.
type Scheme interface {
	// URL returns the fetch URL of project over this scheme.
	URL(project string) string
}

// Command produces the command a user runs to fetch ref of project.
type Command interface {
	// Command returns the command, or false when none should be displayed.
	Command(scheme Scheme, project, ref string) (string, bool)
}

// ProjectCommand is the Command for one command name. It maps projects to
// raw templates and falls back to ancestors for unconfigured projects.
type ProjectCommand struct {
	projects project.Cache
	table    atomic.Pointer[map[project.Name]string]
}

var _ Command = (*ProjectCommand)(nil)

func newProjectCommand(projects project.Cache, p project.Name, template string) *ProjectCommand {
	c := &ProjectCommand{projects: projects}
	c.table.Store(&map[project.Name]string{p: template})
	return c
}

// add publishes a copy of the table with p bound to template.
func (c *ProjectCommand) add(p project.Name, template string) {
	old := *c.table.Load()
	next := make(map[project.Name]string, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[p] = template
	c.table.Store(&next)
}

// remove publishes a copy of the table without p.
func (c *ProjectCommand) remove(p project.Name) {
	old := *c.table.Load()
	if _, ok := old[p]; !ok {
		return
	}
	next := make(map[project.Name]string, len(old))
	for k, v := range old {
		if k != p {
			next[k] = v
		}
	}
	c.table.Store(&next)
}

func (c *ProjectCommand) hasCommands() bool {
	return len(*c.table.Load()) > 0
}

// Template returns the raw template configured directly on p.
func (c *ProjectCommand) Template(p project.Name) (string, bool) {
	t, ok := (*c.table.Load())[p]
	return t, ok
}

// Projects returns the projects with a binding, sorted by name.
func (c *ProjectCommand) Projects() []project.Name {
	table := *c.table.Load()
	names := make([]project.Name, 0, len(table))
	for p := range table {
		names = append(names, p)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Command resolves the template for projectName, walking up the inheritance
// chain when the project has no binding of its own. The first binding found
// wins, even when it is empty.
func (c *ProjectCommand) Command(scheme Scheme, projectName, ref string) (string, bool) {
	table := *c.table.Load()
	p := project.Name(projectName)

	template, ok := table[p]
	if !ok && c.projects != nil {
		if state, found := c.projects.Get(p); found {
			for _, parent := range state.Parents() {
				if template, ok = table[parent.Name()]; ok {
					break
				}
			}
		}
	}
	if !ok || template == "" {
		return "", false
	}

	cmd := Expand(template, scheme, projectName, ref)
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

// Expand substitutes ${ref}, ${url} and ${project} in template, in that
// order. Each placeholder kind is replaced in a single pass; a substituted
// value is never revisited by a kind that was already processed.
func Expand(template string, scheme Scheme, projectName, ref string) string {
	out := strings.ReplaceAll(template, RefPlaceholder, ref)
	if strings.Contains(out, URLPlaceholder) {
		url := ""
		if scheme != nil {
			url = scheme.URL(projectName)
		}
		out = strings.ReplaceAll(out, URLPlaceholder, url)
	}
	return strings.ReplaceAll(out, ProjectPlaceholder, projectName)
}

// DisplayName is the name a command is shown under: the configuration key
// with every hyphen replaced by a space.
func DisplayName(name string) string {
	return strings.ReplaceAll(name, "-", " ")
}
