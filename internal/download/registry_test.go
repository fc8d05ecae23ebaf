// Package download tests registry bookkeeping and catalog synchronization.
// Related: internal/download/registry.go, internal/download/catalog.go
// Tags: download, registry, catalog

package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/dlcmd/internal/project"
	"github.com/ariel-frischer/dlcmd/internal/testutil"
)

// countingCatalog records registrations and how often each handle is removed.
type countingCatalog struct {
	registered []string
	handles    []*countingHandle
}

type countingHandle struct {
	name    string
	removed int
}

func (h *countingHandle) Remove() {
	h.removed++
}

func (c *countingCatalog) Register(plugin, name string, cmd Command) Handle {
	c.registered = append(c.registered, plugin+"/"+name)
	h := &countingHandle{name: name}
	c.handles = append(c.handles, h)
	return h
}

func TestRegistry_InstallRegistersOncePerName(t *testing.T) {
	t.Parallel()

	catalog := &countingCatalog{}
	r := NewRegistry(plugin, nil, catalog)

	r.Install("a", "cherry-pick", "git cherry-pick")
	r.Install("b", "cherry-pick", "git cherry-pick FETCH_HEAD")
	r.Install("a", "cherry-pick", "overwritten")

	assert.Equal(t, []string{plugin + "/cherry pick"}, catalog.registered)
	assert.Equal(t, []string{"cherry-pick"}, r.Names())
	assert.Equal(t, 1, r.Len())

	cmd, ok := r.Lookup("cherry-pick")
	require.True(t, ok)
	tmpl, _ := cmd.Template("a")
	assert.Equal(t, "overwritten", tmpl)
}

func TestRegistry_RemoveRetractsLastBindingOnce(t *testing.T) {
	t.Parallel()

	catalog := &countingCatalog{}
	r := NewRegistry(plugin, nil, catalog)

	r.Install("a", "checkout", "x")
	r.Install("b", "checkout", "y")

	require.NoError(t, r.Remove("a", "checkout"))
	assert.Equal(t, 0, catalog.handles[0].removed)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, r.Remove("b", "checkout"))
	assert.Equal(t, 1, catalog.handles[0].removed)
	assert.Equal(t, 0, r.Len())
	_, ok := r.Lookup("checkout")
	assert.False(t, ok)

	// A new binding after retraction creates a fresh registration.
	r.Install("c", "checkout", "z")
	require.Len(t, catalog.handles, 2)
	assert.Equal(t, 1, catalog.handles[0].removed)
	assert.Equal(t, 0, catalog.handles[1].removed)
}

func TestRegistry_RemoveUnknownName(t *testing.T) {
	t.Parallel()

	r := NewRegistry(plugin, nil, &countingCatalog{})
	err := r.Remove("a", "never-installed")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestRegistry_RemoveUnboundProjectKeepsEntry(t *testing.T) {
	t.Parallel()

	catalog := &countingCatalog{}
	r := NewRegistry(plugin, nil, catalog)
	r.Install("a", "checkout", "x")

	require.NoError(t, r.Remove("other", "checkout"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 0, catalog.handles[0].removed)
}

func TestRegistry_Clear(t *testing.T) {
	t.Parallel()

	catalog := &countingCatalog{}
	r := NewRegistry(plugin, nil, catalog)
	r.Install("a", "checkout", "x")
	r.Install("a", "pull", "y")
	r.Install("b", "pull", "z")

	r.Clear()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Names())
	for _, h := range catalog.handles {
		assert.Equal(t, 1, h.removed, h.name)
	}

	r.Install("a", "checkout", "again")
	assert.Len(t, catalog.handles, 3)
}

func TestRegistry_InstallThenResolve(t *testing.T) {
	t.Parallel()

	host := testutil.NewHost()
	host.SetConfig(project.AllProjects, "", plugin, nil)
	host.SetConfig("parent", "", plugin, nil)
	host.SetConfig("p", "parent", plugin, nil)

	catalog := NewMapCatalog()
	r := NewRegistry(plugin, host, catalog)
	scheme := fakeScheme{base: "https://host"}

	r.Install("p", "n", "cmd ${url}")
	r.Install("parent", "n", "parent-cmd")

	cmd, ok := catalog.Get(plugin, "n")
	require.True(t, ok)

	got, ok := cmd.Command(scheme, "p", "r")
	require.True(t, ok)
	assert.Equal(t, "cmd https://host/p", got)

	require.NoError(t, r.Remove("p", "n"))
	got, ok = cmd.Command(scheme, "p", "r")
	require.True(t, ok)
	assert.Equal(t, "parent-cmd", got)

	require.NoError(t, r.Remove("parent", "n"))
	_, ok = cmd.Command(scheme, "p", "r")
	assert.False(t, ok)
	_, ok = catalog.Get(plugin, "n")
	assert.False(t, ok)
}

func TestMapCatalog(t *testing.T) {
	t.Parallel()

	c := NewMapCatalog()
	first := newProjectCommand(nil, "a", "one")
	second := newProjectCommand(nil, "a", "two")

	h1 := c.Register("plug", "checkout", first)
	c.Register("plug", "pull", first)
	assert.Equal(t, 2, c.Len())

	// Replacing a key keeps the old handle from removing the new command.
	h2 := c.Register("plug", "checkout", second)
	h1.Remove()
	got, ok := c.Get("plug", "checkout")
	require.True(t, ok)
	assert.Same(t, second, got)

	entries := c.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "checkout", entries[0].Name)
	assert.Equal(t, "pull", entries[1].Name)

	h2.Remove()
	h2.Remove()
	_, ok = c.Get("plug", "checkout")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}
