package gitstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

const plugin = "download-commands"

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 16)
	require.NoError(t, err)
	return s
}

func TestStore_CreateAndList(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, name := range []project.Name{project.AllProjects, "tools/gerrit", "app"} {
		_, err := s.CreateProject(name, "")
		require.NoError(t, err)
	}

	assert.Equal(t, []project.Name{project.AllProjects, "app", "tools/gerrit"}, s.All())
	assert.DirExists(t, s.RepoPath("tools/gerrit"))

	_, err := s.CreateProject("app", "")
	assert.ErrorIs(t, err, ErrProjectExists)
}

func TestStore_AllIgnoresPlainDirectories(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject("a", "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "not-a-repo"), 0o755))

	assert.Equal(t, []project.Name{"a"}, s.All())
}

func TestStore_ReadConfigAtRevisions(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	created, err := s.CreateProject("p", "parent")
	require.NoError(t, err)

	old1, rev1, err := s.SetPluginOption("p", plugin, "checkout", "git checkout ${ref}")
	require.NoError(t, err)
	assert.Equal(t, created, old1)

	old2, rev2, err := s.SetPluginOption("p", plugin, "pull", "git pull ${url} ${ref}")
	require.NoError(t, err)
	assert.Equal(t, rev1, old2)

	cfg, err := s.ReadConfig("p", rev1)
	require.NoError(t, err)
	assert.Equal(t, project.Name("parent"), cfg.Parent)
	assert.Equal(t, project.PluginConfig{"checkout": "git checkout ${ref}"}, cfg.PluginConfig(plugin))

	cfg, err = s.ReadConfig("p", rev2)
	require.NoError(t, err)
	assert.Equal(t, []string{"checkout", "pull"}, cfg.PluginConfig(plugin).Names())

	current, err := s.Revision("p")
	require.NoError(t, err)
	assert.Equal(t, rev2, current)

	_, rev3, err := s.UnsetPluginOption("p", plugin, "checkout")
	require.NoError(t, err)
	cfg, err = s.ReadConfig("p", rev3)
	require.NoError(t, err)
	assert.Equal(t, project.PluginConfig{"pull": "git pull ${url} ${ref}"}, cfg.PluginConfig(plugin))
}

func TestStore_ReadConfigZeroRevision(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, rev := range []string{"", project.ZeroRevision} {
		cfg, err := s.ReadConfig("anything", rev)
		require.NoError(t, err)
		assert.Empty(t, cfg.PluginConfig(plugin))
	}
}

func TestStore_ReadConfigErrors(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject("p", "")
	require.NoError(t, err)

	_, err = s.ReadConfig("p", "not-a-hash")
	assert.Error(t, err)

	_, err = s.ReadConfig("p", "1111111111111111111111111111111111111111")
	assert.Error(t, err)

	_, err = s.ReadConfig("missing", "1111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, project.ErrNotFound)

	_, _, err = s.SetPluginOption("../escape", plugin, "k", "v")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestStore_GetResolvesChain(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject(project.AllProjects, "")
	require.NoError(t, err)
	_, err = s.CreateProject("parent", "")
	require.NoError(t, err)
	_, err = s.CreateProject("child", "parent")
	require.NoError(t, err)
	_, _, err = s.SetPluginOption("parent", plugin, "checkout", "from-parent")
	require.NoError(t, err)

	state, ok := s.Get("child")
	require.True(t, ok)
	require.Len(t, state.Parents(), 2)
	assert.Equal(t, project.Name("parent"), state.Parents()[0].Name())
	assert.Equal(t, project.AllProjects, state.Parents()[1].Name())
	assert.Equal(t, "from-parent", state.Parents()[0].PluginConfig(plugin).String("checkout"))

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestStore_GetWithoutConfigRef(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject("p", "")
	require.NoError(t, err)

	last, err := s.DeleteConfigRef("p")
	require.NoError(t, err)
	assert.False(t, project.IsZeroRevision(last))

	rev, err := s.Revision("p")
	require.NoError(t, err)
	assert.True(t, project.IsZeroRevision(rev))

	state, ok := s.Get("p")
	require.True(t, ok)
	assert.Empty(t, state.PluginConfig(plugin))

	// A commit on a fresh ref has no parent revision.
	old, _, err := s.SetPluginOption("p", plugin, "checkout", "x")
	require.NoError(t, err)
	assert.Equal(t, project.ZeroRevision, old)
}

func TestStore_UpdateKeepsOtherSections(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject("p", "")
	require.NoError(t, err)

	_, rev, err := s.UpdateConfig("p", "Require Change-Id", func(cfg *format.Config) error {
		cfg.Section("receive").SetOption("requireChangeId", "true")
		return nil
	})
	require.NoError(t, err)
	_, rev, err = s.SetPluginOption("p", plugin, "checkout", "x")
	require.NoError(t, err)

	cfg, err := s.ReadConfig("p", rev)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.PluginConfig(plugin).String("checkout"))

	repo, err := s.repository("p")
	require.NoError(t, err)
	data, err := readFile(repo, "p", mustHash(t, rev))
	require.NoError(t, err)
	assert.Contains(t, string(data), "requireChangeId")
}

func TestStore_ReopenSeesExistingRepositories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(dir, 0)
	require.NoError(t, err)
	_, err = s.CreateProject("p", "")
	require.NoError(t, err)
	_, rev, err := s.SetPluginOption("p", plugin, "checkout", "x")
	require.NoError(t, err)

	reopened, err := Open(dir, 0, WithRoot("Root"), WithConfigRef(project.ConfigRef))
	require.NoError(t, err)
	got, err := reopened.Revision("p")
	require.NoError(t, err)
	assert.Equal(t, rev, got)
}

func TestStore_ReadsDoNotWaitForWriters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer, err := Open(dir, 0)
	require.NoError(t, err)
	_, err = writer.CreateProject("parent", "")
	require.NoError(t, err)
	_, _, err = writer.SetPluginOption("parent", plugin, "checkout", "git fetch ${url}")
	require.NoError(t, err)
	_, err = writer.CreateProject("child", "parent")
	require.NoError(t, err)

	// A fresh store has nothing cached, so every read below goes to disk.
	s, err := Open(dir, 0)
	require.NoError(t, err)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	done := make(chan *project.State, 1)
	go func() {
		state, _ := s.Get("child")
		done <- state
	}()

	select {
	case state := <-done:
		require.NotNil(t, state)
		require.Len(t, state.Parents(), 1)
		assert.Equal(t, "git fetch ${url}", state.Parents()[0].PluginConfig(plugin).String("checkout"))
	case <-time.After(5 * time.Second):
		t.Fatal("reading child blocked behind a config write")
	}
}

func TestStore_ConcurrentReadsDuringUpdates(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.CreateProject("parent", "")
	require.NoError(t, err)
	_, err = s.CreateProject("child", "parent")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				state, ok := s.Get("child")
				if assert.True(t, ok) {
					assert.Len(t, state.Parents(), 1)
				}
			}
		}()
	}

	for j := 0; j < 20; j++ {
		_, rev, err := s.SetPluginOption("parent", plugin, "checkout", fmt.Sprintf("v%d", j))
		require.NoError(t, err)
		cfg, err := s.ReadConfig("parent", rev)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("v%d", j), cfg.PluginConfig(plugin).String("checkout"))
	}
	wg.Wait()
}

func TestWithFileKeepsTreeOrder(t *testing.T) {
	t.Parallel()

	entries := withFile(nil, "project.config", mustHash(t, "1111111111111111111111111111111111111111"))
	entries = append(entries, entries[0])
	entries[1].Name = "groups"
	entries = withFile(entries, "project.config", mustHash(t, "2222222222222222222222222222222222222222"))

	require.Len(t, entries, 2)
	assert.Equal(t, "groups", entries[0].Name)
	assert.Equal(t, "project.config", entries[1].Name)
	assert.Equal(t, "2222222222222222222222222222222222222222", entries[1].Hash.String())
}

func mustHash(t *testing.T, rev string) plumbing.Hash {
	t.Helper()
	require.True(t, plumbing.IsHash(rev), rev)
	return plumbing.NewHash(rev)
}
