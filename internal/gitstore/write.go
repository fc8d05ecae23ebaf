package gitstore

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/sirupsen/logrus"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

// ErrProjectExists is returned when creating a project that already exists.
var ErrProjectExists = errors.New("project already exists")

var committer = object.Signature{Name: "dlcmd", Email: "dlcmd@localhost"}

// EditFunc changes a project.config in place.
type EditFunc func(cfg *format.Config) error

// CreateProject initializes a bare repository for name and commits an
// initial project.config inheriting from parent. An empty parent leaves
// [access] unset.
func (s *Store) CreateProject(name, parent project.Name) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	s.writeMu.Lock()
	dir := repoDir(name)
	if _, err := s.fs.Stat(dir); err == nil {
		s.writeMu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrProjectExists, name)
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		s.writeMu.Unlock()
		return "", fmt.Errorf("creating repository of %s: %w", name, err)
	}
	repoFS, err := s.fs.Chroot(dir)
	if err != nil {
		s.writeMu.Unlock()
		return "", fmt.Errorf("creating repository of %s: %w", name, err)
	}
	repo, err := git.Init(filesystem.NewStorage(repoFS, cache.NewObjectLRUDefault()), nil)
	if err != nil {
		s.writeMu.Unlock()
		return "", fmt.Errorf("initializing repository of %s: %w", name, err)
	}
	s.remember(name, repo)
	s.writeMu.Unlock()

	s.log.WithField("project", name).Info("Created project")

	_, rev, err := s.UpdateConfig(name, "Create project", func(cfg *format.Config) error {
		if parent != "" {
			cfg.Section(accessSection).SetOption(inheritFromKey, string(parent))
		}
		return nil
	})
	return rev, err
}

// SetParent makes name inherit from parent.
func (s *Store) SetParent(name, parent project.Name) (oldRev, newRev string, err error) {
	return s.UpdateConfig(name, "Set parent to "+string(parent), func(cfg *format.Config) error {
		cfg.Section(accessSection).SetOption(inheritFromKey, string(parent))
		return nil
	})
}

// SetPluginOption sets key to value in the plugin section of name.
func (s *Store) SetPluginOption(name project.Name, plugin, key, value string) (oldRev, newRev string, err error) {
	msg := fmt.Sprintf("Set %s.%s", plugin, key)
	return s.UpdateConfig(name, msg, func(cfg *format.Config) error {
		cfg.Section(pluginSection).Subsection(plugin).SetOption(key, value)
		return nil
	})
}

// UnsetPluginOption removes key from the plugin section of name.
func (s *Store) UnsetPluginOption(name project.Name, plugin, key string) (oldRev, newRev string, err error) {
	msg := fmt.Sprintf("Unset %s.%s", plugin, key)
	return s.UpdateConfig(name, msg, func(cfg *format.Config) error {
		if !cfg.Section(pluginSection).HasSubsection(plugin) {
			return nil
		}
		cfg.Section(pluginSection).Subsection(plugin).RemoveOption(key)
		return nil
	})
}

// UpdateConfig commits the result of edit on top of the current config ref of
// name and returns the old and new revisions. Other files on the ref are kept.
// The ref is moved only if nobody else moved it in the meantime.
func (s *Store) UpdateConfig(name project.Name, message string, edit EditFunc) (oldRev, newRev string, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo, err := s.repository(name)
	if err != nil {
		return "", "", err
	}

	oldRef, err := repo.Reference(s.configRef, true)
	if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", "", fmt.Errorf("resolving %s of %s: %w", s.configRef, name, err)
	}

	var (
		parents []plumbing.Hash
		entries []object.TreeEntry
		data    []byte
	)
	oldRev = project.ZeroRevision
	if oldRef != nil {
		oldRev = oldRef.Hash().String()
		parents = []plumbing.Hash{oldRef.Hash()}

		commit, err := repo.CommitObject(oldRef.Hash())
		if err != nil {
			return "", "", fmt.Errorf("loading commit %s of %s: %w", oldRef.Hash(), name, err)
		}
		tree, err := commit.Tree()
		if err != nil {
			return "", "", fmt.Errorf("loading tree of %s: %w", name, err)
		}
		entries = tree.Entries
		if data, err = readFile(repo, name, oldRef.Hash()); err != nil {
			return "", "", err
		}
	}

	raw, err := decodeConfig(data)
	if err != nil {
		return "", "", fmt.Errorf("reading %s of %s: %w", project.ConfigFile, name, err)
	}
	if err := edit(raw); err != nil {
		return "", "", err
	}
	encoded, err := encodeConfig(raw)
	if err != nil {
		return "", "", err
	}

	hash, err := s.writeCommit(repo, entries, encoded, parents, message)
	if err != nil {
		return "", "", fmt.Errorf("committing %s of %s: %w", project.ConfigFile, name, err)
	}

	newRef := plumbing.NewHashReference(s.configRef, hash)
	if err := repo.Storer.CheckAndSetReference(newRef, oldRef); err != nil {
		return "", "", fmt.Errorf("updating %s of %s: %w", s.configRef, name, err)
	}

	s.log.WithFields(logrus.Fields{
		"project": name,
		"old":     oldRev,
		"new":     hash.String(),
	}).Debug("Updated project config")
	return oldRev, hash.String(), nil
}

// DeleteConfigRef removes the config ref of name and returns its last revision.
func (s *Store) DeleteConfigRef(name project.Name) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	repo, err := s.repository(name)
	if err != nil {
		return "", err
	}
	ref, err := repo.Reference(s.configRef, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return project.ZeroRevision, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving %s of %s: %w", s.configRef, name, err)
	}
	if err := repo.Storer.RemoveReference(s.configRef); err != nil {
		return "", fmt.Errorf("deleting %s of %s: %w", s.configRef, name, err)
	}
	return ref.Hash().String(), nil
}

func (s *Store) writeCommit(repo *git.Repository, entries []object.TreeEntry, content []byte, parents []plumbing.Hash, message string) (plumbing.Hash, error) {
	blob := repo.Storer.NewEncodedObject()
	blob.SetType(plumbing.BlobObject)
	w, err := blob.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}
	blobHash, err := repo.Storer.SetEncodedObject(blob)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tree := &object.Tree{Entries: withFile(entries, project.ConfigFile, blobHash)}
	treeObj := repo.Storer.NewEncodedObject()
	if err := tree.Encode(treeObj); err != nil {
		return plumbing.ZeroHash, err
	}
	treeHash, err := repo.Storer.SetEncodedObject(treeObj)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	sig := committer
	sig.When = time.Now()
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message + "\n",
		TreeHash:     treeHash,
		ParentHashes: parents,
	}
	commitObj := repo.Storer.NewEncodedObject()
	if err := commit.Encode(commitObj); err != nil {
		return plumbing.ZeroHash, err
	}
	return repo.Storer.SetEncodedObject(commitObj)
}

// withFile returns entries with name pointing at hash, in git tree order.
func withFile(entries []object.TreeEntry, name string, hash plumbing.Hash) []object.TreeEntry {
	out := make([]object.TreeEntry, 0, len(entries)+1)
	for _, e := range entries {
		if e.Name != name {
			out = append(out, e)
		}
	}
	out = append(out, object.TreeEntry{Name: name, Mode: filemode.Regular, Hash: hash})
	sort.Slice(out, func(i, j int) bool { return treeKey(out[i]) < treeKey(out[j]) })
	return out
}

func treeKey(e object.TreeEntry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
