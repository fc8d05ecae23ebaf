// Package gitstore reads project configuration from bare git repositories
// laid out the way a Gerrit site stores them: <site>/git/<project>.git, with
// project.config committed on refs/meta/config.
package gitstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

const (
	repoSuffix       = ".git"
	defaultCacheSize = 1024
)

// Store is a project.Cache and project.ConfigReader over a directory of bare
// repositories. Parsed configurations are cached by project and revision.
// Store is safe for concurrent use. Reads take no store-wide lock.
type Store struct {
	fs        billy.Filesystem
	root      project.Name
	configRef plumbing.ReferenceName
	log       logrus.FieldLogger
	configs   *lru.Cache[revisionKey, *project.Config]

	// repos maps project.Name to its opened *git.Repository.
	repos sync.Map

	// writeMu serializes config commits and ref deletions.
	writeMu sync.Mutex
}

var (
	_ project.Cache        = (*Store)(nil)
	_ project.ConfigReader = (*Store)(nil)
)

type revisionKey struct {
	project project.Name
	rev     plumbing.Hash
}

// Option configures a Store.
type Option func(*Store)

// WithRoot sets the project every project without a parent inherits from.
func WithRoot(root project.Name) Option {
	return func(s *Store) {
		if root != "" {
			s.root = root
		}
	}
}

// WithConfigRef sets the ref holding project.config.
func WithConfigRef(ref string) Option {
	return func(s *Store) {
		if ref != "" {
			s.configRef = plumbing.ReferenceName(ref)
		}
	}
}

// WithLogger sets the logger for repository access.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// Open returns a store over the repositories below dir. cacheSize bounds the
// number of parsed configurations kept in memory; zero selects a default.
func Open(dir string, cacheSize int, opts ...Option) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	configs, err := lru.New[revisionKey, *project.Config](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating config cache: %w", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	s := &Store{
		fs:        osfs.New(dir),
		root:      project.AllProjects,
		configRef: plumbing.ReferenceName(project.ConfigRef),
		log:       log,
		configs:   configs,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the directory the store reads from.
func (s *Store) Root() string {
	return s.fs.Root()
}

// RepoPath returns the path of the bare repository of name.
func (s *Store) RepoPath(name project.Name) string {
	return filepath.Join(s.fs.Root(), filepath.FromSlash(repoDir(name)))
}

// All implements project.Cache. It lists every repository below the store
// root, sorted by name.
func (s *Store) All() []project.Name {
	names, err := s.scan()
	if err != nil {
		s.log.WithError(err).Warn("Failed to list projects")
	}
	return names
}

func (s *Store) scan() ([]project.Name, error) {
	var names []project.Name
	err := util.Walk(s.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() || !strings.HasSuffix(p, repoSuffix) {
			return nil
		}
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.ToSlash(p), "/"), repoSuffix)
		if name != "" {
			names = append(names, project.Name(name))
		}
		return filepath.SkipDir
	})
	if err != nil {
		return names, fmt.Errorf("scanning %s: %w", s.fs.Root(), err)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

// Get implements project.Cache using each project's current configuration.
func (s *Store) Get(name project.Name) (*project.State, bool) {
	return project.NewChain(name, s.root, func(n project.Name) (*project.Config, bool) {
		rev, err := s.Revision(n)
		if err != nil {
			if !errors.Is(err, project.ErrNotFound) {
				s.log.WithError(err).WithField("project", n).Warn("Failed to read config revision")
			}
			return nil, false
		}
		cfg, err := s.ReadConfig(n, rev)
		if err != nil {
			s.log.WithError(err).WithField("project", n).Warn("Failed to read project config")
			return &project.Config{}, true
		}
		return cfg, true
	})
}

// Revision returns the commit the config ref of name points at, or
// project.ZeroRevision when the project exists without that ref.
func (s *Store) Revision(name project.Name) (string, error) {
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
	return ref.Hash().String(), nil
}

// ReadConfig implements project.ConfigReader. A zero revision and a commit
// without project.config both read as an empty configuration.
func (s *Store) ReadConfig(name project.Name, rev string) (*project.Config, error) {
	if project.IsZeroRevision(rev) {
		return &project.Config{}, nil
	}
	if !plumbing.IsHash(rev) {
		return nil, fmt.Errorf("reading %s of %s: invalid revision %q", project.ConfigFile, name, rev)
	}

	key := revisionKey{project: name, rev: plumbing.NewHash(rev)}
	if cfg, ok := s.configs.Get(key); ok {
		return cfg, nil
	}

	repo, err := s.repository(name)
	if err != nil {
		return nil, err
	}
	data, err := readFile(repo, name, key.rev)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s at %s: %w", project.ConfigFile, name, rev, err)
	}
	s.configs.Add(key, cfg)
	return cfg, nil
}

func readFile(repo *git.Repository, name project.Name, rev plumbing.Hash) ([]byte, error) {
	commit, err := repo.CommitObject(rev)
	if err != nil {
		return nil, fmt.Errorf("loading commit %s of %s: %w", rev, name, err)
	}
	file, err := commit.File(project.ConfigFile)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s of %s at %s: %w", project.ConfigFile, name, rev, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s of %s at %s: %w", project.ConfigFile, name, rev, err)
	}
	return []byte(contents), nil
}

// repository returns the repository of name, opening it on first use. Two
// callers racing on the first open both open it and the first one stored wins.
func (s *Store) repository(name project.Name) (*git.Repository, error) {
	if repo, ok := s.repos.Load(name); ok {
		return repo.(*git.Repository), nil
	}

	repo, err := s.open(name)
	if err != nil {
		return nil, err
	}
	return s.remember(name, repo), nil
}

// remember stores repo as the repository of name unless one is already
// stored, and returns the stored one.
func (s *Store) remember(name project.Name, repo *git.Repository) *git.Repository {
	stored, _ := s.repos.LoadOrStore(name, repo)
	return stored.(*git.Repository)
}

func (s *Store) open(name project.Name) (*git.Repository, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	dir := repoDir(name)
	if _, err := s.fs.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: %s", project.ErrNotFound, name)
	}
	repoFS, err := s.fs.Chroot(dir)
	if err != nil {
		return nil, fmt.Errorf("opening repository of %s: %w", name, err)
	}

	storage := filesystem.NewStorage(repoFS, cache.NewObjectLRUDefault())
	repo, err := git.Open(storage, nil)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", project.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository of %s: %w", name, err)
	}

	s.log.WithField("project", name).Debug("Opened repository")
	return repo, nil
}

func repoDir(name project.Name) string {
	return path.Clean(string(name)) + repoSuffix
}

func validName(name project.Name) error {
	n := string(name)
	if n == "" || strings.HasPrefix(n, "/") || path.Clean(n) != n || strings.HasPrefix(n, "..") {
		return fmt.Errorf("%w: invalid name %q", project.ErrNotFound, n)
	}
	return nil
}
