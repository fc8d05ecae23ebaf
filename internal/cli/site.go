package cli

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/dlcmd/internal/config"
	"github.com/ariel-frischer/dlcmd/internal/download"
	clierrors "github.com/ariel-frischer/dlcmd/internal/errors"
	"github.com/ariel-frischer/dlcmd/internal/gitstore"
	"github.com/ariel-frischer/dlcmd/internal/metrics"
	"github.com/ariel-frischer/dlcmd/internal/progress"
	"github.com/ariel-frischer/dlcmd/internal/project"
	"github.com/ariel-frischer/dlcmd/internal/updater"
)

// site wires the command index of one site: repositories, registry,
// catalog, updater and metrics.
type site struct {
	cfg      *config.Configuration
	log      *logrus.Logger
	store    *gitstore.Store
	catalog  *download.MapCatalog
	registry *download.Registry
	gatherer *prometheus.Registry
	updater  *updater.Updater
}

// loadConfig loads the site configuration named by the global flags.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	g := globalsFrom(cmd)
	return config.Load(config.LoadOptions{ConfigPath: g.configPath, SitePath: g.sitePath})
}

func openSite(cmd *cobra.Command) (*site, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg, globalsFrom(cmd).debug, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(cfg.GitDir()); err != nil || !info.IsDir() {
		return nil, clierrors.SiteNotFound(cfg.GitDir())
	}

	store, err := gitstore.Open(cfg.GitDir(), cfg.CacheSize,
		gitstore.WithRoot(project.Name(cfg.AllProjects)),
		gitstore.WithConfigRef(cfg.ConfigRef),
		gitstore.WithLogger(log))
	if err != nil {
		return nil, err
	}

	gatherer := prometheus.NewRegistry()
	syncMetrics, err := metrics.NewSync(gatherer)
	if err != nil {
		return nil, err
	}

	catalog := download.NewMapCatalog()
	registry := download.NewRegistry(cfg.PluginName, store, catalog)

	return &site{
		cfg:      cfg,
		log:      log,
		store:    store,
		catalog:  catalog,
		registry: registry,
		gatherer: gatherer,
		updater: updater.New(cfg.PluginName, registry, store, store,
			updater.WithLogger(log),
			updater.WithMetrics(syncMetrics),
			updater.WithConfigRef(cfg.ConfigRef),
			updater.WithQueueSize(cfg.QueueSize)),
	}, nil
}

// load seeds the registry from every project and waits for it to finish.
func (s *site) load(ctx context.Context, cmd *cobra.Command) error {
	caps := progress.TerminalCapabilities{}
	if f, ok := cmd.ErrOrStderr().(*os.File); ok {
		caps = progress.DetectTerminalCapabilities(f)
	}

	sp := progress.NewSpinner(cmd.ErrOrStderr(), caps, "Loading download commands")
	sp.Start()
	err := s.updater.Start(ctx)
	if err == nil {
		s.updater.Wait()
	}
	sp.Stop(err)
	return err
}

// close stops the updater, retracting every registration.
func (s *site) close() {
	s.updater.Stop()
}

// commands returns the catalog entries of the configured plugin.
func (s *site) commands() []download.Entry {
	var out []download.Entry
	for _, e := range s.catalog.Entries() {
		if e.Plugin == s.cfg.PluginName {
			out = append(out, e)
		}
	}
	return out
}
