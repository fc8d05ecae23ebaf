package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ariel-frischer/dlcmd/internal/lifecycle"
	"github.com/ariel-frischer/dlcmd/internal/metrics"
	"github.com/ariel-frischer/dlcmd/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the download command index in sync with project configs",
	Long: `Load the download commands of every project, then apply each update of the
config ref as it happens until interrupted.

Updates are detected with filesystem notifications on the site's repositories,
backed by a periodic rescan every poll_interval.`,
	Example: `  dlcmd serve --site /srv/review
  dlcmd serve --metrics-addr localhost:9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cmd)
	},
}

func init() {
	serveCmd.GroupID = GroupServer
	serveCmd.Flags().String("metrics-addr", "", "Serve /metrics on this address (overrides metrics_addr)")
	rootCmd.AddCommand(serveCmd)
}

// runServe runs until ctx is done. The watcher snapshots every ref before
// seeding starts, so an update that lands while seeding is replayed after it.
func runServe(ctx context.Context, cmd *cobra.Command) error {
	s, err := openSite(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		s.cfg.MetricsAddr = addr
	}

	w, err := watch.New(s.store, s.cfg.ConfigRef, s.cfg.PollInterval, s.log)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Prime()

	var listeners lifecycle.Manager
	listeners.Add(s.updater)
	if err := listeners.Start(ctx); err != nil {
		return err
	}
	defer listeners.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, s.updater.OnRefUpdated)
	})
	if s.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, s.cfg.MetricsAddr, s.gatherer)
		})
	}

	s.log.WithFields(logrus.Fields{
		"site":    s.cfg.SitePath,
		"plugin":  s.cfg.PluginName,
		"metrics": s.cfg.MetricsAddr,
	}).Info("Watching project configs")

	err = g.Wait()
	s.log.Info("Shutting down")
	return err
}
