// Package updater keeps the download command registry in sync with the
// download-commands section of every project's project.config.
//
// On start the registry is seeded from the current configuration of every
// project. Afterwards each update of the config ref is applied incrementally:
// every command configured at the old revision is removed for the project and
// every command configured at the new revision is installed. All registry
// mutations run on one serial WorkQueue, so the registry needs no locking.
package updater

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ariel-frischer/dlcmd/internal/download"
	"github.com/ariel-frischer/dlcmd/internal/lifecycle"
	"github.com/ariel-frischer/dlcmd/internal/metrics"
	"github.com/ariel-frischer/dlcmd/internal/project"
)

// QueueName names the serial worker applying registry updates.
const QueueName = "download-command-updater"

// defaultQueueSize bounds the number of pending updates before OnRefUpdated
// blocks the notifier.
const defaultQueueSize = 256

// Updater is the sync coordinator between project configuration and the
// download command registry.
type Updater struct {
	plugin    string
	configRef string
	projects  project.Cache
	reader    project.ConfigReader
	registry  *download.Registry
	metrics   *metrics.Sync
	log       logrus.FieldLogger
	queueSize int

	queue *WorkQueue
}

var _ lifecycle.Listener = (*Updater)(nil)

// Option configures an Updater.
type Option func(*Updater)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(u *Updater) {
		u.log = log
	}
}

// WithMetrics records sync activity in m.
func WithMetrics(m *metrics.Sync) Option {
	return func(u *Updater) {
		u.metrics = m
	}
}

// WithConfigRef overrides the ref whose updates are applied.
func WithConfigRef(ref string) Option {
	return func(u *Updater) {
		u.configRef = ref
	}
}

// WithQueueSize sets how many updates may be pending.
func WithQueueSize(n int) Option {
	return func(u *Updater) {
		u.queueSize = n
	}
}

// New creates an updater applying the plugin section of each project's
// configuration to registry.
func New(plugin string, registry *download.Registry, projects project.Cache, reader project.ConfigReader, opts ...Option) *Updater {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	u := &Updater{
		plugin:    plugin,
		configRef: project.ConfigRef,
		projects:  projects,
		reader:    reader,
		registry:  registry,
		log:       discard,
		queueSize: defaultQueueSize,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.queue = NewWorkQueue(QueueName, u.queueSize, u.log)
	return u
}

// Start schedules seeding of the registry from every known project and
// returns without waiting for it.
func (u *Updater) Start(ctx context.Context) error {
	if !u.queue.Submit(func() { u.seed(ctx) }) {
		return fmt.Errorf("%s: queue stopped", QueueName)
	}
	return nil
}

// Stop drains pending updates, stops the worker and clears the registry.
func (u *Updater) Stop() {
	u.queue.Stop()
	u.registry.Clear()
	u.metrics.SetCommands(0)
}

// Wait blocks until every update scheduled so far has been applied.
func (u *Updater) Wait() {
	u.queue.Wait()
}

// OnRefUpdated schedules an incremental update when event concerns the
// config ref. Events for other refs are ignored.
func (u *Updater) OnRefUpdated(event project.RefUpdatedEvent) {
	if event.RefName != u.configRef {
		u.metrics.Event(metrics.ResultIgnored)
		return
	}

	if !u.queue.Submit(func() { u.apply(event) }) {
		u.log.WithFields(logrus.Fields{
			"project": event.Project,
			"ref":     event.RefName,
		}).Warn("Dropping config update, updater is stopped")
	}
}

func (u *Updater) seed(ctx context.Context) {
	log := u.log.WithField("task", "seed")
	log.Debug("Seeding download commands")

	for _, name := range u.projects.All() {
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).Warn("Seeding interrupted")
			break
		}

		state, ok := u.projects.Get(name)
		if !ok {
			log.WithField("project", name).Debug("Skipping project without state")
			continue
		}

		cfg := state.PluginConfig(u.plugin)
		for _, key := range cfg.Names() {
			u.registry.Install(state.Name(), key, cfg.String(key))
		}
		u.metrics.ProjectSeeded()
	}

	u.metrics.SetCommands(u.registry.Len())
	log.WithField("commands", u.registry.Len()).Info("Seeded download commands")
}

func (u *Updater) apply(event project.RefUpdatedEvent) {
	log := u.log.WithFields(logrus.Fields{
		"event":   uuid.NewString(),
		"project": event.Project,
		"ref":     event.RefName,
	})

	if err := u.update(event, log); err != nil {
		u.metrics.Event(metrics.ResultFailed)
		log.WithError(err).Errorf("Failed to update download commands for project %s on update of %s",
			event.Project, event.RefName)
	} else {
		u.metrics.Event(metrics.ResultApplied)
		log.WithFields(logrus.Fields{
			"old": event.OldRev,
			"new": event.NewRev,
		}).Debug("Applied config update")
	}
	u.metrics.SetCommands(u.registry.Len())
}

// update removes what the old revision configured, then installs what the
// new one configures. A failure leaves the steps already applied in place.
// A command the registry does not know is skipped: the old revision may
// never have been installed, e.g. after a failed event or when seeding
// already saw a newer revision.
func (u *Updater) update(event project.RefUpdatedEvent, log logrus.FieldLogger) error {
	oldCfg, err := u.read(event.Project, event.OldRev)
	if err != nil {
		return fmt.Errorf("reading old config: %w", err)
	}
	for _, key := range oldCfg.Names() {
		err := u.registry.Remove(event.Project, key)
		if errors.Is(err, download.ErrUnknownCommand) {
			log.WithField("command", key).Warn("Skipping removal of unregistered download command")
			continue
		}
		if err != nil {
			return err
		}
	}

	newCfg, err := u.read(event.Project, event.NewRev)
	if err != nil {
		return fmt.Errorf("reading new config: %w", err)
	}
	for _, key := range newCfg.Names() {
		u.registry.Install(event.Project, key, newCfg.String(key))
	}
	return nil
}

// read returns the plugin section at rev. A zero revision means the ref did
// not exist, which reads as an empty section.
func (u *Updater) read(p project.Name, rev string) (project.PluginConfig, error) {
	if project.IsZeroRevision(rev) {
		return project.PluginConfig{}, nil
	}
	cfg, err := u.reader.ReadConfig(p, rev)
	if err != nil {
		return nil, err
	}
	return cfg.PluginConfig(u.plugin), nil
}
