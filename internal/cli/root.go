// Package cli implements the dlcmd command line.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	clierrors "github.com/ariel-frischer/dlcmd/internal/errors"
)

// Command groups shown in help output.
const (
	GroupServer        = "server"
	GroupInspect       = "inspect"
	GroupAdministrate  = "administrate"
	GroupConfiguration = "configuration"
)

var rootCmd = &cobra.Command{
	Use:   "dlcmd",
	Short: "Per-project download commands for a Gerrit-style site",
	Long: `dlcmd resolves the download commands shown for a change.

Administrators override a command per project in the [plugin "download-commands"]
section of project.config on refs/meta/config. A project without an override
inherits the nearest ancestor's. Placeholders ${ref}, ${url} and ${project} are
substituted when a command is displayed.`,
	Example: `  # Keep the command index in sync and expose metrics
  dlcmd serve --site /srv/review --metrics-addr :9090

  # Show the commands for a change
  dlcmd show tools/gerrit refs/changes/34/1234/2

  # Override the checkout command on a project
  dlcmd project set tools/gerrit checkout 'git fetch ${url} ${ref} && git switch -d FETCH_HEAD'`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupServer, Title: "Server:"},
		&cobra.Group{ID: GroupInspect, Title: "Inspect:"},
		&cobra.Group{ID: GroupAdministrate, Title: "Administrate:"},
		&cobra.Group{ID: GroupConfiguration, Title: "Configuration:"},
	)
	addGlobalFlags(rootCmd)
}

// addGlobalFlags registers the flags every command understands.
func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringP("config", "c", "", "Site config file (default: <site>/etc/dlcmd.yml)")
	f.StringP("site", "s", "", "Site directory holding git/<project>.git (overrides site_path)")
	f.BoolP("debug", "d", false, "Enable debug logging")
	f.Bool("no-color", false, "Disable colored output")
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		cliErr := clierrors.Classify(err)
		clierrors.FprintError(os.Stderr, cliErr)
		return exitCode(cliErr)
	}
	return ExitSuccess
}

// globals are the values of the global flags for one invocation.
type globals struct {
	configPath string
	sitePath   string
	debug      bool
}

func globalsFrom(cmd *cobra.Command) globals {
	var g globals
	g.configPath, _ = cmd.Flags().GetString("config")
	g.sitePath, _ = cmd.Flags().GetString("site")
	g.debug, _ = cmd.Flags().GetBool("debug")
	return g
}

func usageError(cmd *cobra.Command, format string, args ...any) error {
	return clierrors.NewArgumentErrorWithUsage(fmt.Sprintf(format, args...), cmd.UseLine())
}
