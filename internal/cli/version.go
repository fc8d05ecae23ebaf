package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/dlcmd/internal/build"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Display version information (v)",
	Long:    "Display version, commit, build date, and Go version information for dlcmd",
	Example: `  # Show version info
  dlcmd version

  # Plain output (for scripts)
  dlcmd version --plain`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		plain, _ := cmd.Flags().GetBool("plain")
		info := build.Current()
		out := cmd.OutOrStdout()

		if plain {
			fmt.Fprintf(out, "dlcmd %s\n", info.Version)
			fmt.Fprintf(out, "commit: %s\n", info.Commit)
			fmt.Fprintf(out, "built: %s\n", info.BuildDate)
			fmt.Fprintf(out, "go: %s\n", info.GoVersion)
			fmt.Fprintf(out, "platform: %s\n", info.Platform)
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		dim := color.New(color.Faint).SprintFunc()
		fmt.Fprintf(out, "%s %s\n", cyan("dlcmd"), info.Version)
		fmt.Fprintf(out, "  %s %s\n", dim("commit:  "), info.Commit)
		fmt.Fprintf(out, "  %s %s\n", dim("built:   "), info.BuildDate)
		fmt.Fprintf(out, "  %s %s (%s)\n", dim("go:      "), info.GoVersion, info.Platform)
	},
}

func init() {
	versionCmd.GroupID = GroupConfiguration
	versionCmd.Flags().Bool("plain", false, "Plain output without formatting")
	rootCmd.AddCommand(versionCmd)
}
