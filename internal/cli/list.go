package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/dlcmd/internal/download"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured download commands and the projects that set them",
	Example: `  dlcmd list
  dlcmd list --projects`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.GroupID = GroupInspect
	listCmd.Flags().Bool("projects", false, "List projects instead of commands")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSite(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	out := cmd.OutOrStdout()
	if projects, _ := cmd.Flags().GetBool("projects"); projects {
		for _, name := range s.store.All() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	if err := s.load(cmd.Context(), cmd); err != nil {
		return err
	}

	names := s.registry.Names()
	if len(names) == 0 {
		fmt.Fprintln(out, "No download commands configured.")
		return nil
	}

	dim := color.New(color.Faint).SprintFunc()
	for _, name := range names {
		entry, _ := s.registry.Lookup(name)
		bound := entry.Projects()
		projects := make([]string, 0, len(bound))
		for _, p := range bound {
			projects = append(projects, string(p))
		}
		fmt.Fprintf(out, "%s %s\n", download.DisplayName(name), dim("("+name+": "+strings.Join(projects, ", ")+")"))
	}
	return nil
}
