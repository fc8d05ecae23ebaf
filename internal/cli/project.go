package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ariel-frischer/dlcmd/internal/project"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Create projects and edit their download commands",
	Long: `Edit project.config on the config ref of a project. Every edit is a new
commit, which a running 'dlcmd serve' applies as an update.`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <project>",
	Short: "Create a project repository",
	Example: `  dlcmd project create All-Projects
  dlcmd project create tools/gerrit --parent tools`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent, _ := cmd.Flags().GetString("parent")
		return editProject(cmd, func(s *site) (string, string, error) {
			rev, err := s.store.CreateProject(project.Name(args[0]), project.Name(parent))
			return project.ZeroRevision, rev, err
		})
	},
}

var projectSetCmd = &cobra.Command{
	Use:   "set <project> <command> <template>",
	Short: "Set a download command template on a project",
	Long: `Set a download command template on a project. An empty template hides the
command on the project and every project inheriting from it.`,
	Example: `  dlcmd project set All-Projects checkout 'git fetch ${url} ${ref} && git checkout FETCH_HEAD'
  dlcmd project set tools/gerrit pull ''`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editProject(cmd, func(s *site) (string, string, error) {
			return s.store.SetPluginOption(project.Name(args[0]), s.cfg.PluginName, args[1], args[2])
		})
	},
}

var projectUnsetCmd = &cobra.Command{
	Use:   "unset <project> <command>",
	Short: "Remove a download command override from a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editProject(cmd, func(s *site) (string, string, error) {
			return s.store.UnsetPluginOption(project.Name(args[0]), s.cfg.PluginName, args[1])
		})
	},
}

var projectParentCmd = &cobra.Command{
	Use:   "parent <project> <parent>",
	Short: "Change the project a project inherits from",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editProject(cmd, func(s *site) (string, string, error) {
			return s.store.SetParent(project.Name(args[0]), project.Name(args[1]))
		})
	},
}

func init() {
	projectCmd.GroupID = GroupAdministrate
	projectCreateCmd.Flags().String("parent", "", "Project to inherit from (default: the root project)")
	projectCmd.AddCommand(projectCreateCmd, projectSetCmd, projectUnsetCmd, projectParentCmd)
	rootCmd.AddCommand(projectCmd)
}

// editProject opens the site, applies edit and reports the new revision.
func editProject(cmd *cobra.Command, edit func(s *site) (oldRev, newRev string, err error)) error {
	s, err := openSite(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	oldRev, newRev, err := edit(s)
	if err != nil {
		return err
	}
	s.log.WithField("old", oldRev).WithField("new", newRev).Debug("Committed project config")
	fmt.Fprintln(cmd.OutOrStdout(), newRev)
	return nil
}
