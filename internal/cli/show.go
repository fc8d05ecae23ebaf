package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	clierrors "github.com/ariel-frischer/dlcmd/internal/errors"
	"github.com/ariel-frischer/dlcmd/internal/project"
	"github.com/ariel-frischer/dlcmd/internal/scheme"
)

const defaultRef = "HEAD"

var showCmd = &cobra.Command{
	Use:   "show <project> [ref]",
	Short: "Show the download commands of a project",
	Long: `Resolve every download command for a project and ref over each configured
scheme, as a user would see them on a change. Commands the project does not
configure are inherited from the nearest ancestor that does.`,
	Example: `  dlcmd show tools/gerrit refs/changes/34/1234/2
  dlcmd show tools/gerrit --scheme ssh --yaml`,
	RunE: runShow,
}

func init() {
	showCmd.GroupID = GroupInspect
	showCmd.Flags().Bool("yaml", false, "Output as YAML")
	showCmd.Flags().String("scheme", "", "Only show commands for this scheme (http, ssh or git)")
	rootCmd.AddCommand(showCmd)
}

// resolvedCommand is one displayable command.
type resolvedCommand struct {
	Name    string
	Scheme  string
	Command string
}

func runShow(cmd *cobra.Command, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageError(cmd, "expected a project and an optional ref, got %d arguments", len(args))
	}
	name := project.Name(args[0])
	ref := defaultRef
	if len(args) == 2 {
		ref = args[1]
	}

	s, err := openSite(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if _, ok := s.store.Get(name); !ok {
		return clierrors.ProjectNotFound(string(name), s.cfg.SitePath)
	}

	only, _ := cmd.Flags().GetString("scheme")
	schemes := filterSchemes(scheme.FromConfig(s.cfg.Schemes), only)
	if len(schemes) == 0 {
		return clierrors.NoSchemes()
	}

	if err := s.load(cmd.Context(), cmd); err != nil {
		return err
	}
	resolved := s.resolve(schemes, name, ref)

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return printResolvedYAML(cmd.OutOrStdout(), resolved)
	}
	printResolved(cmd.OutOrStdout(), name, resolved)
	return nil
}

func filterSchemes(schemes []scheme.URLScheme, only string) []scheme.URLScheme {
	if only == "" {
		return schemes
	}
	var out []scheme.URLScheme
	for _, sc := range schemes {
		if sc.Name == only {
			out = append(out, sc)
		}
	}
	return out
}

// resolve returns every command that resolves for name, ordered by command
// then scheme.
func (s *site) resolve(schemes []scheme.URLScheme, name project.Name, ref string) []resolvedCommand {
	var out []resolvedCommand
	for _, entry := range s.commands() {
		for _, sc := range schemes {
			if text, ok := entry.Command.Command(sc, string(name), ref); ok {
				out = append(out, resolvedCommand{Name: entry.Name, Scheme: sc.Name, Command: text})
			}
		}
	}
	return out
}

func printResolved(w io.Writer, name project.Name, resolved []resolvedCommand) {
	if len(resolved) == 0 {
		fmt.Fprintf(w, "No download commands for %s.\n", name)
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	last := ""
	for _, r := range resolved {
		if r.Name != last {
			fmt.Fprintln(w, bold(r.Name))
			last = r.Name
		}
		fmt.Fprintf(w, "  %s %s\n", cyan(r.Scheme+":"), r.Command)
	}
}

// printResolvedYAML writes command -> scheme -> command text.
func printResolvedYAML(w io.Writer, resolved []resolvedCommand) error {
	out := make(map[string]map[string]string)
	for _, r := range resolved {
		if out[r.Name] == nil {
			out[r.Name] = make(map[string]string)
		}
		out[r.Name][r.Scheme] = r.Command
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding commands: %w", err)
	}
	return enc.Close()
}
