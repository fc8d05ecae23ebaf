package cli

import (
	"fmt"
	"io"
	"regexp"

	"github.com/fatih/color"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/ariel-frischer/dlcmd/internal/download"
	clierrors "github.com/ariel-frischer/dlcmd/internal/errors"
	"github.com/ariel-frischer/dlcmd/internal/project"
)

var checkCmd = &cobra.Command{
	Use:   "check [project...]",
	Short: "Validate the download command templates of projects",
	Long: `Check every download command template configured directly on the given
projects, or on all projects. A template must split into shell words and may
only use the ${ref}, ${url} and ${project} placeholders. An empty template is
valid and hides the command.`,
	Example: `  dlcmd check
  dlcmd check All-Projects tools/gerrit`,
	RunE: runCheck,
}

func init() {
	checkCmd.GroupID = GroupInspect
	rootCmd.AddCommand(checkCmd)
}

var placeholderPattern = regexp.MustCompile(`\$\{[^}]*\}`)

// templateProblem is one invalid template.
type templateProblem struct {
	Project project.Name
	Key     string
	Problem string
}

// checkTemplate reports why template cannot be used, or "" when it is valid.
func checkTemplate(template string) string {
	if template == "" {
		return ""
	}
	for _, ph := range placeholderPattern.FindAllString(template, -1) {
		switch ph {
		case download.RefPlaceholder, download.URLPlaceholder, download.ProjectPlaceholder:
		default:
			return fmt.Sprintf("unknown placeholder %s", ph)
		}
	}
	words, err := shlex.Split(template)
	if err != nil {
		return fmt.Sprintf("not a shell command: %v", err)
	}
	if len(words) == 0 {
		return "no command words"
	}
	return ""
}

// checkProjects checks the plugin section of each project.
func checkProjects(cache project.Cache, plugin string, names []project.Name) ([]templateProblem, error) {
	var problems []templateProblem
	for _, name := range names {
		state, ok := cache.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", project.ErrNotFound, name)
		}
		cfg := state.PluginConfig(plugin)
		for _, key := range cfg.Names() {
			if problem := checkTemplate(cfg.String(key)); problem != "" {
				problems = append(problems, templateProblem{Project: name, Key: key, Problem: problem})
			}
		}
	}
	return problems, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openSite(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	names := s.store.All()
	if len(args) > 0 {
		names = make([]project.Name, 0, len(args))
		for _, arg := range args {
			names = append(names, project.Name(arg))
		}
	}

	problems, err := checkProjects(s.store, s.cfg.PluginName, names)
	if err != nil {
		return err
	}
	printProblems(cmd.OutOrStdout(), len(names), problems)
	if len(problems) > 0 {
		return clierrors.InvalidCommandTemplates(len(problems))
	}
	return nil
}

func printProblems(w io.Writer, checked int, problems []templateProblem) {
	red := color.New(color.FgRed).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	for _, p := range problems {
		fmt.Fprintf(w, "%s %s: %s: %s\n", red("✗"), p.Project, p.Key, p.Problem)
	}
	if len(problems) == 0 {
		fmt.Fprintf(w, "%s %d project(s) checked, all templates valid\n", green("✓"), checked)
	}
}
