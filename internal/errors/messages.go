package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/ariel-frischer/dlcmd/internal/config"
	"github.com/ariel-frischer/dlcmd/internal/project"
)

// Common error messages for the dlcmd CLI.

// ProjectNotFound creates an error for a project missing from the site.
func ProjectNotFound(name string, site string) *CLIError {
	return &CLIError{
		Category: NotFound,
		Message:  fmt.Sprintf("project %q not found", name),
		Remediation: []string{
			fmt.Sprintf("Check that %s/git/%s.git exists", site, name),
			"List known projects with: dlcmd list --projects",
			fmt.Sprintf("Create it with: dlcmd project create %s", name),
		},
	}
}

// SiteNotFound creates an error for a site without a git directory.
func SiteNotFound(gitDir string) *CLIError {
	return &CLIError{
		Category: NotFound,
		Message:  fmt.Sprintf("no repositories directory at %s", gitDir),
		Remediation: []string{
			"Point --site at a directory containing git/<project>.git",
			"Or set site_path in the site config or DLCMD_SITE_PATH",
		},
	}
}

// NoSchemes creates an error when no download scheme is configured.
func NoSchemes() *CLIError {
	return NewConfigError(
		"no download schemes configured",
		"Set at least one of schemes.http, schemes.ssh or schemes.git",
		"Example: DLCMD_SCHEMES__HTTP=https://review.example.com",
	)
}

// InvalidCommandTemplates creates an error summarizing failed template checks.
func InvalidCommandTemplates(count int) *CLIError {
	return NewConfigError(
		fmt.Sprintf("%d invalid download command template(s)", count),
		"Fix the reported keys in the project's project.config",
		"Templates may only use ${ref}, ${url} and ${project}",
	)
}

// Classify converts err into a CLIError, recognizing the errors raised by
// configuration loading and project access.
func Classify(err error) *CLIError {
	if err == nil {
		return nil
	}
	if cliErr := AsCLIError(err); cliErr != nil {
		return cliErr
	}

	var validation *config.ValidationError
	switch {
	case stderrors.As(err, &validation):
		return Wrap(err, Configuration,
			"Fix the reported value in the config file or environment",
			"Print the effective configuration with: dlcmd config show")
	case stderrors.Is(err, project.ErrConfigInvalid):
		return Wrap(err, Configuration,
			"Fix the syntax of project.config on the config ref")
	case stderrors.Is(err, project.ErrNotFound):
		return Wrap(err, NotFound,
			"List known projects with: dlcmd list --projects")
	default:
		return Wrap(err, Runtime)
	}
}
