package cli

import clierrors "github.com/ariel-frischer/dlcmd/internal/errors"

// Exit codes for the dlcmd CLI
const (
	// ExitSuccess indicates successful command execution
	ExitSuccess = 0

	// ExitFailure indicates a runtime failure
	ExitFailure = 1

	// ExitInvalidConfig indicates invalid site config or command templates
	ExitInvalidConfig = 2

	// ExitInvalidArguments indicates invalid command arguments
	ExitInvalidArguments = 3

	// ExitNotFound indicates a missing project or site
	ExitNotFound = 4
)

func exitCode(err *clierrors.CLIError) int {
	if err == nil {
		return ExitSuccess
	}
	switch err.Category {
	case clierrors.Argument:
		return ExitInvalidArguments
	case clierrors.Configuration:
		return ExitInvalidConfig
	case clierrors.NotFound:
		return ExitNotFound
	default:
		return ExitFailure
	}
}
