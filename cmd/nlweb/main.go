// Command nlweb suggests registered tools for natural-language queries and
// serves the suggestion service over MCP.
package main

import (
	"os"

	apperrors "github.com/reynard/nlweb/internal/errors"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error category onto a process exit status.
func exitCode(err error) int {
	switch apperrors.GetCategory(err) {
	case apperrors.CategoryUser, apperrors.CategoryNotFound:
		return 2
	case apperrors.CategoryUnavailable:
		return 3
	default:
		return 1
	}
}
