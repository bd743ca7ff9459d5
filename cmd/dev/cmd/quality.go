package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run unit tests against the simulated board",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Test(); err != nil {
				return fmt.Errorf("failed to run tests: %w", err)
			}
			return nil
		},
	}
}

func LintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Run linting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := test.Lint(); err != nil {
				return fmt.Errorf("failed to run linting: %w", err)
			}
			return nil
		},
	}
}

// CheckCmd runs the gate used before a release: lint first, then tests.
func CheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run linting and unit tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := []struct {
				name string
				run  func() error
			}{
				{"lint", test.Lint},
				{"test", test.Test},
			}
			for _, s := range steps {
				slog.Info("running step", "step", s.name)
				if err := s.run(); err != nil {
					return fmt.Errorf("%s failed: %w", s.name, err)
				}
			}
			return nil
		},
	}
}
