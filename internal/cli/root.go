// Package cli holds the riteswipe command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Subcommands read configuration from
// the environment, .env and the optional --config file.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "riteswipe",
		Short:         "RiteSwipe marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (yaml, json, toml or env)")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newUsersCmd(&configPath),
		newSkillsCmd(&configPath),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
