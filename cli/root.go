package cli

import (
	configcmd "github.com/compozy/docsweep/cli/cmd/config"
	normalizecmd "github.com/compozy/docsweep/cli/cmd/normalize"
	purgecmd "github.com/compozy/docsweep/cli/cmd/purge"
	versioncmd "github.com/compozy/docsweep/cli/cmd/version"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docsweep",
		Short: "Maintenance passes for static-site content trees",
		Long: `docsweep keeps a markdown content tree tidy.

  normalize  joins multi-line front matter values onto one line
  purge      deletes files with one extension from a directory`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return SetupGlobalConfig(cmd, args)
		},
	}

	root.PersistentFlags().String("config", "docsweep.yaml", "Path to the configuration file")
	root.PersistentFlags().String("env-file", ".env", "Path to the environment file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source code location in logs")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(
		normalizecmd.NewNormalizeCommand(),
		purgecmd.NewPurgeCommand(),
		configcmd.NewConfigCommand(),
		versioncmd.NewVersionCommand(),
	)

	return root
}
