package version

import (
	"encoding/json"
	"fmt"

	"github.com/compozy/docsweep/cli/helpers"
	"github.com/compozy/docsweep/pkg/version"
	"github.com/spf13/cobra"
)

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			info := version.Get()
			switch format {
			case "json":
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			case "text":
				fmt.Fprintf(cmd.OutOrStdout(), "docsweep %s (commit %s, built %s)\n",
					info.Version, info.CommitHash, info.BuildDate)
				return nil
			default:
				return helpers.NewUsageError("format", fmt.Sprintf("unsupported format %q", format))
			}
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}
