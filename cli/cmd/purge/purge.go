package purge

import (
	"errors"
	"fmt"

	"github.com/compozy/docsweep/cli/helpers"
	"github.com/compozy/docsweep/engine/purge"
	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewPurgeCommand creates the purge command.
func NewPurgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge [dir]",
		Short: "Delete files with one extension from a directory",
		Long: `List the directory once (no recursion) and delete every entry whose extension
matches exactly. Directories are never deleted. A failed deletion is reported and
does not stop the others.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurge(cmd, afero.NewOsFs())
		},
	}

	cmd.Flags().String("ext", ".mdx", "Extension of the files to delete, including the dot")
	cmd.Flags().Int("workers", 4, "Maximum concurrent deletions")
	cmd.Flags().Bool("dry-run", false, "Report files that would be deleted without deleting them")
	cmd.Flags().Bool("fail-on-error", false, "Exit with an error when any deletion fails")
	cmd.Flags().Int("retries", 0, "Retry transient deletion failures this many times")

	return cmd
}

func runPurge(cmd *cobra.Command, fs afero.Fs) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx).Purge
	svc := purge.NewService(fs, &cfg,
		purge.WithOutput(cmd.OutOrStdout()),
		purge.WithErrorOutput(cmd.ErrOrStderr()),
	)
	report, err := svc.Run(ctx)
	var listErr *purge.ListError
	if errors.As(err, &listErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error reading directory: %v\n", listErr.Err)
		return helpers.NewReportedError(err)
	}
	if report != nil {
		log.Info("Purge finished",
			"dir", cfg.Dir,
			"matched", report.Matched,
			"deleted", len(report.Deleted),
			"failed", len(report.Failed),
		)
	}
	return err
}
