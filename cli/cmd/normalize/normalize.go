package normalize

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/compozy/docsweep/cli/helpers"
	"github.com/compozy/docsweep/engine/normalize"
	"github.com/compozy/docsweep/pkg/config"
	"github.com/compozy/docsweep/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [root]",
		Short: "Join multi-line field values onto a single line",
		Long: `Walk the content root and rewrite every assignment of the configured field
whose quoted value spans several lines, replacing each line break and its
surrounding whitespace with one space. Files that need no change are not written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runNormalize(cmd, afero.NewOsFs())
		},
	}

	cmd.Flags().String("ext", ".md", "Suffix of files to process")
	cmd.Flags().String("field", "description", "Name of the field to normalize")
	cmd.Flags().StringSlice("include", nil, "Only process files matching these globs (relative to root)")
	cmd.Flags().StringSlice("exclude", nil, "Skip paths matching these globs (relative to root)")
	cmd.Flags().Bool("follow-symlinks", false, "Descend into symlinked directories")
	cmd.Flags().Bool("continue-on-error", false, "Keep going after a file fails and report all errors at the end")
	cmd.Flags().Bool("dry-run", false, "Report files that would change without writing them")
	cmd.Flags().Bool("watch", false, "Keep running and fix files as they change")
	cmd.Flags().Bool("relative-to-binary", true, "Resolve a relative root against the executable's directory (off for a positional root)")

	return cmd
}

func runNormalize(cmd *cobra.Command, fs afero.Fs) error {
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx).Normalize
	root, err := normalize.ResolveRoot(&cfg)
	if err != nil {
		return err
	}
	cfg.Root = root
	svc, err := normalize.NewService(fs, &cfg,
		normalize.WithOutput(cmd.OutOrStdout()),
		normalize.WithErrorOutput(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	if watch {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		return svc.Watch(ctx)
	}

	report, err := svc.Run(ctx)
	if report != nil {
		log.Info("Normalization finished",
			"root", cfg.Root,
			"scanned", report.Scanned,
			"fixed", report.Fixed,
			"fields", report.Fields,
			"errors", len(report.Errors),
		)
	}
	if err != nil && report != nil && len(report.Errors) > 0 {
		// each failure was already printed as it happened
		return helpers.NewReportedError(err)
	}
	return err
}
