package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/gsc-deindexer/internal/input"
	"github.com/JakeFAU/gsc-deindexer/internal/pipeline"
	"github.com/JakeFAU/gsc-deindexer/internal/report"
)

func newRemoveCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "remove <site> <urls.csv>",
		Short: "Check index status and request removal of indexed pages that are gone",
		Long: `Checks every URL in the CSV (column "url") against the site's Search Console
property, then sends a URL_DELETED notification for each indexed page whose
notification metadata is missing. <site> is either a URL-prefix property such
as https://example.com or a bare domain such as example.com.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], args[1], pipeline.Options{DryRun: dryRun})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "probe metadata but do not send removal requests")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <site> <urls.csv>",
		Short: "Check index status only; never requests removals",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], args[1], pipeline.Options{SkipDeletion: true})
		},
	}
}

func runPipeline(cmd *cobra.Command, site, csvPath string, opts pipeline.Options) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	urls, err := input.ReadURLFile(csvPath)
	if err != nil {
		return fmt.Errorf("read urls: %w", err)
	}
	logger.Info("loaded urls", zap.Int("count", len(urls)), zap.String("file", csvPath))

	opts.SiteInput = site
	opts.URLs = urls
	res, err := appInstance.Run(cmd.Context(), opts)
	switch {
	case errors.Is(err, pipeline.ErrNoInputURLs):
		return fmt.Errorf("no pages found, add them to %s: %w", csvPath, err)
	case errors.Is(err, pipeline.ErrMissingCredentials):
		return fmt.Errorf("failed to get access token, check your service account credentials: %w", err)
	case err != nil:
		return err
	}

	return report.Render(cmd.OutOrStdout(), res.Report)
}
