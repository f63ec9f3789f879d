package main

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JonMunkholm/tlmlog/internal/core"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report [session-dir...]",
	Short: "Print the integrity report of sessions",
	Long: `Load each session and print its integrity report. Without arguments every
session under the configured root is reported, restricted to the configured
session names when set.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print reports as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	roots, err := sessionRoots(args)
	if err != nil {
		return err
	}
	loader, err := newLoader()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	var reports []core.Report
	var failed int
	for _, root := range roots {
		d, err := loader.Load(ctx, root)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error("session not loaded", zap.String("root", root), zap.Error(err))
			failed++
			continue
		}
		report := core.BuildReport(d)
		if reportJSON {
			reports = append(reports, report)
			continue
		}
		if err := report.WriteText(out); err != nil {
			return err
		}
	}

	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.Newf("%d of %d sessions could not be loaded", failed, len(roots))
	}
	return nil
}

// sessionRoots returns args when given, otherwise the sessions discovered
// under the configured root.
func sessionRoots(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	roots, err := core.DiscoverSessions(cfg.Ingest.Root, cfg.Ingest.Options().ParsedDir, cfg.Ingest.Sessions)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, errors.Mark(errors.Newf("no sessions found under %s", cfg.Ingest.Root), core.ErrInvalidRoot)
	}
	return roots, nil
}
