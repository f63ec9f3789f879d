package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tlmlog/internal/core"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the sessions found under the root",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots, err := core.DiscoverSessions(cfg.Ingest.Root, cfg.Ingest.Options().ParsedDir, cfg.Ingest.Sessions)
		if err != nil {
			return err
		}
		for _, root := range roots {
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(root))
		}
		return nil
	},
}
