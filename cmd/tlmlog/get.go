package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tlmlog/internal/core"
)

var getCmd = &cobra.Command{
	Use:   "get <session-dir> [network [message [payload]]]",
	Short: "Print networks, messages, a message table or a payload column",
	Long: `Load one session and narrow into it. With no keys the networks are listed,
with a network its messages, with a message its table as CSV, and with a
payload the column as JSON. A missing key is explained: filtered, empty at
import, failed to load or dropped by alignment.`,
	Example: `  tlmlog get ./run1
  tlmlog get ./run1 can0
  tlmlog get ./run1 can0 WHEEL > wheel.csv
  tlmlog get ./run1 can0 WHEEL speed`,
	Args: cobra.RangeArgs(1, 4),
	RunE: runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	loader, err := newLoader()
	if err != nil {
		return err
	}
	d, err := loader.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	v, err := d.Get(args[1:]...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch x := v.(type) {
	case *core.Dataset:
		for _, n := range x.Networks() {
			fmt.Fprintln(out, n)
		}
	case core.Network:
		msgs, err := d.Messages(args[1])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Fprintln(out, m)
		}
	case *core.Table:
		return x.WriteCSV(out, loader.Options().TimestampColumn)
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(x)
	}
	return nil
}
