package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeRecording writes content to <root>/parsed/<network>/<file> and returns its path.
func writeRecording(t *testing.T, root, network, file, content string) string {
	t.Helper()
	dir := filepath.Join(root, DefaultParsedDir, network)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newSession returns an empty session root with a parsed directory.
func newSession(t *testing.T, name string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Join(root, DefaultParsedDir), 0o755))
	return root
}

// tableOf builds a numeric single-column table from timestamps and values.
func tableOf(times []int64, values ...float64) *Table {
	if values == nil {
		values = make([]float64, len(times))
		for i := range values {
			values[i] = float64(i)
		}
	}
	return &Table{
		Time:    times,
		Columns: []Column{{Name: "value", Kind: KindNumeric, Floats: values}},
	}
}

// datasetOf builds a ready dataset from network -> message -> table.
func datasetOf(networks map[string]Network) *Dataset {
	d := newDataset("test", "")
	for name, net := range networks {
		d.networks[name] = net
	}
	d.stage = StageReady
	return d
}

func noResample() Options {
	opts := DefaultOptions()
	opts.Resample = false
	return opts
}
