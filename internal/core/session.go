package core

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// DiscoverSessions lists the session roots directly under dir: every
// subdirectory holding a parsed directory. When subset is non-empty only
// sessions with those names are returned. Results are sorted by name.
func DiscoverSessions(dir, parsedDir string, subset []string) ([]string, error) {
	if parsedDir == "" {
		parsedDir = DefaultParsedDir
	}
	if err := requireDir(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %s", dir), ErrInvalidRoot)
	}

	want := toSet(subset)
	var roots []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if len(want) > 0 && !want[e.Name()] {
			continue
		}
		root := filepath.Join(dir, e.Name())
		if info, err := os.Stat(filepath.Join(root, parsedDir)); err != nil || !info.IsDir() {
			continue
		}
		roots = append(roots, root)
	}
	return roots, nil
}
