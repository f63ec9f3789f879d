package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCatalog(t *testing.T, limiter *LoadLimiter) *Catalog {
	t.Helper()
	loader, err := NewLoader(noResample(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewCatalog(loader, limiter, zaptest.NewLogger(t))
}

func TestCatalog_LoadSessions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"run2", "run1"} {
		root := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Join(root, DefaultParsedDir), 0o755))
		writeRecording(t, root, "can0", "A.csv", "_timestamp,v\n0,1\n")
	}

	c := newCatalog(t, nil)
	require.NoError(t, c.LoadSessions(context.Background(), dir, nil))
	assert.Equal(t, []string{"run1", "run2"}, c.Names())

	ds := c.Datasets()
	require.Len(t, ds, 2)
	assert.Equal(t, "run1", ds[0].Name)

	d, err := c.Get("run2")
	require.NoError(t, err)
	msgs, err := d.Messages("can0")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, msgs)
}

func TestCatalog_Reload(t *testing.T) {
	root := newSession(t, "run1")
	writeRecording(t, root, "can0", "A.csv", "_timestamp,v\n0,1\n")

	c := newCatalog(t, nil)
	first, err := c.Add(context.Background(), root)
	require.NoError(t, err)

	writeRecording(t, root, "can0", "B.csv", "_timestamp,v\n0,2\n")
	second, err := c.Reload(context.Background(), "run1")
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	old, _ := first.Messages("can0")
	assert.Equal(t, []string{"A"}, old)
	fresh, _ := second.Messages("can0")
	assert.Equal(t, []string{"A", "B"}, fresh)

	current, err := c.Get("run1")
	require.NoError(t, err)
	assert.Same(t, second, current)
}

func TestCatalog_Missing(t *testing.T) {
	c := newCatalog(t, nil)

	_, err := c.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "QRY001", GetErrorCode(err))

	_, err = c.Reload(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_LimiterBusy(t *testing.T) {
	limiter := NewLoadLimiter(1, 20*time.Millisecond)
	require.True(t, limiter.TryAcquire())
	defer limiter.Release()

	c := newCatalog(t, limiter)
	_, err := c.Add(context.Background(), newSession(t, "run1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyLoads))
	assert.Empty(t, c.Names())
}
