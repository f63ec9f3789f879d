package core

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fixtureSession lays out a session with one recording of every outcome.
func fixtureSession(t *testing.T) string {
	t.Helper()
	root := newSession(t, "run1")
	writeRecording(t, root, "can0", "WHEEL.csv", "_timestamp,speed\n0,10\n1000,20\n2000,30\n")
	writeRecording(t, root, "can0", "NULLY.csv", "_timestamp,v\n0,1\n1000,\n2000,3\n")
	writeRecording(t, root, "can0", "ALLNULL.csv", "_timestamp,v\n0,\n1000,NaN\n")
	writeRecording(t, root, "can0", "EMPTY.csv", "")
	writeRecording(t, root, "can0", "BROKEN.csv", "time,v\n0,1\n")
	writeRecording(t, root, "can0", "notes.txt", "not a recording")
	writeRecording(t, root, "can1", "GPS.csv", "_timestamp,lat,fix\n0,1.5,3d\n1000,1.6,3d\n")
	writeRecording(t, root, "debug", "X.csv", "_timestamp,v\n0,1\n")
	return root
}

func load(t *testing.T, root string, opts Options) *Dataset {
	t.Helper()
	loader, err := NewLoader(opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	d, err := loader.Load(context.Background(), root)
	require.NoError(t, err)
	return d
}

func TestNewLoader_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"both network filters", func(o *Options) {
			o.IgnoreNetworks = []string{"a"}
			o.ConsiderNetworks = []string{"b"}
		}},
		{"unknown align mode", func(o *Options) { o.Align = "middle" }},
		{"unknown resample mode", func(o *Options) { o.ResampleMode = "median" }},
		{"interval below a microsecond", func(o *Options) { o.ResampleInterval = 500 }},
		{"negative workers", func(o *Options) { o.Workers = -1 }},
		{"negative min size", func(o *Options) { o.MinFileSize = -1 }},
		{"negative grid limit", func(o *Options) { o.MaxGridPoints = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			loader, err := NewLoader(opts, nil)
			require.Error(t, err)
			assert.Nil(t, loader)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestNewLoader_FillsDefaults(t *testing.T) {
	loader, err := NewLoader(Options{}, nil)
	require.NoError(t, err)
	opts := loader.Options()
	assert.Equal(t, DefaultWorkers, opts.Workers)
	assert.Equal(t, DefaultParsedDir, opts.ParsedDir)
	assert.Equal(t, DefaultTimestampColumn, opts.TimestampColumn)
	assert.Equal(t, AlignNone, opts.Align)
	assert.Equal(t, ResampleMeanInterpolate, opts.ResampleMode)
	assert.Equal(t, DefaultMaxGridPoints, opts.MaxGridPoints)
	assert.Equal(t, DefaultNullTokens, opts.NullTokens)
}

func TestLoad_Fixture(t *testing.T) {
	d := load(t, fixtureSession(t), DefaultOptions())

	assert.Equal(t, StageReady, d.Stage())
	assert.Equal(t, "run1", d.Name)
	assert.Equal(t, []string{"can0", "can1", "debug"}, d.Networks())

	msgs, err := d.Messages("can0")
	require.NoError(t, err)
	assert.Equal(t, []string{"NULLY", "WHEEL"}, msgs)

	gps, err := d.Messages("can1")
	require.NoError(t, err)
	assert.Empty(t, gps)

	nully, err := d.Table("can0", "NULLY")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1000, 2000}, nully.Time)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, nully.Columns[0].Floats, 1e-9)

	stats := d.Stats()
	assert.Equal(t, 7, stats.Files)
	assert.Equal(t, 3, stats.Messages)
	assert.Equal(t, 7, stats.Rows)
	assert.Positive(t, stats.BytesRead)

	r := BuildReport(d)
	assert.Equal(t, Counts{Empty: 2, Error: 2, Null: 1}, r.Counts)

	kinds := map[string]AnomalyKind{}
	for _, a := range d.Anomalies() {
		kinds[a.Network+"/"+a.Message] = a.Kind
	}
	assert.Equal(t, map[string]AnomalyKind{
		"can0/NULLY":   AnomalyNullCleaned,
		"can0/ALLNULL": AnomalyEmpty,
		"can0/EMPTY":   AnomalyEmpty,
		"can0/BROKEN":  AnomalyLoadError,
		"can1/GPS":     AnomalyLoadError,
	}, kinds)
}

func TestLoad_NullSpellingsAreCleaned(t *testing.T) {
	for _, tok := range []string{"n/a", "<NA>", "-NaN", "#NA", "+nan", "NAN", "1.#QNAN"} {
		t.Run(tok, func(t *testing.T) {
			root := newSession(t, "run1")
			writeRecording(t, root, "can0", "V.csv", "_timestamp,v\n0,1\n1000,"+tok+"\n2000,3\n")
			d := load(t, root, DefaultOptions())

			anomalies := d.Anomalies()
			require.Len(t, anomalies, 1)
			assert.Equal(t, AnomalyNullCleaned, anomalies[0].Kind)
			assert.Equal(t, 1, anomalies[0].RemovedRows)

			v, err := d.Table("can0", "V")
			require.NoError(t, err)
			for i, f := range v.Columns[0].Floats {
				assert.False(t, math.IsNaN(f), "NaN left at row %d", i)
			}
		})
	}
}

func TestLoad_StrayTimestampIsLoadError(t *testing.T) {
	root := newSession(t, "run1")
	writeRecording(t, root, "can0", "STRAY.csv", "_timestamp,v\n0,1\n1700000000000000,2\n1700000000001000,3\n")
	writeRecording(t, root, "can0", "WHEEL.csv", "_timestamp,v\n1700000000000000,1\n1700000000002000,3\n")

	d := load(t, root, DefaultOptions())

	msgs, err := d.Messages("can0")
	require.NoError(t, err)
	assert.Equal(t, []string{"WHEEL"}, msgs)

	_, err = d.Table("can0", "STRAY")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonLoadFailed, nf.Reason)
	assert.True(t, errors.Is(err, ErrLoad))
	assert.Contains(t, err.Error(), "grid points")
}

func TestLoad_ResampleFailureIsLoadError(t *testing.T) {
	d := load(t, fixtureSession(t), DefaultOptions())

	_, err := d.Table("can1", "GPS")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonLoadFailed, nf.Reason)
	assert.True(t, errors.Is(err, ErrIncompatibleType))
	assert.Contains(t, err.Error(), "could not be loaded due to error")
}

func TestLoad_ForwardFillKeepsText(t *testing.T) {
	opts := DefaultOptions()
	opts.ResampleMode = ResampleForwardFill
	d := load(t, fixtureSession(t), opts)

	s, err := d.Column("can1", "GPS", "fix")
	require.NoError(t, err)
	assert.Equal(t, KindText, s.Kind)
	assert.Equal(t, []string{"3d", "3d"}, s.Texts)
}

func TestLoad_EmptyFileAbsentFromMessages(t *testing.T) {
	root := newSession(t, "tiny")
	writeRecording(t, root, "can0", "TINY.csv", "a\n")
	writeRecording(t, root, "can0", "OK.csv", "_timestamp,v\n0,1\n")

	d := load(t, root, DefaultOptions())
	msgs, err := d.Messages("can0")
	require.NoError(t, err)
	assert.Equal(t, []string{"OK"}, msgs)

	_, err = d.Get("can0", "TINY")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonEmptyAtIngest, nf.Reason)
}

func TestLoad_NetworkFilters(t *testing.T) {
	root := fixtureSession(t)

	opts := DefaultOptions()
	opts.IgnoreNetworks = []string{"debug"}
	d := load(t, root, opts)
	assert.Equal(t, []string{"can0", "can1"}, d.Networks())

	_, err := d.Network("debug")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonFiltered, nf.Reason)

	_, err = d.Network("nope")
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonNeverExisted, nf.Reason)

	opts = DefaultOptions()
	opts.ConsiderNetworks = []string{"debug"}
	d = load(t, root, opts)
	assert.Equal(t, []string{"debug"}, d.Networks())
}

func TestLoad_IgnoreFiles(t *testing.T) {
	opts := DefaultOptions()
	opts.IgnoreFiles = []string{"BROKEN.csv", "EMPTY.csv"}
	d := load(t, fixtureSession(t), opts)

	assert.Equal(t, Counts{Empty: 1, Error: 1, Null: 1}, BuildReport(d).Counts)
	_, err := d.Table("can0", "BROKEN")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, ReasonNeverExisted, nf.Reason)
}

func TestLoad_DuplicateRecordingKeepsFirst(t *testing.T) {
	root := newSession(t, "dup")
	writeRecording(t, root, "can0", "IMU.csv", "_timestamp,v\n0,1\n")
	writeRecording(t, root, "can0", "IMU.csv.zst", "not read")

	core, logs := observer.New(zapcore.WarnLevel)
	loader, err := NewLoader(noResample(), zap.New(core))
	require.NoError(t, err)
	d, err := loader.Load(context.Background(), root)
	require.NoError(t, err)

	tbl, err := d.Table("can0", "IMU")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, tbl.Columns[0].Floats)

	warned := logs.FilterMessage("duplicate recording for message, keeping first").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "IMU.csv", warned[0].ContextMap()["kept"])
}

func TestLoad_AlignmentExplainsDroppedMessages(t *testing.T) {
	root := newSession(t, "aligned")
	writeRecording(t, root, "can0", "A.csv", "_timestamp,v\n0,1\n50,2\n100,3\n")
	writeRecording(t, root, "can0", "B.csv", "_timestamp,v\n10,1\n90,2\n")
	writeRecording(t, root, "can1", "LATE.csv", "_timestamp,v\n0,1\n95,2\n100,3\n")

	opts := noResample()
	opts.Align = AlignBoth
	d := load(t, root, opts)

	summary := d.Alignment()
	require.True(t, summary.Applied)
	assert.Equal(t, int64(10), summary.WindowStart)
	assert.Equal(t, int64(90), summary.WindowEnd)

	_, err := d.Get("can1", "LATE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "was deleted after aligning timestamps")

	_, err = d.Get("can1", "NEVER")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "aligning")
}

func TestLoad_LogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	loader, err := NewLoader(DefaultOptions(), zap.New(core))
	require.NoError(t, err)

	d, err := loader.Load(context.Background(), fixtureSession(t))
	require.NoError(t, err)

	entries := logs.FilterMessage("log loaded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run1", fields["log"])
	assert.Equal(t, d.RunID.String(), fields["run_id"])
	assert.Equal(t, int64(3), fields["messages"])
	assert.Equal(t, int64(2), fields["errors"])
}

func TestLoad_InvalidRoot(t *testing.T) {
	loader, err := NewLoader(DefaultOptions(), nil)
	require.NoError(t, err)

	_, err = loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, ErrInvalidRoot))

	noParsed := t.TempDir()
	_, err = loader.Load(context.Background(), noParsed)
	assert.True(t, errors.Is(err, ErrInvalidRoot))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = loader.Load(context.Background(), file)
	assert.True(t, errors.Is(err, ErrInvalidRoot))
}

func TestLoad_Cancelled(t *testing.T) {
	loader, err := NewLoader(DefaultOptions(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.Load(ctx, fixtureSession(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad_Deterministic(t *testing.T) {
	root := fixtureSession(t)
	opts := DefaultOptions()
	opts.Workers = 8

	first := BuildReport(load(t, root, opts)).String()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildReport(load(t, root, opts)).String())
	}
}
