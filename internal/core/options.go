package core

import (
	"strings"
	"time"
)

// AlignMode selects how tables are truncated onto a common window.
type AlignMode string

const (
	AlignNone      AlignMode = "none"
	AlignBeginning AlignMode = "beginning"
	AlignEnd       AlignMode = "end"
	AlignBoth      AlignMode = "both"
)

// ParseAlignMode converts a string to an AlignMode. The empty string is AlignNone.
func ParseAlignMode(s string) (AlignMode, error) {
	switch m := AlignMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", AlignNone:
		return AlignNone, nil
	case AlignBeginning, AlignEnd, AlignBoth:
		return m, nil
	default:
		return "", invalidConfigf("unrecognized alignment mode %q: use one of none, beginning, end, both", s)
	}
}

func (m AlignMode) alignsBeginning() bool { return m == AlignBeginning || m == AlignBoth }
func (m AlignMode) alignsEnd() bool       { return m == AlignEnd || m == AlignBoth }

// ResampleMode selects how rows are regularized onto the fixed grid.
type ResampleMode string

const (
	ResampleMeanInterpolate ResampleMode = "mean_interpolate"
	ResampleForwardFill     ResampleMode = "forward_fill"
)

// ParseResampleMode converts a string to a ResampleMode. The empty string is
// ResampleMeanInterpolate.
func ParseResampleMode(s string) (ResampleMode, error) {
	switch m := ResampleMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ResampleMeanInterpolate:
		return ResampleMeanInterpolate, nil
	case ResampleForwardFill:
		return m, nil
	default:
		return "", invalidConfigf("unrecognized resample mode %q: use mean_interpolate or forward_fill", s)
	}
}

const (
	DefaultParsedDir        = "parsed"
	DefaultTimestampColumn  = "_timestamp"
	DefaultMinFileSize      = 2
	DefaultResampleInterval = time.Millisecond
	DefaultWorkers          = 4

	// DefaultMaxGridPoints bounds one resampled table, about a day of
	// 10ms samples.
	DefaultMaxGridPoints = 10_000_000
)

// DefaultNullTokens are the cell values treated as missing. Any cell that
// parses as a float NaN is missing as well, whatever the token list says.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Options configures one dataset construction.
type Options struct {
	Resample         bool
	ResampleInterval time.Duration
	ResampleMode     ResampleMode
	Align            AlignMode

	// MaxGridPoints caps the rows a resampled table may have. A recording
	// that would exceed it becomes a load error. Zero means DefaultMaxGridPoints.
	MaxGridPoints int

	// IgnoreNetworks and ConsiderNetworks are mutually exclusive.
	IgnoreNetworks   []string
	ConsiderNetworks []string

	// IgnoreFiles are file names skipped without an anomaly record.
	IgnoreFiles []string

	ParsedDir       string
	TimestampColumn string

	// Files at or below MinFileSize bytes are treated as empty.
	MinFileSize int64

	NullTokens []string

	// Workers bounds concurrent file ingestion. Zero means DefaultWorkers.
	Workers int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Resample:         true,
		ResampleInterval: DefaultResampleInterval,
		ResampleMode:     ResampleMeanInterpolate,
		MaxGridPoints:    DefaultMaxGridPoints,
		Align:            AlignNone,
		ParsedDir:        DefaultParsedDir,
		TimestampColumn:  DefaultTimestampColumn,
		MinFileSize:      DefaultMinFileSize,
		Workers:          DefaultWorkers,
	}
}

// Validate checks the options and fills unset fields with defaults. Every
// failure is marked ErrInvalidConfig.
func (o *Options) Validate() error {
	if len(o.IgnoreNetworks) > 0 && len(o.ConsiderNetworks) > 0 {
		return invalidConfigf("cannot ignore and consider networks at the same time")
	}

	align, err := ParseAlignMode(string(o.Align))
	if err != nil {
		return err
	}
	o.Align = align

	mode, err := ParseResampleMode(string(o.ResampleMode))
	if err != nil {
		return err
	}
	o.ResampleMode = mode

	if o.Resample && o.ResampleInterval < time.Microsecond {
		return invalidConfigf("resample interval %s must be at least 1µs", o.ResampleInterval)
	}
	if o.MaxGridPoints < 0 {
		return invalidConfigf("grid limit (%d) must be non-negative", o.MaxGridPoints)
	}
	if o.MaxGridPoints == 0 {
		o.MaxGridPoints = DefaultMaxGridPoints
	}
	if o.Workers < 0 {
		return invalidConfigf("workers (%d) must be non-negative", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.MinFileSize < 0 {
		return invalidConfigf("minimum file size (%d) must be non-negative", o.MinFileSize)
	}
	if o.ParsedDir == "" {
		o.ParsedDir = DefaultParsedDir
	}
	if o.TimestampColumn == "" {
		o.TimestampColumn = DefaultTimestampColumn
	}
	if o.NullTokens == nil {
		o.NullTokens = DefaultNullTokens
	}
	return nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[s] = true
	}
	return set
}
