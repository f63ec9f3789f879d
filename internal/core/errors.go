package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Use errors.Is to classify; the concrete error carries the
// detail (path, key, line number) through wrapping.
var (
	// ErrInvalidConfig is fatal and returned before any I/O happens.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidRoot is fatal: the session root or its parsed directory is missing.
	ErrInvalidRoot = errors.New("invalid session root")

	// ErrEmptyInput marks a recording with no data rows.
	ErrEmptyInput = errors.New("empty input")

	// ErrLoad marks a recording that could not be read or parsed.
	ErrLoad = errors.New("load error")

	// ErrIncompatibleType is returned by the resampler when a column cannot be averaged.
	ErrIncompatibleType = errors.New("incompatible column type")

	// ErrNotFound is returned by the access layer for absent keys.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery is returned when Get receives more keys than the hierarchy has levels.
	ErrInvalidQuery = errors.New("invalid query")
)

// Reason explains why a key is absent from a dataset.
type Reason int

const (
	ReasonNeverExisted Reason = iota
	ReasonDroppedByAlignment
	ReasonEmptyAtIngest
	ReasonLoadFailed
	ReasonFiltered
)

func (r Reason) String() string {
	switch r {
	case ReasonDroppedByAlignment:
		return "was deleted after aligning timestamps"
	case ReasonEmptyAtIngest:
		return "was empty at import"
	case ReasonLoadFailed:
		return "could not be loaded due to error"
	case ReasonFiltered:
		return "was excluded by the network filter"
	default:
		return "never existed"
	}
}

// NotFoundError is returned by every access-layer lookup that misses.
// It matches ErrNotFound through errors.Is.
type NotFoundError struct {
	Log     string
	Network string
	Message string
	Payload string
	Reason  Reason
	Cause   error // load failure, only for ReasonLoadFailed
}

func (e *NotFoundError) Error() string {
	var msg string
	switch {
	case e.Payload != "":
		msg = fmt.Sprintf("payload %s not found in message %s in network %s in log %s",
			e.Payload, e.Message, e.Network, e.Log)
	case e.Message != "":
		msg = fmt.Sprintf("message %s not found in network %s in log %s", e.Message, e.Network, e.Log)
	default:
		msg = fmt.Sprintf("network %s not found in log %s", e.Network, e.Log)
	}
	if e.Reason == ReasonNeverExisted {
		return msg
	}
	msg += ". " + capitalize(e.Reason.String())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Cause
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// invalidConfigf builds an ErrInvalidConfig-marked error.
func invalidConfigf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfig)
}

// loadErrorf builds an ErrLoad-marked error.
func loadErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrLoad)
}
