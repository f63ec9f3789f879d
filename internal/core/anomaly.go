package core

// AnomalyKind tags an Anomaly.
type AnomalyKind int

const (
	AnomalyEmpty AnomalyKind = iota
	AnomalyLoadError
	AnomalyNullCleaned
	AnomalyOutOfSync
)

// anomalyKinds lists every kind in report order.
var anomalyKinds = []AnomalyKind{AnomalyEmpty, AnomalyLoadError, AnomalyNullCleaned, AnomalyOutOfSync}

func (k AnomalyKind) String() string {
	switch k {
	case AnomalyEmpty:
		return "empty"
	case AnomalyLoadError:
		return "load_error"
	case AnomalyNullCleaned:
		return "null_cleaned"
	case AnomalyOutOfSync:
		return "out_of_sync"
	default:
		return "unknown"
	}
}

// Anomaly is one integrity issue attached to a message.
type Anomaly struct {
	Kind    AnomalyKind
	Network string
	Message string

	// Cause is set for AnomalyLoadError, and for AnomalyEmpty when the
	// message was emptied by the sanitizer.
	Cause error

	// RemovedRows and NullCells are set for AnomalyNullCleaned.
	RemovedRows int
	NullCells   int
}

// anomalyLog is the single registry of anomalies for a dataset. A message
// appears under at most one kind: recording a new anomaly replaces any
// earlier entry for the same message.
type anomalyLog []Anomaly

func (l *anomalyLog) record(a Anomaly) {
	kept := (*l)[:0]
	for _, e := range *l {
		if e.Network == a.Network && e.Message == a.Message {
			continue
		}
		kept = append(kept, e)
	}
	*l = append(kept, a)
}

// lookup returns the anomaly recorded for a message, if any.
func (l anomalyLog) lookup(network, message string) (Anomaly, bool) {
	for _, e := range l {
		if e.Network == network && e.Message == message {
			return e, true
		}
	}
	return Anomaly{}, false
}

func (l anomalyLog) count(kind AnomalyKind) int {
	n := 0
	for _, e := range l {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
