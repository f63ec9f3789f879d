package core

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader builds datasets from session directories laid out as
// <root>/<parsed>/<network>/<message>.csv.
type Loader struct {
	opts   Options
	ingest ingestConfig
	log    *zap.Logger
}

// NewLoader validates opts and returns a Loader. Validation happens here,
// before any file is touched; failures are marked ErrInvalidConfig.
// A nil logger discards output.
func NewLoader(opts Options, log *zap.Logger) (*Loader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{opts: opts, ingest: newIngestConfig(opts), log: log}, nil
}

// Options returns the validated options.
func (l *Loader) Options() Options {
	return l.opts
}

// Load reads every recording under root and returns the finished dataset.
// Per-file problems are recorded as anomalies and never fail the build; only
// an invalid root or a cancelled context returns an error.
func (l *Loader) Load(ctx context.Context, root string) (*Dataset, error) {
	started := time.Now()

	parsed := filepath.Join(root, l.opts.ParsedDir)
	if err := requireDir(root); err != nil {
		return nil, err
	}
	if err := requireDir(parsed); err != nil {
		return nil, err
	}

	d := newDataset(filepath.Base(filepath.Clean(root)), root)
	log := l.log.With(zap.String("log", d.Name), zap.String("run_id", d.RunID.String()))
	log.Info("loading log", zap.String("root", root))

	jobs, err := l.discover(d, parsed, log)
	if err != nil {
		return nil, err
	}

	results := make([]fileResult, len(jobs))

	l.transition(d, StageIngesting, log)
	err = l.parallel(ctx, len(jobs), func(i int) {
		results[i] = l.ingestFile(jobs[i], log)
	})
	if err != nil {
		return nil, err
	}

	l.transition(d, StageSanitizing, log)
	err = l.parallel(ctx, len(jobs), func(i int) {
		sanitizeResult(jobs[i], &results[i], log)
	})
	if err != nil {
		return nil, err
	}

	if l.opts.Resample {
		l.transition(d, StageResampling, log)
		err = l.parallel(ctx, len(jobs), func(i int) {
			l.resampleResult(jobs[i], &results[i], log)
		})
		if err != nil {
			return nil, err
		}
	}

	for i, job := range jobs {
		res := results[i]
		d.stats.BytesRead += res.bytesRead
		if res.anomaly != nil {
			a := *res.anomaly
			a.Network, a.Message = job.network, job.message
			d.anomalies.record(a)
		}
		if res.table != nil {
			d.networks[job.network][job.message] = res.table
		}
	}

	if l.opts.Align != AlignNone {
		l.transition(d, StageAligning, log)
		d.align(l.opts.Align, log)
	}

	for _, net := range d.networks {
		for _, t := range net {
			d.stats.Messages++
			d.stats.Rows += t.Len()
		}
	}
	d.stats.Files = len(jobs)
	d.stats.Duration = time.Since(started)
	l.transition(d, StageReady, log)

	log.Info("log loaded",
		zap.Int("networks", len(d.networks)),
		zap.Int("messages", d.stats.Messages),
		zap.Int("rows", d.stats.Rows),
		zap.Int("empty", d.anomalies.count(AnomalyEmpty)),
		zap.Int("errors", d.anomalies.count(AnomalyLoadError)),
		zap.Int("null_cleaned", d.anomalies.count(AnomalyNullCleaned)),
		zap.Int("out_of_sync", d.anomalies.count(AnomalyOutOfSync)),
		zap.Duration("elapsed", d.stats.Duration),
	)
	return d, nil
}

func (l *Loader) transition(d *Dataset, s Stage, log *zap.Logger) {
	if d.advance(s) {
		log.Debug("stage", zap.Stringer("stage", s))
	}
}

// fileJob is one recording to ingest.
type fileJob struct {
	network string
	message string
	path    string
}

// fileResult carries a recording through the pipeline. A later anomaly
// replaces an earlier one; a nil table means the message is excluded.
type fileResult struct {
	table     *Table
	anomaly   *Anomaly
	bytesRead int64
}

// discover lists networks and recordings in sorted order, applying the
// network filters and the file ignore-list.
func (l *Loader) discover(d *Dataset, parsed string, log *zap.Logger) ([]fileJob, error) {
	entries, err := os.ReadDir(parsed)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read %s", parsed), ErrInvalidRoot)
	}

	ignoreNets := toSet(l.opts.IgnoreNetworks)
	considerNets := toSet(l.opts.ConsiderNetworks)
	ignoreFiles := toSet(l.opts.IgnoreFiles)

	var jobs []fileJob
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		network := e.Name()
		if ignoreNets[network] || (len(considerNets) > 0 && !considerNets[network]) {
			d.filtered[network] = true
			log.Debug("network filtered", zap.String("network", network))
			continue
		}
		d.networks[network] = make(Network)

		dir := filepath.Join(parsed, network)
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "read network %s", network), ErrInvalidRoot)
		}
		seen := make(map[string]string)
		for _, f := range files {
			name := f.Name()
			if f.IsDir() || recordingExt(name) == "" {
				continue
			}
			if ignoreFiles[name] {
				log.Debug("file ignored", zap.String("network", network), zap.String("file", name))
				continue
			}
			message := messageName(name)
			if prev, dup := seen[message]; dup {
				log.Warn("duplicate recording for message, keeping first",
					zap.String("network", network),
					zap.String("kept", prev),
					zap.String("skipped", name))
				continue
			}
			seen[message] = name
			jobs = append(jobs, fileJob{network: network, message: message, path: filepath.Join(dir, name)})
		}
	}
	return jobs, nil
}

// parallel runs fn(0..n-1) on at most Workers goroutines and waits for all
// of them. It stops early only when ctx is cancelled.
func (l *Loader) parallel(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "load cancelled")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "load cancelled")
	}
	return nil
}

func (l *Loader) ingestFile(job fileJob, log *zap.Logger) fileResult {
	res, err := readTable(job.path, l.ingest)
	if err != nil {
		kind := AnomalyLoadError
		if errors.Is(err, ErrEmptyInput) {
			kind = AnomalyEmpty
		}
		log.Debug("message not loaded",
			zap.String("network", job.network),
			zap.String("message", job.message),
			zap.Stringer("kind", kind),
			zap.Error(err))
		return fileResult{anomaly: &Anomaly{Kind: kind, Network: job.network, Message: job.message, Cause: err}}
	}
	log.Debug("message loaded",
		zap.String("network", job.network),
		zap.String("message", job.message),
		zap.Int("rows", res.table.Len()),
		zap.Int("duplicate_timestamps", res.duplicates))
	return fileResult{table: res.table, bytesRead: res.bytesRead}
}

func sanitizeResult(job fileJob, res *fileResult, log *zap.Logger) {
	if res.table == nil {
		return
	}
	cleaned, removed, cells := Sanitize(res.table)
	if removed == 0 {
		return
	}
	if cleaned.Len() == 0 {
		res.table = nil
		res.anomaly = &Anomaly{Kind: AnomalyEmpty, Cause: errors.Newf("all %d rows contained null values", removed)}
		log.Debug("message emptied by null removal",
			zap.String("network", job.network), zap.String("message", job.message))
		return
	}
	res.table = cleaned
	res.anomaly = &Anomaly{Kind: AnomalyNullCleaned, RemovedRows: removed, NullCells: cells}
	log.Debug("null values removed",
		zap.String("network", job.network),
		zap.String("message", job.message),
		zap.Int("rows", removed),
		zap.Int("cells", cells))
}

func (l *Loader) resampleResult(job fileJob, res *fileResult, log *zap.Logger) {
	if res.table == nil {
		return
	}
	out, err := ResampleBounded(res.table, l.opts.ResampleInterval, l.opts.ResampleMode, l.opts.MaxGridPoints)
	if err != nil {
		res.table = nil
		res.anomaly = &Anomaly{Kind: AnomalyLoadError, Cause: err}
		log.Debug("resample failed",
			zap.String("network", job.network), zap.String("message", job.message), zap.Error(err))
		return
	}
	res.table = out
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "session root %s", path), ErrInvalidRoot)
	}
	if !info.IsDir() {
		return errors.Mark(errors.Newf("not a directory: %s", path), ErrInvalidRoot)
	}
	return nil
}
