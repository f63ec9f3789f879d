// Package core loads telemetry logger sessions into memory.
//
// A session directory holds one CSV recording per message type per network:
//
//	<session>/parsed/<network>/<message>.csv
//
// Every recording goes through the same pipeline before it becomes part of a
// [Dataset]:
//
//  1. Ingest: parse the file, index rows by the "_timestamp" column (integer
//     microseconds), drop repeated timestamps keeping the first row, sort.
//  2. Sanitize: drop rows holding a null cell ([Sanitize]).
//  3. Resample (optional): regularize onto a fixed interval ([Resample]).
//  4. Align (optional, once for the whole dataset): truncate every table to
//     the common time window.
//
// Files are processed by a bounded worker pool; alignment runs only after
// every file has been ingested.
//
// # Anomalies
//
// Nothing a single recording does can fail the build. Problems are recorded
// in one anomaly log, one entry per message:
//
//   - empty: file too small, header only, or every row null
//   - load_error: unreadable, unparseable, or not resamplable
//   - null_cleaned: rows with nulls were removed, message kept
//   - out_of_sync: alignment left the message empty and removed it
//
// [BuildReport] groups the log into a deterministic integrity report.
//
// # Queries
//
// A finished dataset is read-only. Lookups that miss return a
// [*NotFoundError] explaining whether the message was dropped by alignment,
// empty at import, failed to load, or never existed:
//
//	loader, err := core.NewLoader(core.DefaultOptions(), logger)
//	ds, err := loader.Load(ctx, "/data/2022_09_26_Vadena")
//	speed, err := ds.Column("can0", "WHEEL_SPEED", "front_left")
package core
