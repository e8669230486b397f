// Package core provides the business logic for measurement sample imports.
//
// This package holds all domain logic independent of any transport or storage
// engine. It can be used by web handlers, the CLI, or tests without
// modification; persistence is reached only through the [Store] interface.
//
// # Architecture
//
// The package is organized around a small pipeline:
//
//   - Parser: turns a ';'-delimited stream into validated [Sample] values,
//     collecting every line error before failing.
//   - Aggregation: [Aggregate] reduces samples to a per-file [Summary].
//   - Importer: runs parse, aggregate and a single store transaction that
//     replaces all previously stored data for the file.
//   - Queries: [BuildFilters] turns a [SummaryFilter] into an ordered list of
//     clauses; [QueryService] pages summaries and reads recent samples.
//
// # Import Flow
//
//  1. Caller invokes [Importer.Import] with a file name and an io.Reader
//  2. An [ImportLimiter] slot is acquired (bounded concurrency)
//  3. Lines are read, sanitized to UTF-8, and validated
//  4. The summary is computed in one pass plus a sorted median
//  5. Inside one transaction: lock the file, delete old samples and summary,
//     insert new samples in batches, insert the summary, commit
//
// A parse or aggregation failure never opens a transaction, so the previous
// data for the file stays visible and untouched.
//
// # Errors
//
// Input problems are reported as [*ValidationError] carrying every message in
// line order. Persistence faults are wrapped and surfaced as-is; use
// [MapError] to obtain a support code for them.
package core
