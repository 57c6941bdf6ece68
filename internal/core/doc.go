// Package core provides the aggregation-and-rendering pipeline for academic
// reports.
//
// This package turns raw per-course grade rows into per-student academic
// records and projects those records into two output encodings: paginated
// PDF documents and XLSX workbooks. It has no HTTP dependencies and is used
// by the web handlers, the reportctl CLI, and tests without modification.
//
// # Architecture
//
// Data flows through the pipeline in one direction:
//
//	identifiers -> Aggregator -> []AggregatedRecord -> {documents | workbook} -> Sink
//
//   - Grade Scale: an immutable symbol-to-point mapping owned by the Aggregator.
//     Loaded from TOML with [LoadGradeScale] or built in via [DefaultGradeScale].
//   - Aggregator: groups grade rows by semester and computes SGPA and CGPA.
//   - Column Catalog: a declarative table of workbook columns, built once.
//   - Documents: templ components rendered to markup, printed by a [RenderEngine].
//   - Workbook: excelize stream writer, one row per valid record.
//   - Archive: one PDF per student appended to a ZIP stream in request order.
//   - Service: the orchestrator, sequencing the above for one request.
//
// # Output Commitment
//
// A [Sink] is asked for its writer only after every check that can fail
// cleanly has passed. Until [Sink.Begin] is called, any error is returned to
// the caller as a structured [Error] and nothing has been written. After it,
// failures can only be logged.
//
// # Error Handling
//
// Every pipeline failure is an [*Error] carrying one of the kind sentinels
// ([ErrValidation], [ErrNotFound], [ErrForbidden], [ErrRender], [ErrPackaging],
// [ErrRepository]). [MapError] turns any error into a [UserMessage] with a
// support code:
//
//   - VAL001-VAL005: request validation
//   - NF001-NF002: nothing to report on
//   - AUTH001: caller not entitled to a student
//   - RND001-RND003: render engine failures
//   - PKG001: archive stream failure
//   - DB001-DB003: grade repository failures
package core
