// Package core implements the ENADE consolidation stages: extraction of the
// yearly microdata files, the transform that filters and enriches them, the
// dimension tables it joins against, and loading the result through a
// registered output format.
//
// The package has no transport or configuration dependencies. The pipeline
// package drives it for the CLI and the HTTP server alike.
//
// # Stages
//
//  1. [Extract] reads one file into [Record] values. The layout (early or
//     current) and the year quirks come from the file name via schema.Resolve.
//  2. [Transform] keeps the rows of eligible institutions whose presence code
//     is valid, then adds labels and joins groups and areas.
//  3. [Load] hands the [Evaluation] rows to a format from the registry.
//
// # Output Formats
//
// Formats register themselves at init time, the same way the formats
// subpackage does:
//
//	core.Register(core.FormatDefinition{
//	    Key:       "csv",
//	    Extension: ".csv",
//	    WriteFile: writeCSV,
//	})
//
// # Error Handling
//
// Stage errors wrap the sentinels in errors.go. [MapError] turns any error
// into a coded [UserMessage]:
//
//   - ETL001-ETL007: Source file errors (unreadable, columns, codes)
//   - DIM001: Dimension file errors
//   - OUT001-OUT004: Output errors (format, connection, permissions, table)
//   - RUN001-RUN004: Run errors (cancelled, timeout, busy, unknown run)
package core
