// Package dataprocessing implements the core of the FDIC State Tables
// pipeline: the variable catalog, the export-format parser, and the
// record combiner.
//
// An export file is a semi-structured, human-report-style CSV covering
// up to three jurisdictions for one reporting period. The parser reads
// its fixed positional layout into MetricObservations; the combiner
// merges observations from many files into one normalized table keyed
// by (jurisdiction, period), with a deterministic sort and a uniform
// column shape.
//
// All processing is synchronous and batch-oriented. Each file parse is
// a pure function of the file contents; a malformed file is logged and
// skipped without aborting the batch.
package dataprocessing
