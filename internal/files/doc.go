// Package files provides discovery of provider export files. Export
// identity (jurisdiction codes plus reporting period) is encoded in
// the filename; files that do not match the identity pattern are
// ignored by the pipeline.
package files
