// Package report renders device and user reports as PDF (gofpdf) or XLSX
// (excelize).
//
// Records are first flattened into a Snapshot of numbered blocks, so both
// formats show the same content. Documents are returned in memory; the
// HTTP layer decides where they are written and when they are removed.
package report
