// Package storage reads and writes the locations table as CSV.
//
// Output always has the fixed column set from store.Columns, in order, with
// a header row. Files are written to a temporary file in the destination
// directory and renamed into place, so a failed run never leaves a partial
// table behind. An existing table can be merged in first; its rows take
// priority over freshly scraped duplicates.
package storage
