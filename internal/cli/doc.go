// Package cli implements the command-line interface for tb-locations.
//
// The root command crawls the state locator pages, merges the result with an
// optional existing CSV, writes the final table and prints a short run
// summary as text or JSON. It always tries to write a table: when the live
// crawl yields nothing the built-in sample rows are written instead.
package cli
