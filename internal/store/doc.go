// Package store defines the restaurant location record and the rules for
// combining record sets.
//
// Every Record renders to the same twelve columns (see Columns). Two records
// are duplicates when their DedupeKey matches: rounded coordinates when both
// are known, otherwise the lower-cased address and city. Merge keeps the
// first occurrence, so rows from a previously collected table take priority
// over newly scraped ones.
package store
