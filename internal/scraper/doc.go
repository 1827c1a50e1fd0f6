// Package scraper fetches and parses the restaurant locator site.
//
// A crawl starts at the state index page, discovers every city listing page
// linked from it, and walks each city's listing cards (following "next page"
// links) to build store records. Each card is read in two tiers: an embedded
// JSON-LD block when one is present, then CSS selectors for whatever that
// block did not supply. Cities that fail are logged and skipped; if nothing
// at all is collected the built-in sample dataset is returned instead.
package scraper
