// Command tb-locations collects Taco Bell store locations for California
// into a CSV table.
//
// Usage:
//
//	tb-locations [existing-csv] [--out path] [--format text|json] [--verbose]
package main

import "github.com/pfrederiksen/tb-locations/internal/cli"

func main() {
	cli.Execute()
}
