package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// OutputFormat specifies the summary format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult summarizes a completed run
type OutputResult struct {
	SavedAt      time.Time              `json:"saved_at"`
	Path         string                 `json:"path"`
	Rows         int                    `json:"rows"`
	Scraped      int                    `json:"scraped"`
	Cities       int                    `json:"cities"`
	FailedCities []string               `json:"failed_cities,omitempty"`
	Fallback     bool                   `json:"fallback"`
	IndexError   string                 `json:"index_error,omitempty"`
	Merged       bool                   `json:"merged"`
	Existing     int                    `json:"existing_rows"`
	Metrics      map[string]interface{} `json:"metrics,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	fmt.Fprintf(w, "Saved %d rows → %s\n", result.Rows, result.Path)

	if result.Fallback {
		if result.IndexError != "" {
			fmt.Fprintf(w, "  State index unavailable (%s); wrote sample data.\n", result.IndexError)
		} else {
			fmt.Fprintln(w, "  No stores scraped; wrote sample data.")
		}
	} else {
		fmt.Fprintf(w, "  Scraped %d stores from %d cities", result.Scraped, result.Cities)
		if n := len(result.FailedCities); n > 0 {
			fmt.Fprintf(w, " (%d failed)", n)
		}
		fmt.Fprintln(w)
	}

	if result.Merged {
		fmt.Fprintf(w, "  Merged with %d existing rows\n", result.Existing)
	}

	if !verbose {
		return nil
	}

	for _, city := range result.FailedCities {
		fmt.Fprintf(w, "  FAILED: %s\n", city)
	}

	if counters, ok := result.Metrics["counters"].(map[string]int64); ok && len(counters) > 0 {
		names := make([]string, 0, len(counters))
		for name := range counters {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(w, "\nCounters:")
		for _, name := range names {
			fmt.Fprintf(w, "  %-20s %d\n", name, counters[name])
		}
	}

	return nil
}
