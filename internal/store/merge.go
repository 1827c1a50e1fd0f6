package store

import (
	"fmt"
	"strings"
)

// DedupeKey identifies a location for duplicate detection.
// Coordinates win when both are present; otherwise the normalized
// address and city are used.
func DedupeKey(r Record) string {
	if r.HasCoordinates() {
		return fmt.Sprintf("%.6f,%.6f", *r.Latitude, *r.Longitude)
	}
	address := strings.ToLower(strings.TrimSpace(r.Address))
	city := strings.ToLower(strings.TrimSpace(r.City))
	return address + "|" + city
}

// Dedupe keeps the first record seen for each DedupeKey, preserving order
func Dedupe(records []Record) []Record {
	seen := make(map[string]bool, len(records))
	unique := make([]Record, 0, len(records))
	for _, r := range records {
		key := DedupeKey(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}
	return unique
}

// Merge appends fresh records after existing ones and drops duplicates,
// so an existing row always beats a newly scraped one with the same key.
func Merge(existing, fresh []Record) []Record {
	combined := make([]Record, 0, len(existing)+len(fresh))
	combined = append(combined, existing...)
	combined = append(combined, fresh...)
	return Dedupe(combined)
}

// FillState sets State to code on every record that has none
func FillState(records []Record, code string) {
	for i := range records {
		if strings.TrimSpace(records[i].State) == "" {
			records[i].State = code
		}
	}
}
