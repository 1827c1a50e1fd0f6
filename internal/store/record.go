package store

import (
	"math"
	"strconv"
	"strings"
)

// Flag is a feature marker; only Yes and No are ever produced
type Flag string

const (
	Yes Flag = "yes"
	No  Flag = "no"
)

// FlagOf converts a boolean into a Flag
func FlagOf(b bool) Flag {
	if b {
		return Yes
	}
	return No
}

// Columns is the fixed output schema, in order
var Columns = []string{
	"name", "address", "city", "state", "zip", "phone",
	"latitude", "longitude",
	"drive_thru", "open_late", "delivery", "breakfast",
}

// Record is one restaurant location.
// Empty strings and nil coordinates mean the value was not found.
type Record struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Zip       string   `json:"zip"`
	Phone     string   `json:"phone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	DriveThru Flag     `json:"drive_thru"`
	OpenLate  Flag     `json:"open_late"`
	Delivery  Flag     `json:"delivery"`
	Breakfast Flag     `json:"breakfast"`
}

// HasCoordinates reports whether both latitude and longitude are set
func (r Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// SetFeature assigns the flag for a feature column.
// It returns false if column is not a feature column.
func (r *Record) SetFeature(column string, f Flag) bool {
	switch column {
	case "drive_thru":
		r.DriveThru = f
	case "open_late":
		r.OpenLate = f
	case "delivery":
		r.Delivery = f
	case "breakfast":
		r.Breakfast = f
	default:
		return false
	}
	return true
}

// Row renders the record as cells in Columns order
func (r Record) Row() []string {
	return []string{
		r.Name,
		r.Address,
		r.City,
		r.State,
		r.Zip,
		r.Phone,
		formatCoord(r.Latitude),
		formatCoord(r.Longitude),
		string(r.DriveThru),
		string(r.OpenLate),
		string(r.Delivery),
		string(r.Breakfast),
	}
}

// FromCells builds a record from a column→value map. Unknown columns are
// ignored, missing ones stay empty, and coordinates that don't parse as
// numbers are treated as missing.
func FromCells(cells map[string]string) Record {
	return Record{
		Name:      cells["name"],
		Address:   cells["address"],
		City:      cells["city"],
		State:     cells["state"],
		Zip:       cells["zip"],
		Phone:     cells["phone"],
		Latitude:  ParseCoord(cells["latitude"]),
		Longitude: ParseCoord(cells["longitude"]),
		DriveThru: Flag(cells["drive_thru"]),
		OpenLate:  Flag(cells["open_late"]),
		Delivery:  Flag(cells["delivery"]),
		Breakfast: Flag(cells["breakfast"]),
	}
}

// ParseCoord parses a coordinate, returning nil for blanks, garbage and
// non-finite values such as "NaN" or "Inf"
func ParseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Coord returns a pointer to v
func Coord(v float64) *float64 {
	return &v
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
