package scraper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/tb-locations/internal/config"
	"github.com/pfrederiksen/tb-locations/internal/store"
	"golang.org/x/net/html"
)

// Source records where a field value came from
type Source int

const (
	SourceNone Source = iota
	SourceStructured
	SourceMarkup
)

func (s Source) String() string {
	switch s {
	case SourceStructured:
		return "structured"
	case SourceMarkup:
		return "markup"
	default:
		return "none"
	}
}

// Extraction is a record plus the source of each address/contact field,
// keyed by column name. Columns with no value are absent from Sources.
type Extraction struct {
	Record  store.Record
	Sources map[string]Source
}

// SourceNames renders Sources for logging, e.g. {"city": "markup"}
func (x Extraction) SourceNames() map[string]string {
	names := make(map[string]string, len(x.Sources))
	for column, src := range x.Sources {
		names[column] = src.String()
	}
	return names
}

// "Springfield, IL 62701" or "Springfield, IL"
var cityLinePattern = regexp.MustCompile(`^(.+?),\s*([A-Z]{2})\s*(\d{5})?`)

// fields is what a single tier managed to read from a card
type fields struct {
	name, address, city, state, zip, phone string
	latitude, longitude                    *float64
}

// Extractor turns a listing card into a store record
type Extractor struct {
	selectors config.Selectors
	features  []config.Feature
}

// NewExtractor creates an extractor using the configured selectors and
// feature keywords
func NewExtractor(cfg config.Config) *Extractor {
	return &Extractor{
		selectors: cfg.Selectors,
		features:  cfg.Features,
	}
}

// Extract reads one listing card. JSON-LD values are used first; selector
// matches only fill fields the JSON-LD left empty. Feature flags are always
// set.
func (e *Extractor) Extract(card *goquery.Selection) Extraction {
	out := Extraction{
		Sources: make(map[string]Source),
	}

	if sd, ok := e.structured(card); ok {
		out.fill(sd, SourceStructured)
	}
	out.fill(e.markup(card), SourceMarkup)

	e.detectFeatures(card, &out.Record)

	return out
}

// fill copies every non-empty value in f into fields of the record that
// are still empty
func (x *Extraction) fill(f fields, src Source) {
	r := &x.Record

	setText := func(column string, dst *string, v string) {
		if *dst != "" || v == "" {
			return
		}
		*dst = v
		x.Sources[column] = src
	}
	setCoord := func(column string, dst **float64, v *float64) {
		if *dst != nil || v == nil {
			return
		}
		*dst = v
		x.Sources[column] = src
	}

	setText("name", &r.Name, f.name)
	setText("address", &r.Address, f.address)
	setText("city", &r.City, f.city)
	setText("state", &r.State, f.state)
	setText("zip", &r.Zip, f.zip)
	setText("phone", &r.Phone, f.phone)
	setCoord("latitude", &r.Latitude, f.latitude)
	setCoord("longitude", &r.Longitude, f.longitude)
}

// ldText accepts a JSON string or number
type ldText string

func (t *ldText) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		*t = ldText(strings.TrimSpace(v))
	case float64:
		*t = ldText(strconv.FormatFloat(v, 'f', -1, 64))
	}
	return nil
}

// ldNumber accepts a JSON number or a numeric string
type ldNumber struct {
	value *float64
}

func (n *ldNumber) UnmarshalJSON(b []byte) error {
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		n.value = &v
	case string:
		n.value = store.ParseCoord(v)
	}
	return nil
}

type ldPlace struct {
	Name      ldText `json:"name"`
	Telephone ldText `json:"telephone"`
	Address   struct {
		StreetAddress   ldText `json:"streetAddress"`
		AddressLocality ldText `json:"addressLocality"`
		AddressRegion   ldText `json:"addressRegion"`
		PostalCode      ldText `json:"postalCode"`
	} `json:"address"`
	Geo struct {
		Latitude  ldNumber `json:"latitude"`
		Longitude ldNumber `json:"longitude"`
	} `json:"geo"`
}

// structured reads the card's first JSON-LD block. ok is false when there
// is no block or it does not decode into a place.
func (e *Extractor) structured(card *goquery.Selection) (fields, bool) {
	script := card.Find(e.selectors.StructuredData).First()
	if script.Length() == 0 {
		return fields{}, false
	}

	place, ok := decodePlace([]byte(strings.TrimSpace(script.Text())))
	if !ok {
		return fields{}, false
	}

	return fields{
		name:      string(place.Name),
		address:   string(place.Address.StreetAddress),
		city:      string(place.Address.AddressLocality),
		state:     string(place.Address.AddressRegion),
		zip:       string(place.Address.PostalCode),
		phone:     string(place.Telephone),
		latitude:  place.Geo.Latitude.value,
		longitude: place.Geo.Longitude.value,
	}, true
}

func decodePlace(data []byte) (ldPlace, bool) {
	var place ldPlace
	if len(data) == 0 {
		return place, false
	}

	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil || len(list) == 0 {
			return place, false
		}
		data = list[0]
	}

	if err := json.Unmarshal(data, &place); err != nil {
		return place, false
	}
	return place, true
}

// markup reads address fields from the card's visible elements
func (e *Extractor) markup(card *goquery.Selection) fields {
	var f fields

	if street := card.Find(e.selectors.Street).First(); street.Length() > 0 {
		f.address = strings.TrimSpace(street.Text())
	}

	if line := card.Find(e.selectors.CityLine).First(); line.Length() > 0 {
		f.city, f.state, f.zip = parseCityLine(spacedText(line))
	}

	return f
}

// parseCityLine splits "City, ST 12345". All results are empty when the
// line does not match.
func parseCityLine(line string) (city, state, zip string) {
	m := cityLinePattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", ""
	}
	return strings.TrimSpace(m[1]), m[2], m[3]
}

// spacedText joins the trimmed text nodes under sel with single spaces
func spacedText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

func (e *Extractor) detectFeatures(card *goquery.Selection, r *store.Record) {
	var labels []string
	card.Find(e.selectors.Services).Each(func(_ int, s *goquery.Selection) {
		labels = append(labels, strings.ToLower(strings.TrimSpace(s.Text())))
	})

	r.DriveThru, r.OpenLate, r.Delivery, r.Breakfast = store.No, store.No, store.No, store.No

	for _, feat := range e.features {
		found := false
		for _, label := range labels {
			if strings.Contains(label, feat.Keyword) {
				found = true
				break
			}
		}
		r.SetFeature(feat.Column, store.FlagOf(found))
	}
}
