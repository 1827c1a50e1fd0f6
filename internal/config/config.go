// Package config holds the fixed settings for a locations crawl.
//
// A Config is built once (Default or FromEnv) and passed by value into the
// fetcher, extractor and crawler. Nothing in it changes during a run.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL   = "https://locations.tacobell.com"
	DefaultRegion    = "ca"
	DefaultUserAgent = "Mozilla/5.0 (compatible; CA-TB-Scraper/1.0)"
	DefaultTimeout   = 30 * time.Second
	DefaultCityDelay = 500 * time.Millisecond
	DefaultMaxPages  = 50
	DefaultOutput    = "taco_bell_california_full.csv"
)

// Feature pairs an output column with the keyword that marks it present.
type Feature struct {
	Column  string
	Keyword string
}

// Selectors lists the CSS selectors used against the locator markup.
// Each entry is a selector group; a node matches if it satisfies any member.
type Selectors struct {
	StructuredData string
	Card           string
	NextPage       string
	Street         string
	CityLine       string
	Services       string
	CityLink       string
}

// Config is the immutable crawl configuration
type Config struct {
	BaseURL   string
	Region    string
	UserAgent string
	Timeout   time.Duration
	CityDelay time.Duration
	MaxPages  int
	LogLevel  string
	Selectors Selectors
	Features  []Feature
}

// Default returns the built-in configuration for the California crawl
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Region:    DefaultRegion,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
		CityDelay: DefaultCityDelay,
		MaxPages:  DefaultMaxPages,
		LogLevel:  "INFO",
		Selectors: Selectors{
			StructuredData: `script[type="application/ld+json"]`,
			Card:           `[data-automation="store-card"], .c-location-grid-item, .js-location`,
			NextPage:       `a[aria-label*="Next"], a.pagination-next`,
			Street:         `[data-automation="address-line1"], .c-address-street-1`,
			CityLine:       `[data-automation="address-city"], .c-address-city`,
			Services:       `[data-automation^="service-"], .c-servicelist-label`,
			CityLink:       `a[href]`,
		},
		Features: []Feature{
			{Column: "drive_thru", Keyword: "drive"},
			{Column: "open_late", Keyword: "late"},
			{Column: "delivery", Keyword: "deliver"},
			{Column: "breakfast", Keyword: "breakfast"},
		},
	}
}

// FromEnv returns Default with overrides from the environment.
// A .env file in the working directory is loaded first if present.
// An invalid setting is skipped and keeps its default; the other settings
// still apply and every problem is reported in the returned error.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var errs []error

	if v := strings.TrimSpace(os.Getenv("TB_BASE_URL")); v != "" {
		u, err := url.Parse(v)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("TB_BASE_URL must be an absolute URL, got %q", v))
		} else {
			cfg.BaseURL = strings.TrimRight(v, "/")
		}
	}
	if v := strings.TrimSpace(os.Getenv("TB_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("TB_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("parsing TB_TIMEOUT: %w", err))
		case d <= 0:
			errs = append(errs, fmt.Errorf("TB_TIMEOUT must be positive, got %s", d))
		default:
			cfg.Timeout = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("TB_LOG_LEVEL")); v != "" {
		cfg.LogLevel = strings.ToUpper(v)
	}

	return cfg, errors.Join(errs...)
}

// IndexURL is the state index page, e.g. https://locations.tacobell.com/ca.html
func (c Config) IndexURL() string {
	return c.BaseURL + "/" + c.Region + ".html"
}

// RegionCode is the upper-case state code written into records
func (c Config) RegionCode() string {
	return strings.ToUpper(c.Region)
}
