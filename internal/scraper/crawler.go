package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/tb-locations/internal/config"
	"github.com/pfrederiksen/tb-locations/internal/logger"
	"github.com/pfrederiksen/tb-locations/internal/store"
)

// Crawler walks the state index and its city listing pages. Requests are
// issued one at a time, with CityDelay of idle time after each city.
type Crawler struct {
	cfg       config.Config
	fetcher   Fetcher
	extractor *Extractor
	base      *url.URL
	cityPath  *regexp.Regexp
}

// Harvest is the outcome of a full state crawl
type Harvest struct {
	Records      []store.Record
	Cities       int
	FailedCities []string
	Fallback     bool
	IndexErr     error
}

// New creates a crawler that fetches pages through fetcher
func New(cfg config.Config, fetcher Fetcher) (*Crawler, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL must be absolute: %q", cfg.BaseURL)
	}

	return &Crawler{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: NewExtractor(cfg),
		base:      base,
		cityPath:  regexp.MustCompile(`^/` + regexp.QuoteMeta(cfg.Region) + `/[^/]+/?$`),
	}, nil
}

// Collect crawls every city on the state index page. It never fails: if
// the index cannot be fetched, or no city yields a record, the sample
// dataset is returned and Fallback is set.
func (c *Crawler) Collect(ctx context.Context) *Harvest {
	h := &Harvest{}

	indexURL := c.cfg.IndexURL()
	logger.Info("fetching state index", logger.Fields{"url": indexURL})

	doc, err := c.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		logger.Error("state index fetch failed", logger.Fields{"url": indexURL}, err)
		h.IndexErr = err
		useFallback(h)
		return h
	}

	cities := c.DiscoverCities(doc)
	h.Cities = len(cities)
	logger.SetGauge("cities.discovered", float64(len(cities)))
	logger.Info("found cities", logger.Fields{"count": len(cities)})

	for i, cityURL := range cities {
		var delay time.Duration
		if i > 0 {
			delay = c.cfg.CityDelay
		}
		if err := pause(ctx, delay); err != nil {
			logger.Warn("crawl interrupted", logger.Fields{"remaining": len(cities) - i})
			break
		}

		records, err := c.CrawlCity(ctx, cityURL)
		if err != nil {
			fields := logger.Fields{"url": cityURL}
			var fetchErr *FetchError
			if errors.As(err, &fetchErr) {
				fields["status"] = fetchErr.StatusCode
				fields["timeout"] = fetchErr.Timeout()
			}
			logger.Error("skipping city", fields, err)
			logger.IncrCounter("cities.failed")
			h.FailedCities = append(h.FailedCities, cityURL)
			continue
		}

		logger.IncrCounter("cities.crawled")
		logger.AddCounter("stores.extracted", int64(len(records)))
		logger.Info("crawled city", logger.Fields{
			"url":      cityURL,
			"stores":   len(records),
			"progress": fmt.Sprintf("%d/%d", i+1, len(cities)),
		})
		h.Records = append(h.Records, records...)
	}

	if len(h.Records) == 0 {
		logger.Warn("no stores scraped, using sample data", nil)
		useFallback(h)
	}

	return h
}

// pause waits for d, returning early with the context's error if it ends
func pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func useFallback(h *Harvest) {
	h.Records = store.Fallback()
	h.Fallback = true
}

// DiscoverCities returns the sorted, de-duplicated absolute URLs of city
// listing pages linked from the state index, e.g. /ca/san-diego/
func (c *Crawler) DiscoverCities(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	cities := make([]string, 0)

	doc.Find(c.cfg.Selectors.CityLink).Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}

		switch {
		case ref.IsAbs():
			if !strings.EqualFold(ref.Host, c.base.Host) || !c.cityPath.MatchString(ref.Path) {
				return
			}
		case strings.HasPrefix(href, "/"):
			if !c.cityPath.MatchString(href) {
				return
			}
		default:
			return
		}

		abs := c.base.ResolveReference(ref).String()
		if !seen[abs] {
			seen[abs] = true
			cities = append(cities, abs)
		}
	})

	sort.Strings(cities)
	return cities
}

// CrawlCity extracts every listing card on a city page and on the pages
// reached through its "next" links. An error is returned only when the
// first page cannot be fetched; a failed follow-up page ends pagination.
func (c *Crawler) CrawlCity(ctx context.Context, cityURL string) ([]store.Record, error) {
	doc, err := c.fetcher.Fetch(ctx, cityURL)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{cityURL: true}
	records := c.extractCards(doc)

	for pages := 1; ; pages++ {
		next, ok := c.nextPage(doc)
		if !ok {
			break
		}
		if visited[next] {
			logger.Warn("pagination revisits a page, stopping", logger.Fields{"city": cityURL, "url": next})
			break
		}
		if c.cfg.MaxPages > 0 && pages >= c.cfg.MaxPages {
			logger.Warn("pagination page limit reached", logger.Fields{"city": cityURL, "limit": c.cfg.MaxPages})
			break
		}
		visited[next] = true

		doc, err = c.fetcher.Fetch(ctx, next)
		if err != nil {
			logger.Error("stopping pagination", logger.Fields{"city": cityURL, "url": next}, err)
			break
		}
		records = append(records, c.extractCards(doc)...)
	}

	return records, nil
}

func (c *Crawler) extractCards(doc *goquery.Document) []store.Record {
	records := make([]store.Record, 0)
	doc.Find(c.cfg.Selectors.Card).Each(func(_ int, card *goquery.Selection) {
		x := c.extractor.Extract(card)
		logger.Debug("extracted card", logger.Fields{
			"address": x.Record.Address,
			"sources": x.SourceNames(),
		})
		records = append(records, x.Record)
	})
	return records
}

// nextPage returns the absolute URL of the "next" link, if any
func (c *Crawler) nextPage(doc *goquery.Document) (string, bool) {
	link := doc.Find(c.cfg.Selectors.NextPage).First()
	if link.Length() == 0 {
		return "", false
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return c.base.ResolveReference(ref).String(), true
}
