package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/fintel/internal/infra"
	"github.com/seenimoa/fintel/internal/logging"
)

// DefaultFeedPattern is a Google News RSS search; %s receives the escaped country.
const DefaultFeedPattern = "https://news.google.com/rss/search?q=%s+stock+market&hl=en"

// ErrNoCountry is returned when a headline lookup gets an empty country.
var ErrNoCountry = errors.New("country is required")

// Headline is one market news item.
type Headline struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Source      string `json:"source,omitempty"`
	Summary     string `json:"summary,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`

	published time.Time
}

// Headlines is the news tool payload.
type Headlines struct {
	Country   string     `json:"country"`
	Headlines []Headline `json:"headlines"`
}

// HeadlinesProvider fetches recent market headlines for a country from RSS.
type HeadlinesProvider struct {
	pattern string
	limit   int
	parser  *gofeed.Parser
	cache   *infra.Cache[*Headlines]
	limiter *infra.RateLimiter
	log     *slog.Logger
}

// NewHeadlinesProvider creates a headlines provider. pattern is a feed URL
// with one %s verb; limit caps the number of headlines returned.
func NewHeadlinesProvider(pattern string, limit int, log *slog.Logger) *HeadlinesProvider {
	if pattern == "" {
		pattern = DefaultFeedPattern
	}
	if limit <= 0 {
		limit = 5
	}
	if log == nil {
		log = logging.Discard()
	}
	return &HeadlinesProvider{
		pattern: pattern,
		limit:   limit,
		parser:  gofeed.NewParser(),
		cache:   infra.NewCache[*Headlines](10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		log:     log,
	}
}

// Lookup returns the newest headlines for a country.
func (p *HeadlinesProvider) Lookup(ctx context.Context, country string) (*Headlines, error) {
	key := NormalizeCountry(country)
	if key == "" {
		return nil, ErrNoCountry
	}
	if cached, ok := p.cache.Get(key); ok {
		return cached, nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feedURL := fmt.Sprintf(p.pattern, url.QueryEscape(key))
	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		p.log.Warn("headline feed failed", "country", key, "error", err)
		return nil, fmt.Errorf("parse RSS for %s: %w", key, err)
	}

	items := make([]Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		h := Headline{
			Title:   strings.TrimSpace(item.Title),
			Link:    item.Link,
			Source:  feed.Title,
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			h.published = *item.PublishedParsed
			h.PublishedAt = h.published.UTC().Format(time.RFC3339)
		}
		items = append(items, h)
	}

	// Newest first; undated items sink to the end.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].published.After(items[j].published)
	})
	if len(items) > p.limit {
		items = items[:p.limit]
	}

	out := &Headlines{Country: key, Headlines: items}
	p.cache.Set(key, out)
	return out, nil
}

// LookupJSON is Lookup encoded for the tool surface.
func (p *HeadlinesProvider) LookupJSON(ctx context.Context, country string) string {
	h, err := p.Lookup(ctx, country)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(h)
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
