package platform

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"

	"github.com/dealhawk/priceintel/internal/model"
)

// Selectors maps the CSS selectors a marketplace product page uses. Only
// Price is mandatory; missing optional selectors degrade the quote, not
// the fetch.
type Selectors struct {
	Price         string
	OriginalPrice string
	Availability  string
	Seller        string
}

// ScrapeProvider pulls quotes off marketplace product pages for platforms
// without a usable API. Requests are rate limited and retried with
// exponential backoff.
type ScrapeProvider struct {
	platform  model.Platform
	currency  string
	cfg       Config
	selectors Selectors
	client    *http.Client
	limiter   *rate.Limiter
}

func NewScrapeProvider(platform model.Platform, currency string, cfg Config, sel Selectors) *ScrapeProvider {
	perMin := cfg.RatePerMinute
	if perMin <= 0 {
		perMin = 10
	}
	return &ScrapeProvider{
		platform:  platform,
		currency:  currency,
		cfg:       cfg,
		selectors: sel,
		client:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
}

func (s *ScrapeProvider) Platform() model.Platform { return s.platform }

func (s *ScrapeProvider) Available() bool {
	return s.cfg.BaseURL != "" && s.selectors.Price != ""
}

func (s *ScrapeProvider) FetchLatestQuote(ctx context.Context, productID string) (*model.Quote, error) {
	if !s.Available() {
		return nil, fmt.Errorf("%s scraper not configured", s.platform)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	doc, err := s.fetchWithRetry(ctx, s.productURL(productID))
	if err != nil {
		return nil, err
	}
	return s.parseQuote(doc, productID)
}

func (s *ScrapeProvider) productURL(productID string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/" + productID
}

func (s *ScrapeProvider) fetchWithRetry(ctx context.Context, url string) (*goquery.Document, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt*attempt) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		doc, err := s.fetch(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch failed after %d attempts: %w", s.cfg.MaxRetries+1, lastErr)
}

func (s *ScrapeProvider) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	s.setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoQuote
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return doc, nil
}

func (s *ScrapeProvider) setBrowserHeaders(req *http.Request) {
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	if len(s.cfg.UserAgents) > 0 {
		ua = s.cfg.UserAgents[rand.Intn(len(s.cfg.UserAgents))]
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Connection", "keep-alive")
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func (s *ScrapeProvider) parseQuote(doc *goquery.Document, productID string) (*model.Quote, error) {
	priceText := strings.TrimSpace(doc.Find(s.selectors.Price).First().Text())
	if priceText == "" {
		return nil, ErrNoQuote
	}
	price, err := parsePrice(priceText)
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", priceText, err)
	}

	q := &model.Quote{
		ProductID:    productID,
		Platform:     s.platform,
		Price:        price,
		Currency:     s.currency,
		Availability: model.InStock,
		Source:       model.SourceScrape,
		ObservedAt:   time.Now(),
	}

	if s.selectors.OriginalPrice != "" {
		if orig, err := parsePrice(doc.Find(s.selectors.OriginalPrice).First().Text()); err == nil && orig > price {
			q.OriginalPrice = &orig
		}
	}
	if s.selectors.Availability != "" {
		q.Availability = parseAvailability(doc.Find(s.selectors.Availability).First().Text())
	}
	if s.selectors.Seller != "" {
		q.Seller = strings.TrimSpace(doc.Find(s.selectors.Seller).First().Text())
	}
	return q, nil
}

// parsePrice extracts a numeric price from display text such as
// "¥12,800" or "$1,299.99 incl. tax". It takes the first number run and
// ignores trailing text.
func parsePrice(text string) (float64, error) {
	var b strings.Builder
	started := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			started = true
			b.WriteRune(r)
		case started && r == '.':
			b.WriteRune(r)
		case started && r == ',':
			// thousands separator
		case started:
			return strconv.ParseFloat(strings.TrimRight(b.String(), "."), 64)
		}
	}
	if !started {
		return 0, fmt.Errorf("no digits found")
	}
	return strconv.ParseFloat(strings.TrimRight(b.String(), "."), 64)
}

func parseAvailability(text string) model.Availability {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return model.InStock
	case strings.Contains(t, "out of stock") || strings.Contains(t, "sold out") || strings.Contains(t, "在庫切れ") || strings.Contains(t, "売り切れ"):
		return model.OutOfStock
	case strings.Contains(t, "limited") || strings.Contains(t, "残り"):
		return model.LimitedStock
	case strings.Contains(t, "discontinued") || strings.Contains(t, "販売終了"):
		return model.Discontinued
	default:
		return model.InStock
	}
}
