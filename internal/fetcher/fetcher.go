package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ContentFetcher retrieves readable page text for a URL. Best-effort: an
// empty string is a valid "no content" response, never an error.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) string
}

const maxContentChars = 5000

// Fetcher pulls a page over HTTP and extracts its visible text.
type Fetcher struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a content fetcher with a bounded request timeout.
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the URL and returns its extracted text, truncated to a
// bounded length. Any failure is logged and yields an empty string so the
// caller can fall back to snippet text.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Warn("Failed to create fetch request", zap.String("url", url), zap.Error(err))
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; profile-builder/1.0)")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Warn("Content fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("Content fetch returned non-OK status",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		f.logger.Warn("Failed to parse fetched page", zap.String("url", url), zap.Error(err))
		return ""
	}

	doc.Find("script, style, noscript, nav, footer").Remove()
	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		text = normalizeWhitespace(doc.Text())
	}

	return Truncate(text, maxContentChars)
}

// Truncate cuts s to at most n bytes, backing off to the nearest rune
// boundary so multi-byte characters are never split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
