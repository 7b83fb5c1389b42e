// Package scrape fetches web pages and extracts readable article text for
// items submitted by URL.
package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const (
	defaultFetchTimeout = 30 * time.Second
	minContentLength    = 50
	minParagraphLength  = 20
)

const userAgent = "cardpress-crawler/1.0"

// nonContentSelector matches page chrome that should never count as article text.
const nonContentSelector = "header, footer, nav, aside, .header, .footer, .navigation, .sidebar, .menu, script, style"

// Page is the readable content extracted from a web page.
type Page struct {
	Title       string
	Text        string
	Description string
	Author      string
	PublishedAt *time.Time
}

// Scraper fetches a page and extracts its readable content.
type Scraper interface {
	FetchPage(ctx context.Context, pageURL string) (*Page, error)
}

// HTTPScraper implements Scraper over plain HTTP with goquery parsing.
type HTTPScraper struct {
	client *http.Client
	logger logger.Logger
}

// NewHTTPScraper creates a scraper with the given fetch timeout. A zero
// timeout falls back to the default.
func NewHTTPScraper(timeout time.Duration, log logger.Logger) *HTTPScraper {
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPScraper{
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

// FetchPage retrieves pageURL and extracts title, article text and metadata.
func (s *HTTPScraper) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidInput, pageURL)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", models.ErrFeedUnreachable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", pageURL, err)
	}

	page := &Page{
		Title:       extractTitle(doc),
		Text:        extractText(doc),
		Description: extractMeta(doc, "description"),
		Author:      extractMeta(doc, "author"),
	}
	if page.Description == "" {
		page.Description = extractMeta(doc, "og:description")
	}
	if dateStr := extractMeta(doc, "article:published_time"); dateStr != "" {
		if t, parseErr := time.Parse(time.RFC3339, dateStr); parseErr == nil {
			page.PublishedAt = &t
		}
	}

	s.logger.Debug("scraped page",
		logger.String("url", pageURL),
		logger.Int("text_length", len(page.Text)))

	return page, nil
}

// extractTitle tries OG title, the title tag, then the first h1.
func extractTitle(doc *goquery.Document) string {
	if og := extractMeta(doc, "og:title"); og != "" {
		return og
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractText walks common content containers before falling back to the
// body's paragraphs.
func extractText(doc *goquery.Document) string {
	fallbackSelectors := []string{
		"article",
		"main",
		".content",
		".post-content",
		".entry-content",
		"[role='main']",
		"[role='article']",
	}

	for _, sel := range fallbackSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		container.Find(nonContentSelector).Remove()
		text := strings.TrimSpace(container.Text())
		if len(text) > minContentLength {
			return collapseWhitespace(text)
		}
	}

	return extractBodyParagraphs(doc)
}

func extractBodyParagraphs(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}
	body.Find(nonContentSelector).Remove()

	paragraphs := body.Find("p")
	if paragraphs.Length() == 0 {
		return collapseWhitespace(strings.TrimSpace(body.Text()))
	}

	var parts []string
	paragraphs.Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > minParagraphLength {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return collapseWhitespace(strings.TrimSpace(body.Text()))
	}
	return strings.Join(parts, "\n\n")
}

// extractMeta reads a meta tag by property attribute first, then name.
func extractMeta(doc *goquery.Document, property string) string {
	if v := doc.Find(fmt.Sprintf("meta[property='%s']", property)).AttrOr("content", ""); v != "" {
		return v
	}
	return doc.Find(fmt.Sprintf("meta[name='%s']", property)).AttrOr("content", "")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
