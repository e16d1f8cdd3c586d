// Package extract pulls readable article text and preview images out of
// web pages.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// minLineLen drops navigation crumbs and button labels.
	minLineLen = 50
	// minBodyLen rejects stub and teaser pages.
	minBodyLen = 300
)

var bannerPrefixes = []string{"cookie", "accept", "privacy"}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Extractor fetches pages and derives text and image information from them.
type Extractor struct {
	client HTTPClient
}

// New creates an Extractor with the given HTTP client.
func New(client HTTPClient) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "itnews-collector/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// BodyText fetches a page and returns its readable body text.
// An empty string with a nil error means the page had no usable body
// (too short, boilerplate only); the caller treats that as char_count 0.
func (e *Extractor) BodyText(ctx context.Context, pageURL string) (string, error) {
	doc, err := e.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return BodyFromDocument(doc), nil
}

// BodyFromDocument extracts the readable text of an already-parsed page.
// Paragraphs shorter than minLineLen characters and cookie-banner lines are
// dropped; a body under minBodyLen characters is discarded entirely.
func BodyFromDocument(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	scope := doc.Find("article")
	if scope.Length() == 0 {
		scope = doc.Find("main")
	}
	if scope.Length() == 0 {
		scope = doc.Selection
	}

	var lines []string
	scope.Find("p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		line := strings.TrimSpace(strings.ReplaceAll(s.Text(), " ", " "))
		if len(line) <= minLineLen {
			return
		}
		lower := strings.ToLower(line)
		for _, prefix := range bannerPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return
			}
		}
		lines = append(lines, line)
	})

	body := strings.Join(lines, "\n")
	if len(body) < minBodyLen {
		return ""
	}
	return body
}
