package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

type mockTransport struct {
	responses map[string]*http.Response
	err       error
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	resp, ok := m.responses[req.URL.String()]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	}
	return resp, nil
}

func htmlResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func longLine(prefix string) string {
	return prefix + strings.Repeat(" lorem ipsum dolor sit amet", 4)
}

func TestBodyFromDocument(t *testing.T) {
	long1 := longLine("First paragraph of the article body.")
	long2 := longLine("Second paragraph with enough length to keep.")
	long3 := longLine("Third paragraph rounding out the piece.")

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "keeps article paragraphs and drops chrome",
			html: fmt.Sprintf(`<html><body>
				<nav><p>%s</p></nav>
				<article><p>%s</p><p>short</p><p>%s</p><p>%s</p></article>
				<footer><p>%s</p></footer>
			</body></html>`, longLine("Menu item one"), long1, long2, long3, longLine("Footer text")),
			want: long1 + "\n" + long2 + "\n" + long3,
		},
		{
			name: "prefers main when there is no article",
			html: fmt.Sprintf(`<html><body>
				<div><p>%s</p></div>
				<main><p>%s</p><p>%s</p><p>%s</p></main>
			</body></html>`, longLine("Sidebar junk"), long1, long2, long3),
			want: long1 + "\n" + long2 + "\n" + long3,
		},
		{
			name: "drops cookie banner lines",
			html: fmt.Sprintf(`<article>
				<p>%s</p>
				<p>%s</p><p>%s</p><p>%s</p>
			</article>`, longLine("Cookie consent: we use cookies to improve"), long1, long2, long3),
			want: long1 + "\n" + long2 + "\n" + long3,
		},
		{
			name: "strips script and style content",
			html: fmt.Sprintf(`<article>
				<script>var x = %q;</script>
				<p>%s</p><p>%s</p><p>%s</p>
			</article>`, longLine("tracking payload"), long1, long2, long3),
			want: long1 + "\n" + long2 + "\n" + long3,
		},
		{
			name: "discards a body that is too short",
			html: `<article><p>` + strings.Repeat("a", 60) + `</p></article>`,
			want: "",
		},
		{
			name: "no content",
			html: `<html><body><div>hi</div></body></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BodyFromDocument(parseHTML(t, tt.html))
			if got != tt.want {
				t.Errorf("BodyFromDocument:\n got %q\nwant %q", got, tt.want)
			}
		})
	}
}

func TestBodyTextFetchError(t *testing.T) {
	e := New(&mockTransport{responses: map[string]*http.Response{}})
	if _, err := e.BodyText(context.Background(), "https://example.com/missing"); err == nil {
		t.Error("expected error for 404 page")
	}
}

func TestMainImageFromDocument(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og image wins",
			html: `<head>
				<meta property="og:image" content="https://cdn.example.com/lead.jpg">
				<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">
			</head><body><img src="/hero.png" class="hero"></body>`,
			want: "https://cdn.example.com/lead.jpg",
		},
		{
			name: "twitter card fallback",
			html: `<head><meta name="twitter:image" content="https://cdn.example.com/tw.jpg"></head>`,
			want: "https://cdn.example.com/tw.jpg",
		},
		{
			name: "link rel image_src",
			html: `<head><link rel="image_src" href="/preview.png"></head>`,
			want: "https://example.com/preview.png",
		},
		{
			name: "relative og image is resolved against the page",
			html: `<head><meta property="og:image" content="/media/lead.jpg"></head>`,
			want: "https://example.com/media/lead.jpg",
		},
		{
			name: "scored img pass prefers hero over logo",
			html: `<body>
				<img src="/logo.svg" class="site-logo">
				<img src="/images/hero-shot.jpg" class="article-hero">
			</body>`,
			want: "https://example.com/images/hero-shot.jpg",
		},
		{
			name: "data URIs are ignored",
			html: `<body><img src="data:image/gif;base64,R0lGOD"></body>`,
			want: "",
		},
		{
			name: "no image at all",
			html: `<body><p>text only</p></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MainImageFromDocument(parseHTML(t, tt.html), "https://example.com/post/1")
			if got != tt.want {
				t.Errorf("MainImageFromDocument = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDownloadImage(t *testing.T) {
	const imageURL = "https://cdn.example.com/lead.jpg"
	payload := strings.Repeat("jpegdata", 16)

	e := New(&mockTransport{responses: map[string]*http.Response{
		imageURL: {
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(payload)),
			Header:     http.Header{"Content-Type": []string{"image/jpeg"}},
		},
	}})

	dir := t.TempDir()
	got, err := e.DownloadImage(context.Background(), imageURL, dir, "ab12cd34ef")
	if err != nil {
		t.Fatalf("DownloadImage: %v", err)
	}

	want := filepath.Join(dir, "preview_ab12cd34ef.jpg")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != payload {
		t.Errorf("image content mismatch")
	}

	// No leftover partial file.
	if _, err := os.Stat(want + ".part"); !os.IsNotExist(err) {
		t.Errorf("partial file left behind: %v", err)
	}
}

func TestDownloadImageUsesCache(t *testing.T) {
	dir := t.TempDir()
	cached := filepath.Join(dir, "preview_ab12cd34ef.png")
	if err := os.WriteFile(cached, []byte("cached"), 0o600); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	// The transport would fail, proving no request is made.
	e := New(&mockTransport{err: fmt.Errorf("network down")})

	got, err := e.DownloadImage(context.Background(), "https://cdn.example.com/lead.png", dir, "ab12cd34ef")
	if err != nil {
		t.Fatalf("DownloadImage: %v", err)
	}
	if got != cached {
		t.Errorf("path = %q, want cached %q", got, cached)
	}
}

func TestDownloadImageFailureLeavesNothing(t *testing.T) {
	e := New(&mockTransport{responses: map[string]*http.Response{}})

	dir := t.TempDir()
	if _, err := e.DownloadImage(context.Background(), "https://cdn.example.com/gone.jpg", dir, "deadbeef00"); err == nil {
		t.Fatal("expected error for missing image")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("dir not empty after failed download: %v", entries)
	}
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		url         string
		contentType string
		want        string
	}{
		{"https://x.com/a.png", "", ".png"},
		{"https://x.com/a.JPEG", "", ".jpeg"},
		{"https://x.com/a.php?img=1", "image/webp", ".webp"},
		{"https://x.com/a", "image/png", ".png"},
		{"https://x.com/a", "text/html", ".jpg"},
	}

	for _, tt := range tests {
		if got := imageExtension(tt.url, tt.contentType); got != tt.want {
			t.Errorf("imageExtension(%q, %q) = %q, want %q", tt.url, tt.contentType, got, tt.want)
		}
	}
}
