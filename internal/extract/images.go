package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true,
}

// MainImage fetches a page and returns the URL of its main image, or an
// empty string when none can be found. Absence is not an error.
func (e *Extractor) MainImage(ctx context.Context, pageURL string) (string, error) {
	doc, err := e.fetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return MainImageFromDocument(doc, pageURL), nil
}

// MainImageFromDocument looks for the main image of an already-parsed page:
// OpenGraph and Twitter card metadata first, then rel=image_src, then a
// scored pass over <img> tags.
func MainImageFromDocument(doc *goquery.Document, pageURL string) string {
	for _, prop := range []string{"og:image", "twitter:image", "twitter:image:src"} {
		sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, prop, prop)
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			return resolveURL(pageURL, content)
		}
	}

	if href, ok := doc.Find(`link[rel="image_src"]`).First().Attr("href"); ok && href != "" {
		return resolveURL(pageURL, href)
	}

	best := ""
	bestScore := -10
	doc.Find("img").Each(func(i int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		if src == "" {
			src, _ = img.Attr("data-original")
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}

		class, _ := img.Attr("class")
		id, _ := img.Attr("id")
		attrs := strings.ToLower(class + " " + id + " " + src)

		score := 0
		for _, bad := range []string{"logo", "icon", "sprite", "avatar", "advert", "ads"} {
			if strings.Contains(attrs, bad) {
				score -= 5
				break
			}
		}
		for _, good := range []string{"hero", "cover", "main", "featured", "article", "post", "header"} {
			if strings.Contains(attrs, good) {
				score += 5
				break
			}
		}
		// Earlier in the document is more likely the lead image.
		if early := 5 - i/2; early > 0 {
			score += early
		}

		if score > bestScore {
			bestScore = score
			best = resolveURL(pageURL, src)
		}
	})

	return best
}

// DownloadImage saves an image as <destDir>/preview_<id>.<ext> and returns
// the local path. An already-downloaded image is reused.
func (e *Extractor) DownloadImage(ctx context.Context, imageURL, destDir, id string) (string, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}

	if cached := findCached(destDir, id); cached != "" {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "itnews-collector/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ext := imageExtension(imageURL, resp.Header.Get("Content-Type"))
	dest := filepath.Join(destDir, "preview_"+id+ext)

	// Write to a temp file first so a failed download never leaves a
	// truncated image behind.
	tmp := dest + ".part"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a hex id
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename image: %w", err)
	}

	return dest, nil
}

func findCached(destDir, id string) string {
	matches, err := filepath.Glob(filepath.Join(destDir, "preview_"+id+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	for _, m := range matches {
		if imageExtensions[strings.ToLower(filepath.Ext(m))] {
			return m
		}
	}
	return ""
}

func imageExtension(imageURL, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); imageExtensions[ext] {
			return ext
		}
	}
	switch {
	case strings.Contains(contentType, "image/jpeg"), strings.Contains(contentType, "image/jpg"):
		return ".jpg"
	case strings.Contains(contentType, "image/png"):
		return ".png"
	case strings.Contains(contentType, "image/webp"):
		return ".webp"
	case strings.Contains(contentType, "image/gif"):
		return ".gif"
	}
	return ".jpg"
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
