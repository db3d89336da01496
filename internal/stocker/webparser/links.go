package webparser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var homepages = map[string]bool{
	"":              true,
	"index.html":    true,
	"quote":         true,
	"quotes":        true,
	"symbol":        true,
	"stock":         true,
	"stocks":        true,
	"topics":        true,
	"topic":         true,
	"sectors":       true,
	"companies":     true,
	"search":        true,
	"latest":        true,
	"market-movers": true,
	"tag":           true,
	"tags":          true,
}

// IsHomepage reports whether rawURL points at a landing page: its first path
// segment is a known section name, or it has no path at all.
func IsHomepage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	return homepages[strings.ToLower(first)]
}

// ExtractLinks returns the same-host article links of a landing page,
// resolved against base, without fragments, in document order.
func ExtractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := map[string]bool{base.String(): true}
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if !strings.EqualFold(abs.Host, base.Host) {
			return
		}
		link := abs.String()
		if seen[link] || IsHomepage(link) {
			return
		}
		seen[link] = true
		links = append(links, link)
	})
	return links
}
