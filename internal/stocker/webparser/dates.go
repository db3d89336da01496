package webparser

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

// dateSources are tried in order; the first parseable value wins.
var dateSources = []struct {
	selector string
	attr     string
}{
	{"meta[property='article:published_time']", "content"},
	{"meta[name='article:published_time']", "content"},
	{"meta[itemprop='datePublished']", "content"},
	{"meta[name='pubdate']", "content"},
	{"meta[name='publishdate']", "content"},
	{"meta[name='date']", "content"},
	{"meta[name='DC.date.issued']", "content"},
	{"time[datetime]", "datetime"},
}

// PublishDate finds the publication time of an article page. The zero time
// means no date was found.
func PublishDate(doc *goquery.Document) time.Time {
	for _, src := range dateSources {
		var found time.Time
		doc.Find(src.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw, ok := s.Attr(src.attr)
			if !ok {
				return true
			}
			if t, ok := parseDate(raw); ok {
				found = t
				return false
			}
			return true
		})
		if !found.IsZero() {
			return found
		}
	}
	return jsonLDDate(doc)
}

func jsonLDDate(doc *goquery.Document) time.Time {
	var found time.Time
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		var objs []map[string]any
		if strings.HasPrefix(raw, "[") {
			if json.Unmarshal([]byte(raw), &objs) != nil {
				return true
			}
		} else {
			var obj map[string]any
			if json.Unmarshal([]byte(raw), &obj) != nil {
				return true
			}
			objs = append(objs, obj)
			if graph, ok := obj["@graph"].([]any); ok {
				for _, g := range graph {
					if m, ok := g.(map[string]any); ok {
						objs = append(objs, m)
					}
				}
			}
		}
		for _, o := range objs {
			if v, ok := o["datePublished"].(string); ok {
				if t, ok := parseDate(v); ok {
					found = t
					return false
				}
			}
		}
		return true
	})
	return found
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
