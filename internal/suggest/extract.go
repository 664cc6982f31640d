package suggest

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extraction is order-sensitive: each field tries a fixed chain of
// sources and the first hit wins. The orderings here are the contract.

const (
	maxDescriptionRunes = 300
	maxTags             = 8
	minTagLen           = 2
	maxTagLen           = 29
	longTitleThreshold  = 60
)

// titleSeparators are scanned in order; the first one present in the
// title is the one used for splitting.
var titleSeparators = []string{"·", "|", "—", "–", "-", ":"}

// genericOGTypes are og:type values too vague to be useful as tags.
var genericOGTypes = map[string]struct{}{
	"website":         {},
	"webpage":         {},
	"object":          {},
	"article:section": {},
}

// pathVocabulary maps URL path segments to content-category tags. Only
// recognized segments contribute; everything else is ignored.
var pathVocabulary = map[string]struct{}{
	"blog": {}, "blogs": {}, "docs": {}, "documentation": {},
	"tutorial": {}, "tutorials": {}, "guide": {}, "guides": {},
	"article": {}, "articles": {}, "news": {}, "reference": {},
	"recipes": {}, "recipe": {}, "learn": {}, "courses": {},
	"course": {}, "research": {}, "projects": {}, "examples": {},
	"api": {}, "wiki": {}, "video": {}, "videos": {}, "podcast": {},
}

// Extract derives preview metadata from an HTML document. It never
// fails: unparseable input degrades to a hostname-only result.
func Extract(htmlSrc string, pageURL *url.URL) Metadata {
	host := displayHost(pageURL)
	origin := pageOrigin(pageURL)
	root := isRootPath(pageURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlSrc))
	if err != nil {
		return Metadata{
			Title:         host,
			SuggestedTags: []string{},
			Favicon:       origin + "/favicon.ico",
		}
	}

	meta := collectMeta(doc)

	return Metadata{
		Title:         extractTitle(doc, meta, root, host),
		Description:   extractDescription(meta),
		SuggestedTags: extractTags(meta, pageURL),
		Favicon:       extractFavicon(doc, pageURL, origin),
	}
}

// pageMeta indexes <meta> tags by their lowercased name/property. The
// DOM parser makes lookups attribute-order-agnostic for free.
type pageMeta struct {
	content     map[string]string
	articleTags []string
}

func collectMeta(doc *goquery.Document) pageMeta {
	meta := pageMeta{content: make(map[string]string)}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr("property")
		if !ok || key == "" {
			key, _ = s.Attr("name")
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return
		}
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		if key == "article:tag" {
			meta.articleTags = append(meta.articleTags, content)
			return
		}
		if _, seen := meta.content[key]; !seen {
			meta.content[key] = content
		}
	})
	return meta
}

func extractTitle(doc *goquery.Document, meta pageMeta, root bool, host string) string {
	title := meta.content["og:title"]
	if title == "" {
		title = meta.content["twitter:title"]
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	title = strings.TrimSpace(DecodeEntities(title))
	if title == "" {
		return host
	}
	return CleanTitle(title, root, host)
}

// CleanTitle strips site-name boilerplate. For a site's root page the
// shortest separator segment usually is the site name; on any other
// page the longest segment is the page-specific part.
func CleanTitle(title string, root bool, host string) string {
	for _, sep := range titleSeparators {
		if !strings.Contains(title, sep) {
			continue
		}
		var segments []string
		for _, part := range strings.Split(title, sep) {
			if part = strings.TrimSpace(part); part != "" {
				segments = append(segments, part)
			}
		}
		if len(segments) == 0 {
			break
		}
		pick := segments[0]
		for _, seg := range segments[1:] {
			if root && len(seg) < len(pick) {
				pick = seg
			}
			if !root && len(seg) > len(pick) {
				pick = seg
			}
		}
		return pick
	}
	if root && len(title) > longTitleThreshold {
		return host
	}
	return title
}

func extractDescription(meta pageMeta) string {
	desc := meta.content["og:description"]
	if desc == "" {
		desc = meta.content["description"]
	}
	if desc == "" {
		desc = meta.content["twitter:description"]
	}
	return truncateAtWord(strings.TrimSpace(DecodeEntities(desc)), maxDescriptionRunes)
}

// truncateAtWord cuts s to at most limit runes, backing up to the
// nearest preceding word boundary and appending an ellipsis.
func truncateAtWord(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + "…"
}

func extractTags(meta pageMeta, pageURL *url.URL) []string {
	var candidates []string

	for _, kw := range strings.Split(meta.content["keywords"], ",") {
		candidates = append(candidates, kw)
	}
	candidates = append(candidates, meta.articleTags...)
	if section := meta.content["article:section"]; section != "" {
		candidates = append(candidates, section)
	}
	if ogType := strings.ToLower(meta.content["og:type"]); ogType != "" {
		if _, generic := genericOGTypes[ogType]; !generic {
			candidates = append(candidates, ogType)
		}
	}
	if pageURL != nil {
		segments := strings.FieldsFunc(pageURL.Path, func(r rune) bool { return r == '/' })
		if len(segments) > 3 {
			segments = segments[:3]
		}
		for _, seg := range segments {
			if _, known := pathVocabulary[strings.ToLower(seg)]; known {
				candidates = append(candidates, seg)
			}
		}
	}

	tags := make([]string, 0, maxTags)
	seen := make(map[string]struct{})
	for _, raw := range candidates {
		tag := normalizeTag(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// normalizeTag lowercases and strips everything outside word, space,
// and hyphen characters, then applies the length bounds.
func normalizeTag(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(DecodeEntities(raw)))
	var b strings.Builder
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '_', r == ' ', r == '-':
			b.WriteRune(r)
		}
	}
	tag := strings.TrimSpace(b.String())
	if len(tag) < minTagLen || len(tag) > maxTagLen {
		return ""
	}
	return tag
}

// faviconRels in precedence order; within one rel the first matching
// link in document order wins.
var faviconRels = []string{"icon", "shortcut icon", "apple-touch-icon"}

func extractFavicon(doc *goquery.Document, pageURL *url.URL, origin string) string {
	for _, want := range faviconRels {
		href := ""
		doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			rel := strings.Join(strings.Fields(strings.ToLower(s.AttrOr("rel", ""))), " ")
			if rel != want {
				return true
			}
			if h := strings.TrimSpace(s.AttrOr("href", "")); h != "" {
				href = h
				return false
			}
			return true
		})
		if href == "" {
			continue
		}
		if resolved := resolveAgainstOrigin(href, pageURL); resolved != "" {
			return resolved
		}
	}
	return origin + "/favicon.ico"
}

// resolveAgainstOrigin resolves href relative to the page's origin (not
// its path): a site favicon lives at the root regardless of which page
// referenced it.
func resolveAgainstOrigin(href string, pageURL *url.URL) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if pageURL == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	base := &url.URL{Scheme: pageURL.Scheme, Host: pageURL.Host, Path: "/"}
	return base.ResolveReference(ref).String()
}

// DecodeEntities resolves HTML character references, both the named
// set (&amp; &lt; &gt; &quot; &#39; &#x27;) and numeric forms.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}

func isRootPath(u *url.URL) bool {
	return u == nil || u.Path == "" || u.Path == "/"
}

func displayHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func pageOrigin(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
