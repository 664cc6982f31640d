package suggest

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		title string
		root  bool
		host  string
		want  string
	}{
		{"root picks shortest segment", "GitHub · Build and ship software", true, "github.com", "GitHub"},
		{"subpage picks longest segment", "How to use Hooks - DEV Community", false, "dev.to", "How to use Hooks"},
		{"pipe separator", "Docs | Stripe", true, "stripe.com", "Docs"},
		{"colon separator on subpage", "Tutorial: Writing parsers by hand", false, "example.com", "Writing parsers by hand"},
		{"no separator short title kept", "Hacker News", true, "news.ycombinator.com", "Hacker News"},
		{
			"no separator long root title falls back to host",
			"An exhaustively long marketing strapline that keeps going well past sixty characters",
			true, "example.com", "example.com",
		},
		{
			"no separator long subpage title kept",
			"An exhaustively long article headline that keeps going well past sixty characters",
			false, "example.com",
			"An exhaustively long article headline that keeps going well past sixty characters",
		},
		{"first separator wins", "A · B | and a much longer tail", false, "example.com", "B | and a much longer tail"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanTitle(tc.title, tc.root, tc.host))
		})
	}
}

func TestDecodeEntities(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"&amp;", "&"},
		{"&lt;tag&gt;", "<tag>"},
		{"&quot;quoted&quot;", `"quoted"`},
		{"&#39;a&#39;", "'a'"},
		{"&#x27;b&#x27;", "'b'"},
		{"&#65;&#x42;", "AB"},
		{"no entities here", "no entities here"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecodeEntities(tc.in), "input %q", tc.in)
	}
}

func TestExtractTitlePrecedence(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "https://example.com/post")

	t.Run("og wins over twitter and element", func(t *testing.T) {
		html := `<html><head>
			<meta property="og:title" content="OG Title">
			<meta name="twitter:title" content="Twitter Title">
			<title>Element Title</title>
		</head></html>`
		meta := Extract(html, u)
		assert.Equal(t, "OG Title", meta.Title)
	})

	t.Run("twitter wins over element", func(t *testing.T) {
		html := `<html><head>
			<meta name="twitter:title" content="Twitter Title">
			<title>Element Title</title>
		</head></html>`
		assert.Equal(t, "Twitter Title", Extract(html, u).Title)
	})

	t.Run("attribute order and case are irrelevant", func(t *testing.T) {
		html := `<html><head>
			<META CONTENT="Reversed" PROPERTY="OG:TITLE">
		</head></html>`
		assert.Equal(t, "Reversed", Extract(html, u).Title)
	})

	t.Run("empty falls back to hostname without www", func(t *testing.T) {
		meta := Extract("<html></html>", mustURL(t, "https://www.example.com/"))
		assert.Equal(t, "example.com", meta.Title)
	})
}

func TestExtractDescription(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "https://example.com/")

	t.Run("precedence", func(t *testing.T) {
		html := `<html><head>
			<meta name="description" content="Plain description">
			<meta property="og:description" content="OG description">
		</head></html>`
		assert.Equal(t, "OG description", Extract(html, u).Description)
	})

	t.Run("truncated at a word boundary with ellipsis", func(t *testing.T) {
		long := strings.Repeat("lorem ipsum ", 40) // ~480 chars
		html := `<html><head><meta name="description" content="` + long + `"></head></html>`
		desc := Extract(html, u).Description
		require.True(t, strings.HasSuffix(desc, "…"), "got %q", desc)
		assert.LessOrEqual(t, len([]rune(desc)), maxDescriptionRunes+1)
		assert.False(t, strings.HasSuffix(strings.TrimSuffix(desc, "…"), " "))
	})

	t.Run("missing is empty", func(t *testing.T) {
		assert.Equal(t, "", Extract("<html></html>", u).Description)
	})
}

func TestExtractTags(t *testing.T) {
	t.Parallel()

	t.Run("sources are unioned in order and deduplicated", func(t *testing.T) {
		html := `<html><head>
			<meta name="keywords" content="Go, concurrency, go">
			<meta property="article:tag" content="Networking">
			<meta property="article:tag" content="concurrency">
			<meta property="article:section" content="Engineering">
			<meta property="og:type" content="article">
		</head></html>`
		meta := Extract(html, mustURL(t, "https://example.com/blog/2024/fanout"))
		assert.Equal(t, []string{"go", "concurrency", "networking", "engineering", "article", "blog"}, meta.SuggestedTags)
	})

	t.Run("generic og:type excluded", func(t *testing.T) {
		html := `<html><head><meta property="og:type" content="website"></head></html>`
		meta := Extract(html, mustURL(t, "https://example.com/"))
		assert.Empty(t, meta.SuggestedTags)
	})

	t.Run("caps at eight and bounds length", func(t *testing.T) {
		html := `<html><head>
			<meta name="keywords" content="a,one,two,three,four,five,six,seven,eight,nine,ten,` +
			strings.Repeat("x", 40) + `">
		</head></html>`
		meta := Extract(html, mustURL(t, "https://example.com/"))
		require.LessOrEqual(t, len(meta.SuggestedTags), 8)
		for _, tag := range meta.SuggestedTags {
			assert.GreaterOrEqual(t, len(tag), 2)
			assert.LessOrEqual(t, len(tag), 29)
		}
		assert.NotContains(t, meta.SuggestedTags, "a")
	})

	t.Run("unrecognized path segments contribute nothing", func(t *testing.T) {
		meta := Extract("<html></html>", mustURL(t, "https://example.com/users/42/settings"))
		assert.Empty(t, meta.SuggestedTags)
	})

	t.Run("only the first three path segments are checked", func(t *testing.T) {
		meta := Extract("<html></html>", mustURL(t, "https://example.com/a/b/c/blog"))
		assert.Empty(t, meta.SuggestedTags)
	})
}

func TestExtractFavicon(t *testing.T) {
	t.Parallel()

	u := mustURL(t, "https://example.com/deep/page")

	t.Run("rel icon resolved against origin", func(t *testing.T) {
		html := `<html><head><link rel="icon" href="static/fav.png"></head></html>`
		assert.Equal(t, "https://example.com/static/fav.png", Extract(html, u).Favicon)
	})

	t.Run("icon outranks apple-touch-icon regardless of document order", func(t *testing.T) {
		html := `<html><head>
			<link rel="apple-touch-icon" href="/touch.png">
			<link rel="icon" href="/fav.ico">
		</head></html>`
		assert.Equal(t, "https://example.com/fav.ico", Extract(html, u).Favicon)
	})

	t.Run("shortcut icon with href before rel", func(t *testing.T) {
		html := `<html><head><link href="/legacy.ico" rel="Shortcut Icon"></head></html>`
		assert.Equal(t, "https://example.com/legacy.ico", Extract(html, u).Favicon)
	})

	t.Run("absolute href kept", func(t *testing.T) {
		html := `<html><head><link rel="icon" href="https://cdn.example.net/f.png"></head></html>`
		assert.Equal(t, "https://cdn.example.net/f.png", Extract(html, u).Favicon)
	})

	t.Run("fallback to /favicon.ico", func(t *testing.T) {
		assert.Equal(t, "https://example.com/favicon.ico", Extract("<html></html>", u).Favicon)
	})
}

func TestExtractEntityDecoding(t *testing.T) {
	t.Parallel()

	html := `<html><head><title>Ben &amp; Jerry&#39;s</title></head></html>`
	meta := Extract(html, mustURL(t, "https://example.com/flavors"))
	assert.Equal(t, "Ben & Jerry's", meta.Title)
}
