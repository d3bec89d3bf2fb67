package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// rewrite is one regexp substitution applied to description markup.
type rewrite struct {
	re   *regexp.Regexp
	with string
}

// Applied in order. Block tags become line breaks, list items become bullets.
var rewrites = []rewrite{
	{regexp.MustCompile(`\r\n?`), "\n"},
	{regexp.MustCompile(`(?i)<br\s*/?\s*>`), "\n"},
	{regexp.MustCompile(`(?i)</(?:p|div|h[1-6]|blockquote|pre|table|tr)\s*>`), "\n\n"},
	{regexp.MustCompile(`(?i)<(?:p|div|h[1-6]|blockquote|pre|table|tr)(?:\s[^>]*)?>`), "\n"},
	{regexp.MustCompile(`(?i)</?(?:ul|ol)(?:\s[^>]*)?>`), ""},
	{regexp.MustCompile(`(?i)<li(?:\s[^>]*)?>`), "\n• "},
	{regexp.MustCompile(`(?i)</li\s*>`), ""},
}

var (
	linkRe     = regexp.MustCompile(`(?is)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>(.*?)</a\s*>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	spacesRe   = regexp.MustCompile(`[^\S\n]+`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText flattens an event description to plain terminal text.
// Links become OSC 8 hyperlinks whose label is cut to linkWidth runes
// (linkWidth <= 0 keeps the full label).
func HTMLToText(s string, linkWidth int) string {
	if s == "" {
		return s
	}
	for _, r := range rewrites {
		s = r.re.ReplaceAllString(s, r.with)
	}

	s = linkRe.ReplaceAllStringFunc(s, func(m string) string {
		parts := linkRe.FindStringSubmatch(m)
		href := unwrapRedirect(html.UnescapeString(parts[1]))
		label := strings.TrimSpace(tagRe.ReplaceAllString(parts[2], ""))
		if label == "" {
			label = href
		}
		return MakeHyperlink(href, TruncateText(html.UnescapeString(label), linkWidth))
	})

	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacesRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
		if strings.HasPrefix(lines[i], "• ") {
			lines[i] = "  " + lines[i]
		}
	}
	s = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// Summary flattens s to a single line of at most width runes, for agenda rows.
func Summary(s string, width int) string {
	plain := tagRe.ReplaceAllString(HTMLToText(s, 0), "")
	plain = stripHyperlinks(plain)
	plain = strings.Join(strings.Fields(plain), " ")
	return TruncateText(plain, width)
}

// unwrapRedirect extracts the real URL from Google redirect wrappers
// like https://www.google.com/url?q=REAL_URL&...
func unwrapRedirect(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Host == "www.google.com" && u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	}
	return rawURL
}
