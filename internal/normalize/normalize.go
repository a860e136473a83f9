// Package normalize provides utilities for normalizing and sanitizing user input.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
	// Matches runs of whitespace.
	whitespaceRun = regexp.MustCompile(`\s+`)
	// Matches characters allowed in a shelf code besides letters and digits.
	codeSeparators = regexp.MustCompile(`[\s_./]+`)
	// htmlTagPattern detects common markup in descriptions.
	htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)
)

// Slugify converts a string to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Bangla Sahitya / Kobita" -> "bangla-sahitya-kobita".
func Slugify(s string) string {
	// Decompose accented characters, then drop what is not ASCII.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Category returns the slug a category is compared by.
// Categories with no ASCII content keep their NFC-folded lowercase form so
// that Bengali category names still match each other.
func Category(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if slug := Slugify(raw); slug != "" {
		return slug
	}
	return strings.ToLower(whitespaceRun.ReplaceAllString(norm.NFC.String(raw), "-"))
}

// Categories normalizes a list of categories, dropping blanks and duplicates.
func Categories(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		slug := Category(c)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// PhysicalCode canonicalizes the label stuck on a physical copy so that
// "ap-0012", "AP 0012" and "ＡＰ－００１２" all identify the same book.
func PhysicalCode(raw string) string {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	s = strings.ToUpper(s)
	s = codeSeparators.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Tags normalizes free-form tags to slugs.
func Tags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		slug := Slugify(t)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// containsHTML checks if a string appears to contain HTML markup.
func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Description converts an HTML book description to Markdown.
// Plain text is returned trimmed and otherwise unchanged.
func Description(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !containsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}

// StripHTML removes markup and returns plain text with whitespace collapsed.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(whitespaceRun.ReplaceAllString(html.UnescapeString(s), " "))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(buf.String(), " "))
}

// extractText recursively collects text nodes, skipping script and style.
func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString(" ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			buf.WriteString(" ")
		}
	}
}

// Message prepares a handover message for storage: markup stripped,
// NFC-normalized, null bytes removed. ok is false when the result is
// empty or longer than maxRunes.
func Message(raw string, maxRunes int) (msg string, ok bool) {
	msg = sanitizeString(norm.NFC.String(StripHTML(raw)))
	n := utf8.RuneCountInString(msg)
	return msg, n >= 1 && n <= maxRunes
}

// Username lowercases and trims a login name.
func Username(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Email lowercases and trims an email address.
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// sanitizeString removes null bytes, which break SQLite text columns and JSON.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
