package stringutils

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const ellipsis = "..."

var multiSpacePattern = regexp.MustCompile(`\s+`)

// StripTags returns the text content of an HTML fragment. Plain text passes through unchanged.
func StripTags(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	return doc.Text()
}

// CollapseWhitespace replaces every run of whitespace with a single space and trims the result.
func CollapseWhitespace(content string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(content, " "))
}

// TruncateTitle cuts title to maxLen-3 runes and appends "..." when it is longer than maxLen runes.
// A maxLen too small to hold the ellipsis cuts to maxLen runes without one.
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	if maxLen < len(ellipsis) {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// Preview returns the first n runes of content followed by "..." when content is longer.
func Preview(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + ellipsis
}

// CleanTitle strips markup, collapses whitespace and truncates to maxLen.
func CleanTitle(content string, maxLen int) string {
	cleaned := CollapseWhitespace(StripTags(content))
	if cleaned == "" {
		return ""
	}
	return TruncateTitle(cleaned, maxLen)
}
