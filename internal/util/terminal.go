package util

import (
	"fmt"
	"regexp"
)

var hyperlinkRe = regexp.MustCompile("\033]8;;[^\a]*\a([^\033]*)\033]8;;\a")

// MakeHyperlink wraps displayText in an OSC 8 terminal hyperlink to url.
// BEL is used as the terminator since more terminals accept it than ST.
func MakeHyperlink(url, displayText string) string {
	return fmt.Sprintf("\033]8;;%s\a%s\033]8;;\a", url, displayText)
}

// stripHyperlinks replaces OSC 8 links with their label.
func stripHyperlinks(s string) string {
	return hyperlinkRe.ReplaceAllString(s, "$1")
}

// TruncateText truncates s to maxLen runes, appending "…" if truncated.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}
