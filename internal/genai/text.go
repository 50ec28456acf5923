package genai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wholeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	innerFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n(.*?)```")
)

// StripCodeFence unwraps a reply enclosed in a markdown code fence, or the
// first fenced block of a reply that mixes prose and code.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := wholeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	if m := innerFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

// TrimToMarkup drops any explanatory prose before the first tag.
func TrimToMarkup(s string) string {
	s = StripCodeFence(s)
	if i := strings.IndexByte(s, '<'); i > 0 {
		s = s[i:]
	} else if i < 0 {
		return ""
	}
	if j := strings.LastIndexByte(s, '>'); j >= 0 {
		s = s[:j+1]
	}
	return strings.TrimSpace(s)
}

// ExtractJSON returns the outermost JSON object of a reply.
func ExtractJSON(s string) string {
	s = StripCodeFence(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// Truncate shortens s to at most n bytes for logs and error snippets,
// cutting on a rune boundary.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeCut(s, n)] + "..."
}

// Clip is Truncate without the ellipsis.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:runeCut(s, n)]
}

func runeCut(s string, n int) int {
	if n < 0 {
		return 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
