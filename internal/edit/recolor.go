package edit

import (
	"fmt"
	"regexp"
	"strings"
)

var hexTokenRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{8}|[0-9a-fA-F]{6}|[0-9a-fA-F]{3})`)

// tokenSpan is the byte range of one color token in a document.
type tokenSpan struct {
	start, end int
}

// colorTokens finds hex color literals, skipping numeric character
// references (&#128202;), fragment links (href="#abc") and url(#id) references.
func colorTokens(src string) []tokenSpan {
	var out []tokenSpan
	for _, loc := range hexTokenRe.FindAllStringIndex(src, -1) {
		start, end := loc[0], loc[1]
		if end < len(src) && isIdentByte(src[end]) {
			continue
		}
		if start > 0 && (src[start-1] == '&' || isIdentByte(src[start-1])) {
			continue
		}
		before := strings.ToLower(src[max(0, start-7):start])
		if strings.HasSuffix(before, `href="`) || strings.HasSuffix(before, `href='`) ||
			strings.HasSuffix(before, "href=") || strings.HasSuffix(before, "url(") ||
			strings.HasSuffix(before, `url("`) || strings.HasSuffix(before, `url('`) {
			continue
		}
		out = append(out, tokenSpan{start, end})
	}
	return out
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// AccentColors returns the distinct non-neutral color tokens of src, most
// frequent first.
func AccentColors(src string, p *Palette) []string {
	counts := map[string]int{}
	var order []string
	for _, sp := range colorTokens(src) {
		tok := normalizeHex(src[sp.start:sp.end])
		if p.IsNeutral(tok) {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	// Stable insertion sort keeps first-seen order among equal counts.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && counts[order[j]] > counts[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// Recolor replaces every non-neutral hex color in the document with color.
// Color names resolve through the palette. Running it twice with the same
// target changes nothing the second time.
func Recolor(src, color string, p *Palette) (Result, error) {
	target := p.Resolve(color)
	if !validColor(target) {
		return Result{}, invalidf("unusable color %q", color)
	}
	targetKey := normalizeHex(target)

	var sb strings.Builder
	sb.Grow(len(src))
	last := 0
	replaced := 0
	distinct := map[string]bool{}
	for _, sp := range colorTokens(src) {
		tok := normalizeHex(src[sp.start:sp.end])
		if p.IsNeutral(tok) || tok == targetKey {
			continue
		}
		sb.WriteString(src[last:sp.start])
		sb.WriteString(target)
		last = sp.end
		replaced++
		distinct[tok] = true
	}
	if replaced == 0 {
		return Result{HTML: src, Message: "No accent colors to change", Instant: true}, nil
	}
	sb.WriteString(src[last:])

	return Result{
		HTML:    sb.String(),
		Message: fmt.Sprintf("Changed %d accent colors (%d occurrences) to %s", len(distinct), replaced, target),
		Instant: true,
		Changes: replaced,
	}, nil
}
