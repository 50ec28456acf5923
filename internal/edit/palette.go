package edit

import (
	"regexp"
	"strings"
)

// DefaultNeutrals are backgrounds, text and border grays left alone by recoloring.
var DefaultNeutrals = []string{
	"#ffffff", "#000000",
	"#fafafa", "#f5f5f5", "#eeeeee", "#dddddd", "#cccccc", "#999999", "#666666", "#333333",
	"#f8f9fa", "#e9ecef", "#dee2e6", "#ced4da", "#adb5bd", "#6c757d", "#495057", "#343a40", "#212529",
	"#f8fafc", "#f1f5f9", "#e2e8f0", "#cbd5e1", "#94a3b8", "#64748b", "#475569", "#334155", "#1e293b", "#0f172a",
	"#f9fafb", "#f3f4f6", "#e5e7eb", "#d1d5db", "#9ca3af", "#6b7280", "#4b5563", "#374151", "#1f2937", "#111827",
}

// DefaultNamedColors maps color names used in instructions to literals.
var DefaultNamedColors = map[string]string{
	"pink":        "#ec4899",
	"light pink":  "#f9a8d4",
	"blue":        "#3b82f6",
	"light blue":  "#93c5fd",
	"dark blue":   "#1e40af",
	"green":       "#10b981",
	"red":         "#ef4444",
	"orange":      "#f59e0b",
	"purple":      "#9333ea",
	"yellow":      "#eab308",
	"teal":        "#14b8a6",
	"cyan":        "#06b6d4",
	"indigo":      "#6366f1",
	"light green": "#86efac",
}

// Palette holds the neutral denylist and the color-name table.
type Palette struct {
	neutrals map[string]bool
	named    map[string]string
}

// DefaultPalette returns the built-in palette.
func DefaultPalette() *Palette {
	return NewPalette(DefaultNeutrals, DefaultNamedColors)
}

// NewPalette builds a palette from explicit tables.
func NewPalette(neutrals []string, named map[string]string) *Palette {
	p := &Palette{
		neutrals: make(map[string]bool, len(neutrals)),
		named:    make(map[string]string, len(named)),
	}
	for _, n := range neutrals {
		p.neutrals[normalizeHex(n)] = true
	}
	for k, v := range named {
		p.named[normalizeName(k)] = strings.TrimSpace(v)
	}
	return p
}

// With returns a copy extended with extra neutrals and name overrides.
func (p *Palette) With(neutrals []string, named map[string]string) *Palette {
	out := &Palette{
		neutrals: make(map[string]bool, len(p.neutrals)+len(neutrals)),
		named:    make(map[string]string, len(p.named)+len(named)),
	}
	for k := range p.neutrals {
		out.neutrals[k] = true
	}
	for k, v := range p.named {
		out.named[k] = v
	}
	for _, n := range neutrals {
		out.neutrals[normalizeHex(n)] = true
	}
	for k, v := range named {
		out.named[normalizeName(k)] = strings.TrimSpace(v)
	}
	return out
}

// IsNeutral reports whether a hex token is on the denylist.
func (p *Palette) IsNeutral(hex string) bool {
	return p.neutrals[normalizeHex(hex)]
}

// Resolve maps a color name to its literal. Unknown values pass through trimmed.
func (p *Palette) Resolve(color string) string {
	if v, ok := p.named[normalizeName(color)]; ok {
		return v
	}
	return strings.TrimSpace(color)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// normalizeHex lowercases a hex color and expands the #rgb shorthand.
func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 4 && s[0] == '#' {
		return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
	}
	return s
}

var (
	hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	unsafeCSS  = regexp.MustCompile(`[;{}<>]`)
)

// validColor accepts a resolved color value that is safe inside a declaration.
func validColor(v string) bool {
	if v == "" || unsafeCSS.MatchString(v) {
		return false
	}
	if strings.HasPrefix(v, "#") {
		return hexColorRe.MatchString(v)
	}
	return true
}
