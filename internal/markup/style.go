package markup

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Style is the ordered declaration list of one inline style attribute.
// Property names compare case-insensitively and appear at most once.
type Style struct {
	decls  []declaration
	merged int
}

type declaration struct {
	prop  string
	value string
}

// ParseStyle parses an inline style attribute. A property declared twice
// keeps its first position and its last value.
func ParseStyle(s string) Style {
	var st Style
	for _, raw := range splitDeclarations(s) {
		prop, value, ok := strings.Cut(raw, ":")
		if !ok {
			continue
		}
		prop = strings.TrimSpace(prop)
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		if st.Has(prop) {
			st.merged++
		}
		st.Set(prop, value)
	}
	return st
}

// splitDeclarations splits on ';' outside parentheses and quotes, so
// url(data:...;base64,...) survives intact.
func splitDeclarations(s string) []string {
	var out []string
	depth := 0
	var quote rune
	start := 0
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func (s *Style) index(prop string) int {
	for i, d := range s.decls {
		if strings.EqualFold(d.prop, prop) {
			return i
		}
	}
	return -1
}

// Get returns the value of prop.
func (s Style) Get(prop string) (string, bool) {
	if i := s.index(prop); i >= 0 {
		return s.decls[i].value, true
	}
	return "", false
}

// Merged reports how many duplicate declarations ParseStyle collapsed.
func (s Style) Merged() int { return s.merged }

// Has reports whether prop is declared.
func (s Style) Has(prop string) bool { return s.index(prop) >= 0 }

// Set updates prop in place or appends it.
func (s *Style) Set(prop, value string) {
	if i := s.index(prop); i >= 0 {
		s.decls[i].value = value
		return
	}
	s.decls = append(s.decls, declaration{prop: prop, value: value})
}

// Delete removes prop and reports whether it was present.
func (s *Style) Delete(prop string) bool {
	i := s.index(prop)
	if i < 0 {
		return false
	}
	decls := make([]declaration, 0, len(s.decls)-1)
	decls = append(decls, s.decls[:i]...)
	s.decls = append(decls, s.decls[i+1:]...)
	return true
}

// Keys returns the declared properties in order.
func (s Style) Keys() []string {
	keys := make([]string, len(s.decls))
	for i, d := range s.decls {
		keys[i] = d.prop
	}
	return keys
}

// Len returns the number of declarations.
func (s Style) Len() int { return len(s.decls) }

// String serializes the declarations as "prop: value; prop: value".
func (s Style) String() string {
	parts := make([]string, 0, len(s.decls))
	for _, d := range s.decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

// ElementStyle parses the style attribute of n.
func ElementStyle(n *html.Node) Style {
	return ParseStyle(Attr(n, "style"))
}

// SetElementStyle writes s back to n, dropping the attribute when s is empty.
func SetElementStyle(n *html.Node, s Style) {
	if s.Len() == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", s.String())
}

// FontSizePx converts a CSS font-size value to pixels, assuming a 16px root.
func FontSizePx(v string) (float64, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.TrimSpace(strings.TrimSuffix(v, "!important"))
	switch v {
	case "x-large":
		return 24, true
	case "xx-large":
		return 32, true
	case "xxx-large":
		return 48, true
	}
	end := 0
	for end < len(v) && (v[end] == '.' || v[end] == '-' || (v[end] >= '0' && v[end] <= '9')) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	num, err := strconv.ParseFloat(v[:end], 64)
	if err != nil {
		return 0, false
	}
	switch strings.TrimSpace(v[end:]) {
	case "px", "":
		return num, true
	case "rem", "em":
		return num * 16, true
	case "pt":
		return num * 4 / 3, true
	case "%":
		return num / 100 * 16, true
	}
	return 0, false
}
