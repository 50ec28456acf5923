// Package profile guesses what kind of document a source is and turns that
// guess into style rules for the report prompt.
package profile

import (
	"fmt"
	"math"
	"strings"
)

// Type names a document profile.
type Type string

const (
	Academic Type = "academic"
	Business Type = "business"
	Tutorial Type = "tutorial"
	Legal    Type = "legal"
)

// Config holds the presentation rules for a profile.
type Config struct {
	Emojis      bool   `json:"emojis"`
	MathJax     bool   `json:"math_jax"`
	SVGStyle    string `json:"svg_style"`
	ColorScheme string `json:"color_scheme"`
	Tone        string `json:"tone"`
}

// Profile is the result of Detect.
type Profile struct {
	Type       Type    `json:"type"`
	Confidence float64 `json:"confidence"`
	Matched    int     `json:"matched"`
	Config     Config  `json:"config"`
}

type definition struct {
	typ      Type
	keywords []string
	config   Config
}

// Order matters: ties go to the earlier profile.
var definitions = []definition{
	{
		typ: Academic,
		keywords: []string{"theorem", "proof", "lemma", "bibliography", "citation", "abstract",
			"methodology", "hypothesis", "research", "study", "analysis", "equation", "formula"},
		config: Config{MathJax: true, SVGStyle: "minimal", ColorScheme: "monochrome", Tone: "formal"},
	},
	{
		typ: Business,
		keywords: []string{"quarterly", "revenue", "stakeholder", "kpi", "fiscal", "profit",
			"analysis", "market", "strategy", "financial", "budget", "roi", "investment"},
		config: Config{SVGStyle: "corporate", ColorScheme: "blue-professional", Tone: "professional"},
	},
	{
		typ: Tutorial,
		keywords: []string{"step", "how to", "guide", "learn", "tutorial", "beginner", "example",
			"introduction", "getting started", "lesson"},
		config: Config{Emojis: true, SVGStyle: "friendly", ColorScheme: "vibrant", Tone: "casual"},
	},
	{
		typ: Legal,
		keywords: []string{"whereas", "herein", "plaintiff", "defendant", "article", "statute",
			"jurisdiction", "contract", "agreement", "law", "regulation", "clause"},
		config: Config{SVGStyle: "none", ColorScheme: "strict-monochrome", Tone: "strict-formal"},
	},
}

// Default is used for empty text or when no keyword matches.
func Default() Profile {
	return Profile{Type: Business, Config: definitions[1].config}
}

// Detect scores text against each profile's keywords. A keyword counts once
// if any word contains it; multi-word keywords are matched as phrases.
// Confidence is the matched share of the winner's keywords.
func Detect(text string) Profile {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return Default()
	}
	phrase := strings.Join(words, " ")

	best, bestMatched := -1, 0
	for i, def := range definitions {
		n := 0
		for _, kw := range def.keywords {
			if matches(kw, words, phrase) {
				n++
			}
		}
		if n > bestMatched {
			best, bestMatched = i, n
		}
	}
	if best < 0 {
		return Default()
	}
	def := definitions[best]
	return Profile{
		Type:       def.typ,
		Confidence: float64(bestMatched) / float64(len(def.keywords)),
		Matched:    bestMatched,
		Config:     def.config,
	}
}

func matches(kw string, words []string, phrase string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(phrase, kw)
	}
	for _, w := range words {
		if strings.Contains(w, kw) {
			return true
		}
	}
	return false
}

// Instructions renders the profile as prompt rules.
func (p Profile) Instructions() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "DOCUMENT PROFILE: %s (%d%% confidence)\n\nAPPLY THESE RULES:\n",
		strings.ToUpper(string(p.Type)), int(math.Round(p.Confidence*100)))
	if p.Config.Emojis {
		sb.WriteString("- EMOJIS: allowed, use tastefully to help readability\n")
	} else {
		fmt.Fprintf(&sb, "- EMOJIS: forbidden, this is a %s document, use professional icons only\n", p.Type)
	}
	if p.Config.MathJax {
		sb.WriteString("- MATH: include MathJax for LaTeX formulas\n")
	}
	fmt.Fprintf(&sb, "- SVG STYLE: %s\n", p.Config.SVGStyle)
	fmt.Fprintf(&sb, "- COLOR SCHEME: %s\n", p.Config.ColorScheme)
	fmt.Fprintf(&sb, "- TONE: %s\n", p.Config.Tone)
	switch p.Config.SVGStyle {
	case "none":
		sb.WriteString("\nCRITICAL: no SVG illustrations for this document type. Clean text formatting only.\n")
	case "minimal":
		sb.WriteString("\nSVG LIMIT: at most 3 or 4 simple icons. No decorative charts.\n")
	}
	return sb.String()
}
