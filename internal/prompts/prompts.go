// Package prompts builds the generation requests sent for analysis, report
// writing, and AI-backed edits.
package prompts

import (
	"fmt"
	"strings"

	"github.com/dgallion1/reportsmith/internal/genai"
)

// maxSourceChars bounds the source document text embedded in one prompt.
const maxSourceChars = 60000

const AnalysisPrompt = `Read the following source document carefully and produce a structured analysis.

Return these sections, in markdown:
- DOMAIN: one of cybersecurity, finance, technical, commercial, hr, legal, medical, education, other
- PRECISE TITLE: based on the actual content
- INSTITUTION / COURSE: if applicable
- DETAILED STRUCTURE: main sections and sub-parts, key concepts with exact definitions, formulas and numeric examples, described diagrams
- CONCRETE EXAMPLES: practical examples with exact figures, case studies, exercises
- SPECIALIZED VOCABULARY: technical terms, acronyms, references
- CONTEXT: document type, target level, objectives

The analysis must be specific enough that an expert could recognize this exact document.`

// Analysis asks for a structured analysis of the source text.
func Analysis(sourceText string) genai.Request {
	var sb strings.Builder
	sb.WriteString(AnalysisPrompt)
	sb.WriteString("\n\n---\n")
	sb.WriteString(clip(sourceText, maxSourceChars))
	return genai.Request{Prompt: sb.String()}
}

// Report asks for a complete HTML report following tmpl.
func Report(analysis string, tmpl ReportTemplate, profileInstructions string) genai.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a professional, self-contained HTML report of type %q based on this analysis.\n\n", tmpl.Title)
	fmt.Fprintf(&sb, "REPORT FOCUS: %s\n", tmpl.Focus)
	fmt.Fprintf(&sb, "REQUIRED SECTIONS: %s\n", strings.Join(tmpl.Sections, ", "))
	if len(tmpl.Visualizations) > 0 {
		fmt.Fprintf(&sb, "VISUALIZATIONS:\n  - %s\n", strings.Join(tmpl.Visualizations, "\n  - "))
	}
	sb.WriteString(`
STRUCTURE RULES:
- Start with <section id="hero"> containing an <h1> title and a <p> subtitle.
- Every other part is a top-level <section> with a unique id and an <h2> title.
- Use cards (div class="card") with an <h3> title for key figures and findings.
- Use inline styles and one embedded <style> block only; no external scripts.
- Use a blue accent palette; never use green, red or yellow accents.
`)
	if profileInstructions != "" {
		sb.WriteString("\nDOCUMENT PROFILE:\n")
		sb.WriteString(profileInstructions)
		sb.WriteString("\n")
	}
	sb.WriteString("\nGenerate every required section. Respond with the HTML document only.\n\n---\nANALYSIS:\n")
	sb.WriteString(clip(analysis, maxSourceChars))
	return genai.Request{Prompt: sb.String()}
}

// NewSection asks for the inner content of a new report section.
func NewSection(title, styleHints, source string) genai.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the content of a new report section titled %q.\n\n", title)
	sb.WriteString("Match the existing report styling:\n")
	sb.WriteString(styleHints)
	sb.WriteString("\nReturn an HTML fragment only: an <h2> title followed by paragraphs, lists or cards. No <html>, <head> or <body>.\n")
	writeSource(&sb, source)
	return genai.Request{Prompt: sb.String()}
}

// ModifySection asks to expand, summarize or regenerate a section's content.
func ModifySection(action, title, sectionHTML, source string) genai.Request {
	var goal string
	switch action {
	case "expand":
		goal = "Expand this section with more detail, examples and figures, keeping its structure and styling."
	case "summarize":
		goal = "Summarize this section to its essential points, keeping its title and styling."
	default:
		goal = "Rewrite this section from scratch with fresh content, keeping its title and styling."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\nSection title: %q\n\nReturn the new inner HTML of the section only, without the enclosing <section> tag.\n\n---\nCURRENT SECTION:\n%s\n", goal, title, sectionHTML)
	writeSource(&sb, source)
	return genai.Request{Prompt: sb.String()}
}

// RecreateCard asks for a replacement card that keeps the example's styling.
func RecreateCard(title, cardHTML, instructions, source string) genai.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Recreate the report card titled %q.\n", title)
	if instructions != "" {
		fmt.Fprintf(&sb, "Instructions: %s\n", instructions)
	}
	sb.WriteString("Keep the same visual style as the example below. Return the inner HTML of the card only, no explanations.\n\n---\nEXAMPLE CARD:\n")
	sb.WriteString(cardHTML)
	sb.WriteString("\n")
	writeSource(&sb, source)
	return genai.Request{Prompt: sb.String()}
}

// Enhance asks for CSS and SVG injections for a report preview.
func Enhance(reportPreview string) genai.Request {
	var sb strings.Builder
	sb.WriteString(`Improve the visual design of this HTML report without changing its text.

Return a JSON object only:
{"newCSS": "<css rules>", "svgInjections": [{"selector": "<css selector>", "position": "append|prepend|before|after", "svg": "<svg ...>...</svg>"}]}

Rules:
- At most 10 injections; target existing elements with simple selectors (tag, .class, #id, [attr]).
- Blue palette only (#3b82f6, #60a5fa, #93c5fd, #1e40af); no green, red or yellow.
- SVGs are illustrative icons or charts; no progress bars without labels.

---
REPORT:
`)
	sb.WriteString(clip(reportPreview, 8000))
	return genai.Request{Prompt: sb.String()}
}

func writeSource(sb *strings.Builder, source string) {
	if strings.TrimSpace(source) == "" {
		return
	}
	sb.WriteString("\n---\nSOURCE DOCUMENT EXCERPT:\n")
	sb.WriteString(clip(source, maxSourceChars/4))
	sb.WriteString("\n")
}

func clip(s string, n int) string {
	return genai.Clip(s, n)
}
