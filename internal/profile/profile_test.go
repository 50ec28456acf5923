package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Type
	}{
		{"academic", "We state the theorem and give a proof. The lemma follows from the hypothesis; see the bibliography.", Academic},
		{"business", "Quarterly revenue beat the budget. Profit and ROI improved across the market strategy.", Business},
		{"tutorial", "Getting started: a beginner guide. Step one of this lesson shows how to learn by example.", Tutorial},
		{"legal", "Whereas the plaintiff and defendant entered the contract herein, the clause of the statute applies.", Legal},
		{"no matches", "zebra quokka", Business},
		{"empty", "   ", Business},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text).Type)
		})
	}
}

func TestDetect_Confidence(t *testing.T) {
	p := Detect("theorem proof lemma")
	assert.Equal(t, Academic, p.Type)
	assert.Equal(t, 3, p.Matched)
	assert.InDelta(t, 3.0/13.0, p.Confidence, 1e-9)

	assert.Zero(t, Detect("").Confidence)
}

func TestDetect_TieGoesToEarlierProfile(t *testing.T) {
	// "analysis" belongs to both academic and business
	assert.Equal(t, Academic, Detect("analysis").Type)
}

func TestInstructions(t *testing.T) {
	legal := Detect("whereas herein plaintiff").Instructions()
	assert.Contains(t, legal, "DOCUMENT PROFILE: LEGAL")
	assert.Contains(t, legal, "EMOJIS: forbidden")
	assert.Contains(t, legal, "no SVG illustrations")

	tutorial := Detect("tutorial guide lesson").Instructions()
	assert.Contains(t, tutorial, "EMOJIS: allowed")
	assert.NotContains(t, tutorial, "MathJax")

	academic := Detect("theorem proof").Instructions()
	assert.Contains(t, academic, "MathJax")
	assert.Contains(t, academic, "SVG LIMIT")
	assert.Contains(t, academic, "(15% confidence)")
}
