package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStyle_OrderAndValues(t *testing.T) {
	st := ParseStyle(" background: #fff ;border-left:4px solid #3b82f6; padding: 1rem 2rem ")
	assert.Equal(t, []string{"background", "border-left", "padding"}, st.Keys())

	v, ok := st.Get("border-left")
	assert.True(t, ok)
	assert.Equal(t, "4px solid #3b82f6", v)
	assert.Equal(t, "background: #fff; border-left: 4px solid #3b82f6; padding: 1rem 2rem", st.String())
}

func TestParseStyle_DuplicateKeepsFirstPositionLastValue(t *testing.T) {
	st := ParseStyle("color: red; margin: 0; COLOR: blue")
	assert.Equal(t, []string{"color", "margin"}, st.Keys())
	v, _ := st.Get("color")
	assert.Equal(t, "blue", v)
	assert.Equal(t, 1, st.Merged())
	assert.Zero(t, ParseStyle("color: red; margin: 0").Merged())
}

func TestParseStyle_ParenthesesAndQuotes(t *testing.T) {
	st := ParseStyle(`background: url(data:image/png;base64,AAA=); font-family: "A;B", serif`)
	assert.Equal(t, 2, st.Len())
	v, _ := st.Get("background")
	assert.Equal(t, "url(data:image/png;base64,AAA=)", v)
	v, _ = st.Get("font-family")
	assert.Equal(t, `"A;B", serif`, v)
}

func TestParseStyle_SkipsJunk(t *testing.T) {
	st := ParseStyle(";;nonsense; : red; color: red;")
	assert.Equal(t, []string{"color"}, st.Keys())
}

func TestStyle_SetRoundTrip(t *testing.T) {
	st := ParseStyle("padding: 4px; background: #fff; margin: 0")
	st.Set("background", "#fce7f3")
	st.Set("border-radius", "8px")

	again := ParseStyle(st.String())
	v, _ := again.Get("background")
	assert.Equal(t, "#fce7f3", v)
	v, _ = again.Get("padding")
	assert.Equal(t, "4px", v)
	v, _ = again.Get("margin")
	assert.Equal(t, "0", v)
	assert.Equal(t, []string{"padding", "background", "margin", "border-radius"}, again.Keys())
}

func TestStyle_Delete(t *testing.T) {
	st := ParseStyle("a: 1; b: 2; c: 3")
	assert.True(t, st.Delete("B"))
	assert.False(t, st.Delete("b"))
	assert.Equal(t, "a: 1; c: 3", st.String())
}

func TestSetElementStyle_EmptyDropsAttribute(t *testing.T) {
	n := NewElement("div")
	SetAttr(n, "style", "color: red")
	st := ElementStyle(n)
	st.Delete("color")
	SetElementStyle(n, st)
	assert.False(t, HasAttr(n, "style"))
}

func TestFontSizePx(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"32px", 32, true},
		{"2rem", 32, true},
		{"2.5em", 40, true},
		{"24pt", 32, true},
		{" 3REM !important", 48, true},
		{"xx-large", 32, true},
		{"200%", 32, true},
		{"large", 0, false},
		{"calc(1rem + 2px)", 0, false},
	}
	for _, tt := range tests {
		got, ok := FontSizePx(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.InDelta(t, tt.want, got, 0.001, tt.in)
	}
}
