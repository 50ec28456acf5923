package resolve

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
)

// Operator names.
const (
	OpChangeColor     = "change_color"
	OpChangeCardStyle = "change_card_style"
	OpChangeBarColor  = "change_bar_color"
	OpAddIcon         = "add_icon"
	OpDeleteCard      = "delete_card"
	OpMoveSection     = "move_section"
	OpAddSection      = "add_section"
	OpModifySection   = "modify_section"
	OpRecreateCard    = "recreate_card"
)

// Command is one validated operator call. The set of implementations is closed.
type Command interface {
	Operator() string
	command()
}

// ChangeColor recolors every accent color of the report.
type ChangeColor struct {
	NewColor string
}

// ChangeCardStyle sets one inline style property on a card.
type ChangeCardStyle struct {
	SearchText    string
	StyleProperty string
	StyleValue    string
}

// ChangeBarColor recolors the left accent bar of a card.
type ChangeBarColor struct {
	SearchText string
	NewColor   string
}

// AddIcon adds an icon next to a card title.
type AddIcon struct {
	SearchText string
	Icon       string
	Position   string
}

// DeleteCard removes a card.
type DeleteCard struct {
	SearchText string
}

// MoveSection moves a section to a new index.
type MoveSection struct {
	SectionIndex int
	NewPosition  int
}

// AddSection inserts a new section.
type AddSection struct {
	Title           string
	Position        int
	GenerateContent bool
}

// ModifySection deletes, expands, summarizes or regenerates a section.
type ModifySection struct {
	SectionIndex int
	Action       string
}

// RecreateCard regenerates a card in its current style.
type RecreateCard struct {
	SearchText   string
	Instructions string
}

func (ChangeColor) Operator() string     { return OpChangeColor }
func (ChangeCardStyle) Operator() string { return OpChangeCardStyle }
func (ChangeBarColor) Operator() string  { return OpChangeBarColor }
func (AddIcon) Operator() string         { return OpAddIcon }
func (DeleteCard) Operator() string      { return OpDeleteCard }
func (MoveSection) Operator() string     { return OpMoveSection }
func (AddSection) Operator() string      { return OpAddSection }
func (ModifySection) Operator() string   { return OpModifySection }
func (RecreateCard) Operator() string    { return OpRecreateCard }

func (ChangeColor) command()     {}
func (ChangeCardStyle) command() {}
func (ChangeBarColor) command()  {}
func (AddIcon) command()         {}
func (DeleteCard) command()      {}
func (MoveSection) command()     {}
func (AddSection) command()      {}
func (ModifySection) command()   {}
func (RecreateCard) command()    {}

// Instant reports whether cmd runs without calling the generation service.
func Instant(cmd Command) bool {
	switch c := cmd.(type) {
	case AddSection:
		return !c.GenerateContent
	case ModifySection:
		a, _ := edit.NormalizeAction(c.Action)
		return a == edit.ActionDelete
	case RecreateCard:
		return false
	}
	return true
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func schema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}

// Tools returns the operator schemas offered to the classifier.
func Tools() []genai.ToolDefinition {
	search := prop("string", "Title or distinctive text of the card or section to target")
	return []genai.ToolDefinition{
		{
			Name:        OpChangeColor,
			Description: "Change the accent color of the whole report. Neutral text and background colors are kept.",
			InputSchema: schema(map[string]any{
				"new_color": prop("string", "Color name (pink, blue, light blue, green, ...) or CSS color"),
			}, "new_color"),
		},
		{
			Name:        OpChangeCardStyle,
			Description: "Set one CSS property on a single card or section, for example its background or padding.",
			InputSchema: schema(map[string]any{
				"search_text":    search,
				"style_property": prop("string", "CSS property name, e.g. background"),
				"style_value":    prop("string", "CSS value or color name"),
			}, "search_text", "style_property", "style_value"),
		},
		{
			Name:        OpChangeBarColor,
			Description: "Change the color of the left accent bar of a card.",
			InputSchema: schema(map[string]any{
				"search_text": search,
				"new_color":   prop("string", "Color name or CSS color"),
			}, "search_text", "new_color"),
		},
		{
			Name:        OpAddIcon,
			Description: "Add an emoji or icon next to the title of a card.",
			InputSchema: schema(map[string]any{
				"search_text": search,
				"icon":        prop("string", "Emoji or short icon markup"),
				"position": map[string]any{
					"type":        "string",
					"enum":        []string{edit.BeforeTitle, edit.AfterTitle},
					"description": "Where to put the icon relative to the title",
				},
			}, "search_text", "icon"),
		},
		{
			Name:        OpDeleteCard,
			Description: "Delete a card from the report.",
			InputSchema: schema(map[string]any{"search_text": search}, "search_text"),
		},
		{
			Name:        OpMoveSection,
			Description: "Move a section to another position. Indices are 0-based and refer to the current section list.",
			InputSchema: schema(map[string]any{
				"section_index": prop("integer", "Current index of the section to move"),
				"new_position":  prop("integer", "Index the section should end up at"),
			}, "section_index", "new_position"),
		},
		{
			Name:        OpAddSection,
			Description: "Add a new section after the section at position.",
			InputSchema: schema(map[string]any{
				"title":            prop("string", "Title of the new section"),
				"position":         prop("integer", "Index of the section to insert after"),
				"generate_content": prop("boolean", "Write content from the source document; false adds an empty section"),
			}, "title", "position"),
		},
		{
			Name:        OpModifySection,
			Description: "Delete, expand, summarize or regenerate the section at section_index.",
			InputSchema: schema(map[string]any{
				"section_index": prop("integer", "Index of the section"),
				"action": map[string]any{
					"type": "string",
					"enum": []string{edit.ActionDelete, edit.ActionExpand, edit.ActionSummarize, edit.ActionRegenerate},
				},
			}, "section_index", "action"),
		},
		{
			Name:        OpRecreateCard,
			Description: "Rewrite the content of one card in its current visual style.",
			InputSchema: schema(map[string]any{
				"search_text":  search,
				"instructions": prop("string", "What the new card should contain"),
			}, "search_text"),
		},
	}
}

// Decode validates a raw tool call and converts it to a Command.
func Decode(call genai.ToolCall) (Command, error) {
	a := args{op: call.Name, in: call.Input}
	var cmd Command
	switch call.Name {
	case OpChangeColor:
		cmd = ChangeColor{NewColor: a.str("new_color", true)}
	case OpChangeCardStyle:
		cmd = ChangeCardStyle{
			SearchText:    a.str("search_text", true),
			StyleProperty: a.str("style_property", true),
			StyleValue:    a.str("style_value", true),
		}
	case OpChangeBarColor:
		cmd = ChangeBarColor{SearchText: a.str("search_text", true), NewColor: a.str("new_color", true)}
	case OpAddIcon:
		pos := a.str("position", false)
		if pos == "" {
			pos = edit.BeforeTitle
		}
		cmd = AddIcon{SearchText: a.str("search_text", true), Icon: a.str("icon", true), Position: pos}
	case OpDeleteCard:
		cmd = DeleteCard{SearchText: a.str("search_text", true)}
	case OpMoveSection:
		cmd = MoveSection{SectionIndex: a.integer("section_index", true), NewPosition: a.integer("new_position", true)}
	case OpAddSection:
		cmd = AddSection{
			Title:           a.str("title", true),
			Position:        a.integer("position", true),
			GenerateContent: a.boolean("generate_content", true),
		}
	case OpModifySection:
		act := a.str("action", true)
		if act != "" {
			norm, err := edit.NormalizeAction(act)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", call.Name, err)
			}
			act = norm
		}
		cmd = ModifySection{SectionIndex: a.integer("section_index", true), Action: act}
	case OpRecreateCard:
		cmd = RecreateCard{SearchText: a.str("search_text", true), Instructions: a.str("instructions", false)}
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", edit.ErrInvalidArgument, call.Name)
	}
	if a.err != nil {
		return nil, a.err
	}
	return cmd, nil
}

// args reads typed values from a tool input, remembering the first error.
type args struct {
	op  string
	in  map[string]any
	err error
}

func (a *args) fail(key, format string, v ...any) {
	if a.err == nil {
		a.err = fmt.Errorf("%w: %s.%s: %s", edit.ErrInvalidArgument, a.op, key, fmt.Sprintf(format, v...))
	}
}

func (a *args) str(key string, required bool) string {
	v, ok := a.in[key]
	if !ok || v == nil {
		if required {
			a.fail(key, "required")
		}
		return ""
	}
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		a.fail(key, "expected a string, got %T", v)
		return ""
	}
	if s == "" && required {
		a.fail(key, "required")
	}
	return s
}

func (a *args) integer(key string, required bool) int {
	v, ok := a.in[key]
	if !ok || v == nil {
		if required {
			a.fail(key, "required")
		}
		return 0
	}
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			a.fail(key, "expected an integer, got %v", x)
			return 0
		}
		return int(x)
	case int:
		return x
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			a.fail(key, "expected an integer, got %q", x)
		}
		return n
	}
	a.fail(key, "expected an integer, got %T", v)
	return 0
}

func (a *args) boolean(key string, def bool) bool {
	v, ok := a.in[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			a.fail(key, "expected a boolean, got %q", x)
		}
		return b
	case float64:
		return x != 0
	}
	a.fail(key, "expected a boolean, got %T", v)
	return def
}
