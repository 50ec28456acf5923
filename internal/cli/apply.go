package cli

import (
	"fmt"
	"strings"

	"github.com/dgallion1/reportsmith/internal/edit"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/resolve"
	"github.com/spf13/cobra"
)

func (a *app) applyCmd() *cobra.Command {
	var (
		argPairs    []string
		instruction string
		sourcePath  string
		output      string
		inPlace     bool
	)
	cmd := &cobra.Command{
		Use:   "apply REPORT [OPERATOR]",
		Short: "Apply an edit operator or a free-text instruction to a report",
		Long: `Apply runs one named operator with --arg key=value pairs, or classifies a
free-text --instruction into operator calls with the generation service.

Operators: change_color, change_card_style, change_bar_color, add_icon,
delete_card, move_section, add_section, modify_section, recreate_card.`,
		Example: `  reportctl apply report.html move_section --arg section_index=2 --arg new_position=0
  reportctl apply report.html --instruction "make the cash flow card pink" -i`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 2) == (instruction != "") {
				return fmt.Errorf("give either an OPERATOR or --instruction")
			}
			if inPlace {
				if output != "" || args[0] == "-" {
					return fmt.Errorf("--in-place needs a file argument and no --output")
				}
				output = args[0]
			}
			src, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			var sourceText string
			if sourcePath != "" {
				if sourceText, err = a.readInput(sourcePath); err != nil {
					return err
				}
			}
			cfg, err := a.config()
			if err != nil {
				return err
			}

			// Instant operators work without a generation client; the
			// AI-backed ones report it as unavailable.
			gen, err := a.client(cfg)
			if err != nil && instruction != "" {
				return err
			}
			res := resolve.New(gen, edit.NewEditor(gen, cfg.Palette(), a.log), a.log)

			if instruction != "" {
				return a.applyInstruction(cmd, res, src, instruction, sourceText, output)
			}

			in, err := parseArgPairs(argPairs)
			if err != nil {
				return err
			}
			c, err := resolve.Decode(genai.ToolCall{Name: args[1], Input: in})
			if err != nil {
				return err
			}
			result, err := res.Execute(cmd.Context(), c, src, sourceText)
			if err != nil {
				return fmt.Errorf("%s failed (%s): %w", c.Operator(), edit.KindOf(err), err)
			}
			fmt.Fprintln(a.stderr, result.Message)
			if result.NoOp() && output == "" {
				return nil
			}
			return a.writeOutput(output, []byte(result.HTML))
		},
	}
	cmd.Flags().StringArrayVarP(&argPairs, "arg", "a", nil, "operator argument as key=value (repeatable)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "free-text edit instruction")
	cmd.Flags().StringVarP(&sourcePath, "source", "s", "", "source document text for AI-backed operators")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "overwrite REPORT")
	return cmd
}

func (a *app) applyInstruction(cmd *cobra.Command, res *resolve.Resolver, src, instruction, sourceText, output string) error {
	resp, err := res.Handle(cmd.Context(), resolve.Request{
		Instruction: instruction,
		HTML:        src,
		Source:      sourceText,
	})
	if err != nil {
		return err
	}
	for _, oc := range resp.Outcomes {
		status := "ok"
		if !oc.OK {
			status = "failed: " + oc.ErrorKind
		}
		fmt.Fprintf(a.stderr, "%s [%s] %s\n", oc.Operator, status, oc.Message)
	}
	if resp.Reply != "" {
		fmt.Fprintln(a.stderr, resp.Reply)
	}
	if a.jsonOut {
		return a.printJSON(resp)
	}
	if !resp.Changed && output == "" {
		return nil
	}
	return a.writeOutput(output, []byte(resp.HTML))
}

// parseArgPairs turns key=value flags into a tool input map. Values stay
// strings; the operator decoder converts integers and booleans.
func parseArgPairs(pairs []string) (map[string]any, error) {
	in := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", p)
		}
		in[k] = v
	}
	return in, nil
}
