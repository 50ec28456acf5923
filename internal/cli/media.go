package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/reportsmith/internal/enhance"
	"github.com/dgallion1/reportsmith/internal/snapshot"
	"github.com/spf13/cobra"
)

func (a *app) enhanceCmd() *cobra.Command {
	var (
		output  string
		inPlace bool
	)
	cmd := &cobra.Command{
		Use:   "enhance REPORT",
		Short: "Run one visual enhancement round (CSS and inline SVG) over a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			cfg, err := a.config()
			if err != nil {
				return err
			}
			gen, err := a.client(cfg)
			if err != nil {
				return err
			}

			res, err := enhance.NewEnhancer(gen, a.log).Enhance(cmd.Context(), src)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "injected %d graphics, skipped %d, dropped %d\n", res.Injected, len(res.Skipped), res.Dropped)
			for _, s := range res.Skipped {
				a.log.Debug("injection skipped", "reason", s)
			}
			return a.writeOutput(output, []byte(res.HTML))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "overwrite REPORT")
	return cmd
}

func (a *app) snapshotCmd() *cobra.Command {
	var (
		output  string
		opts    snapshot.Options
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot REPORT|URL",
		Short: "Render a report, deck or URL to PNG with headless Chrome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			opts.Timeout = timeout
			opts.Logger = a.log

			var (
				png []byte
				err error
			)
			if target := args[0]; strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
				png, err = snapshot.URL(cmd.Context(), target, opts)
			} else {
				var src string
				if src, err = a.readInput(target); err != nil {
					return err
				}
				png, err = snapshot.HTML(cmd.Context(), src, opts)
			}
			if err != nil {
				return err
			}
			return a.writeOutput(output, png)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG output file")
	cmd.Flags().IntVar(&opts.Width, "width", snapshot.DefaultWidth, "viewport width")
	cmd.Flags().IntVar(&opts.Height, "height", snapshot.DefaultHeight, "viewport height")
	cmd.Flags().BoolVar(&opts.FullPage, "full-page", false, "capture the whole page instead of the viewport")
	cmd.Flags().StringVar(&opts.RemoteURL, "remote", "", "DevTools WebSocket URL of a running Chrome")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "capture timeout")
	return cmd
}
