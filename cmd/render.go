// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"

	"loopfx/internal/audio"
	"loopfx/internal/feed"
	"loopfx/internal/log"
	"loopfx/internal/source"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	var (
		seconds  float64
		out      string
		bitDepth int
		start    float64
		end      float64
	)

	renderCmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Process a file offline through the loop engine and effect chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			asset, err := source.Open(args[0])
			if err != nil {
				return err
			}
			// Nothing drains events offline; a small queue that drops is fine.
			proc, err := newProcessor(cfg, feed.NewQueue(1))
			if err != nil {
				return err
			}
			t := proc.Transport()
			t.SetAsset(asset)
			if cmd.Flags().Changed("region-start") || cmd.Flags().Changed("region-end") {
				if !cmd.Flags().Changed("region-end") {
					end = asset.LengthSeconds()
				}
				if !t.LoopRegion(start, end) {
					return fmt.Errorf("region %.3f-%.3fs is empty within %s (%.3fs)",
						start, end, args[0], asset.LengthSeconds())
				}
				log.Infof("Looping %.3f-%.3fs in %s mode", start, end, t.Mode())
			}
			t.Start()

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			frames, err := audio.Render(cmd.Context(), proc, f, seconds, bitDepth)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			if proc.Safety().Tripped() {
				log.Warnf("Safety latch tripped at peak %.3f, the rest of the render is silent", proc.Safety().Peak())
			}
			log.Infof("Rendered %.2fs of %s to %s", float64(frames)/cfg.Audio.SampleRate, args[0], out)
			return nil
		},
	}

	f := renderCmd.Flags()
	f.Float64Var(&seconds, "seconds", 10, "Length of the render in seconds")
	f.StringVarP(&out, "out", "o", "render.wav", "Output WAV file")
	f.IntVar(&bitDepth, "bit-depth", 16, "Output bit depth (16 or 24)")
	f.Float64Var(&start, "region-start", 0, "Loop region start in seconds (selects region mode when off)")
	f.Float64Var(&end, "region-end", 0, "Loop region end in seconds (default: end of file)")
	return renderCmd
}
