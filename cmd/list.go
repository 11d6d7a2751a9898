// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"loopfx/internal/audio"
	"loopfx/internal/tui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newListCmd() *cobra.Command {
	var interactive bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			if !interactive {
				return audio.ListDevices(cmd.OutOrStdout())
			}

			devices, err := audio.HostDevices()
			if err != nil {
				return err
			}
			sel, ok, err := tui.PickOutputDevice(devices)
			if err != nil || !ok {
				return err
			}
			return writeAudioSnippet(cmd.OutOrStdout(), sel)
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Pick an output device and print the matching configuration")
	return listCmd
}

// writeAudioSnippet prints the audio section of a config file selecting sel.
func writeAudioSnippet(w io.Writer, sel tui.Selection) error {
	section := struct {
		Audio struct {
			OutputDevice int     `yaml:"output_device"`
			SampleRate   float64 `yaml:"sample_rate"`
		} `yaml:"audio"`
	}{}
	section.Audio.OutputDevice = sel.DeviceID
	section.Audio.SampleRate = sel.SampleRate

	data, err := yaml.Marshal(&section)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "# %s\n%s", sel.Name, data)
	return err
}
