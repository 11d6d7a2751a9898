// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"loopfx/internal/effects"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newPresetCmd(opts *options) *cobra.Command {
	presetCmd := &cobra.Command{
		Use:   "preset",
		Short: "Create and inspect effect parameter presets",
	}

	var sets []string
	saveCmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Write a preset, starting from --preset or the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := presetBase(opts)
			if err != nil {
				return err
			}
			if err := applySets(params, sets); err != nil {
				return err
			}
			if err := params.SavePreset(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Preset written to %s\n", args[0])
			return nil
		},
	}
	saveCmd.Flags().StringArrayVar(&sets, "set", nil, "Override a parameter, e.g. --set gain=0.8")

	showCmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Print a preset with every parameter resolved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.preset = args[0]
			}
			params, err := presetBase(opts)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(params.Tree()); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	presetCmd.AddCommand(saveCmd, showCmd)
	return presetCmd
}

func presetBase(opts *options) (*effects.Parameters, error) {
	params := effects.NewParameters()
	if opts.preset != "" {
		if err := params.LoadPreset(opts.preset); err != nil {
			return nil, err
		}
	}
	return params, nil
}

// applySets applies key=value overrides. Booleans accept true/false.
func applySets(params *effects.Parameters, sets []string) error {
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("--set %q: want key=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			b, berr := strconv.ParseBool(strings.TrimSpace(value))
			if berr != nil {
				return fmt.Errorf("--set %q: %w", kv, err)
			}
			v = 0
			if b {
				v = 1
			}
		}
		if err := params.SetByKey(key, v); err != nil {
			return err
		}
	}
	return nil
}
