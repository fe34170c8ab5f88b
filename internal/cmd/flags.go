// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	assistantFlagName  = "assistant"
	assistantFlagShort = "a"
	assistantFlagUsage = "Id or graph name of the assistant to run"

	inputFlagName  = "input"
	inputFlagShort = "f"
	inputFlagUsage = "Path to a YAML or JSON file containing the run input"

	outputFlagName    = "output"
	outputFlagShort   = "o"
	outputFlagUsage   = "Output format of the run result (json or yaml)"
	defaultOutputFlag = outputJSON

	keepThreadFlagName  = "keep-thread"
	keepThreadFlagUsage = "If set, the thread created for the run is not deleted"
	defaultKeepThread   = false

	outputJSON = "json"
	outputYAML = "yaml"
)

// runFlags collects the CLI options of the run command.
type runFlags struct {
	assistant  string
	inputPath  string
	output     string
	keepThread bool
}

// addFlags registers the CLI flags on cmd.
func (f *runFlags) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.assistant, assistantFlagName, assistantFlagShort, "", assistantFlagUsage)
	flags.StringVarP(&f.inputPath, inputFlagName, inputFlagShort, "", inputFlagUsage)
	flags.StringVarP(&f.output, outputFlagName, outputFlagShort, defaultOutputFlag, outputFlagUsage)
	flags.BoolVar(&f.keepThread, keepThreadFlagName, defaultKeepThread, keepThreadFlagUsage)

	_ = cmd.RegisterFlagCompletionFunc(outputFlagName, cobra.FixedCompletions(
		[]string{outputJSON, outputYAML},
		cobra.ShellCompDirectiveNoFileComp,
	))
}

// toOptions builds a runOptions instance from the parsed flags.
func (f *runFlags) toOptions() (*runOptions, error) {
	input, err := readInput(f.inputPath)
	if err != nil {
		return nil, err
	}

	return &runOptions{
		assistant:  strings.TrimSpace(f.assistant),
		input:      input,
		output:     strings.ToLower(f.output),
		keepThread: f.keepThread,
	}, nil
}

// readInput parses the run input file; JSON documents are valid YAML too.
func readInput(path string) (map[string]any, error) {
	input := map[string]any{}
	if path == "" {
		return input, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("input file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("input file %q: %w", path, err)
	}
	if input == nil {
		input = map[string]any{}
	}
	return input, nil
}
