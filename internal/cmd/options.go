// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/e2ekit/internal/info"
	"github.com/mia-platform/e2ekit/internal/logger"
)

const yamlIndent = 2

// runOptions configures a single blocking run.
type runOptions struct {
	assistant  string
	input      map[string]any
	output     string
	keepThread bool
}

// validate checks the configured values and reports invalid setups.
func (o *runOptions) validate() error {
	if o.assistant == "" {
		return errMissingAssistant
	}

	switch o.output {
	case outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("%w: %s", errInvalidOutput, o.output)
	}
}

// execute creates a thread, waits for the run of the assistant on it and prints the final state.
func (o *runOptions) execute(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	log := logger.Named(ctx, loggerName)

	client, err := clientGetter(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	thread, err := client.CreateThread(ctx, map[string]any{"created_by": info.AppName})
	if err != nil {
		return err
	}
	threadID, _ := thread["thread_id"].(string)
	log.Debug("thread created", "threadId", threadID)

	if !o.keepThread {
		defer func() {
			//nolint:contextcheck // cleanup must run even when the command context is done
			if deleteErr := client.DeleteThread(context.WithoutCancel(ctx), threadID); deleteErr != nil {
				log.Warn("unable to delete thread", "threadId", threadID, "error", deleteErr.Error())
				err = errors.Join(err, deleteErr)
			}
		}()
	}

	values, err := client.WaitRun(ctx, threadID, o.assistant, o.input)
	if err != nil {
		return err
	}

	return o.print(cmd, values)
}

func (o *runOptions) print(cmd *cobra.Command, values map[string]any) error {
	if o.output == outputJSON {
		newReporter(cmd).Log("Run result", values)
		return nil
	}

	return writeYAML(cmd.OutOrStdout(), values)
}

func writeYAML(out io.Writer, value any) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(yamlIndent)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return encoder.Close()
}
