// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/mia-platform/e2ekit/internal/e2e"
	"github.com/mia-platform/e2ekit/internal/logger"

	// registers the default SDK
	_ "github.com/mia-platform/e2ekit/internal/langgraph"
)

const loggerName = "cmd"

var (
	errMissingAssistant = errors.New("no assistant provided")
	errInvalidOutput    = errors.New("invalid output format")

	// clientGetter builds the client used by the commands.
	// It can be overridden for testing purposes.
	clientGetter = func(ctx context.Context, out io.Writer) (e2e.Client, error) {
		return e2e.NewClient(ctx, e2e.WithOutput(out))
	}
)

// handleError will do custom print error handling based on the type of error received.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errMissingAssistant), errors.Is(err, errInvalidOutput):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

// newReporter returns a reporter printing on the command output with the charset
// configured in the environment.
func newReporter(cmd *cobra.Command) *e2e.Reporter {
	return e2e.NewReporter(
		cmd.OutOrStdout(),
		e2e.WithLogger(logger.FromContext(cmd.Context())),
		e2e.WithCharset(e2e.OutputEncodingFromEnv()),
	)
}
