// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	checkCmdUsage = "check"
	checkCmdShort = "check that the server under test is reachable"
	checkCmdLong  = `Check that the server under test is reachable.
	The server address is read from the SERVER_URL environment variable
	(default http://localhost:8000). The command calls the liveness endpoint
	and prints the server information and the available assistants.

	Authentication can be configured with LANGGRAPH_API_KEY or with the
	SERVER_CLIENT_ID and SERVER_CLIENT_SECRET client credentials.`

	checkCmdExample = `# Check a local development server
	e2ekit check

	# Check a remote deployment
	SERVER_URL=https://agents.example.com LANGGRAPH_API_KEY=... e2ekit check`

	runCmdUsage = "run"
	runCmdShort = "run an assistant on a new thread and print its final state"
	runCmdLong  = `Run an assistant on a new thread and print its final state.
	The input is read from a YAML or JSON file; without it the run starts
	from an empty input. The thread is deleted once the run completes
	unless --keep-thread is set.`

	runCmdExample = `# Run the "agent" graph with the input from a file
	e2ekit run --assistant agent --input input.yaml

	# Print the result as YAML and keep the thread for inspection
	e2ekit run -a agent -f input.json -o yaml --keep-thread`
)

// CheckCmd returns the Cobra command that checks the server under test.
func CheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:     checkCmdUsage,
		Short:   heredoc.Doc(checkCmdShort),
		Long:    heredoc.Doc(checkCmdLong),
		Example: heredoc.Doc(checkCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := executeCheck(cmd); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}
}

// RunCmd returns the Cobra command that executes a blocking run.
func RunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:     runCmdUsage,
		Short:   heredoc.Doc(runCmdShort),
		Long:    heredoc.Doc(runCmdLong),
		Example: heredoc.Doc(runCmdExample),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.toOptions()
			if err != nil {
				return handleError(cmd, err)
			}

			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := opts.execute(cmd); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}

// executeCheck pings the server and prints its information and assistants.
func executeCheck(cmd *cobra.Command) error {
	ctx := cmd.Context()

	client, err := clientGetter(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if err := client.Ok(ctx); err != nil {
		return err
	}

	serverInfo, err := client.Info(ctx)
	if err != nil {
		return err
	}

	assistants, err := client.SearchAssistants(ctx, map[string]any{"limit": 100})
	if err != nil {
		return err
	}

	reporter := newReporter(cmd)
	reporter.Log("Server info", serverInfo)
	reporter.Log("Assistants", assistants)
	return nil
}
