// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/e2ekit/internal/langgraph"
	"github.com/mia-platform/e2ekit/internal/langgraph/fake"
)

func executeCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestCheckCmd(t *testing.T) {
	t.Run("prints server info and assistants", func(t *testing.T) {
		server := fake.NewServer(t)
		t.Setenv("SERVER_URL", server.URL)

		stdout, stderr, err := executeCmd(t, CheckCmd())
		require.NoError(t, err)
		assert.Empty(t, stderr)

		assert.True(t, strings.HasPrefix(stdout, "[E2E] Using SERVER_URL="+server.URL+"\n"), stdout)
		assert.Contains(t, stdout, "\n=== Server info ===\n")
		assert.Contains(t, stdout, `"version": "fake"`)
		assert.Contains(t, stdout, "\n=== Assistants ===\n")
		assert.Contains(t, stdout, `"graph_id": "agent"`)
	})

	t.Run("reports server errors", func(t *testing.T) {
		server := fake.NewServer(t)
		server.Fail(http.MethodGet, "/ok", http.StatusServiceUnavailable, "not ready")
		t.Setenv("SERVER_URL", server.URL)

		_, stderr, err := executeCmd(t, CheckCmd())
		require.EqualError(t, err, "langgraph: not ready")
		assert.Equal(t, "langgraph: not ready\n", stderr)
	})

	t.Run("reports invalid server url", func(t *testing.T) {
		t.Setenv("SERVER_URL", "localhost")

		_, stderr, err := executeCmd(t, CheckCmd())
		require.ErrorIs(t, err, langgraph.ErrInvalidURL)
		assert.Contains(t, stderr, "invalid server url")
	})

	t.Run("rejects arguments", func(t *testing.T) {
		_, _, err := executeCmd(t, CheckCmd(), "extra")
		require.Error(t, err)
	})
}

func TestRunCmd(t *testing.T) {
	t.Run("missing assistant prints usage", func(t *testing.T) {
		stdout, stderr, err := executeCmd(t, RunCmd())
		require.ErrorIs(t, err, errMissingAssistant)
		assert.Equal(t, errMissingAssistant.Error()+"\n", stderr)
		assert.Contains(t, stdout, "Usage:")
	})

	t.Run("invalid output prints usage", func(t *testing.T) {
		stdout, stderr, err := executeCmd(t, RunCmd(), "--assistant", "agent", "--output", "xml")
		require.ErrorIs(t, err, errInvalidOutput)
		assert.Equal(t, "invalid output format: xml\n", stderr)
		assert.Contains(t, stdout, "Usage:")
	})

	t.Run("invalid input file", func(t *testing.T) {
		stdout, stderr, err := executeCmd(t, RunCmd(), "-a", "agent", "-f", filepath.Join("testdata", "invalid.yaml"))
		require.Error(t, err)
		assert.Contains(t, stderr, "input file")
		assert.NotContains(t, stdout, "Usage:")
	})

	t.Run("prints the run result as json and deletes the thread", func(t *testing.T) {
		server := fake.NewServer(t)
		t.Setenv("SERVER_URL", server.URL)

		stdout, _, err := executeCmd(t, RunCmd(), "-a", "agent", "-f", filepath.Join("testdata", "input.yaml"))
		require.NoError(t, err)

		_, result, found := strings.Cut(stdout, "\n=== Run result ===\n")
		require.True(t, found, stdout)
		assert.Contains(t, result, `"content": "ciao"`)
		assert.Contains(t, result, `"run_id"`)

		requests := server.Requests()
		require.NotEmpty(t, requests)
		last := requests[len(requests)-1]
		assert.Equal(t, http.MethodDelete, last.Method)
		_, stillThere := server.Thread(strings.TrimPrefix(last.Path, "/threads/"))
		assert.False(t, stillThere)
	})

	t.Run("prints the run result as yaml and keeps the thread", func(t *testing.T) {
		server := fake.NewServer(t)
		t.Setenv("SERVER_URL", server.URL)

		stdout, _, err := executeCmd(t, RunCmd(), "-a", "agent", "-f", filepath.Join("testdata", "input.json"), "-o", "yaml", "--keep-thread")
		require.NoError(t, err)

		_, document, found := strings.Cut(stdout, "\n")
		require.True(t, found)

		var values map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(document), &values))
		assert.InDelta(t, 0.5, values["temperature"], 0)
		assert.Contains(t, values, "run_id")

		for _, request := range server.Requests() {
			assert.NotEqual(t, http.MethodDelete, request.Method)
		}
	})

	t.Run("unknown assistant still deletes the thread", func(t *testing.T) {
		server := fake.NewServer(t)
		t.Setenv("SERVER_URL", server.URL)

		_, stderr, err := executeCmd(t, RunCmd(), "-a", "missing")
		require.Error(t, err)
		assert.Equal(t, "langgraph: resource not found\n", stderr)

		requests := server.Requests()
		assert.Equal(t, http.MethodDelete, requests[len(requests)-1].Method)
	})
}

func TestReadInput(t *testing.T) {
	t.Parallel()

	input, err := readInput("")
	require.NoError(t, err)
	assert.Empty(t, input)

	input, err = readInput(filepath.Join("testdata", "input.yaml"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "ciao"}},
	}, input)

	_, err = readInput(filepath.Join("testdata", "missing.yaml"))
	require.ErrorContains(t, err, `input file "testdata/missing.yaml"`)
}
