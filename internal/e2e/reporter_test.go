// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/mia-platform/e2ekit/internal/logger"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

type panickingPayload struct{}

func (panickingPayload) MarshalJSON() ([]byte, error) {
	panic("boom")
}

func splitBanner(t *testing.T, output string) (string, string) {
	t.Helper()

	require.True(t, strings.HasPrefix(output, "\n=== "), "missing banner in %q", output)
	require.True(t, strings.HasSuffix(output, "\n\n"), "missing trailing blank line in %q", output)

	header, body, found := strings.Cut(strings.TrimPrefix(output, "\n"), "\n")
	require.True(t, found)
	return header, strings.TrimSuffix(body, "\n\n")
}

func TestReporterLog(t *testing.T) {
	t.Parallel()

	t.Run("prints indented json under a title banner", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer).Log("Create thread", map[string]any{"name": "e2e", "count": 2})

		expected := "\n=== Create thread ===\n{\n  \"count\": 2,\n  \"name\": \"e2e\"\n}\n\n"
		assert.Equal(t, expected, buffer.String())
	})

	t.Run("payload round trips through the printed json", func(t *testing.T) {
		t.Parallel()

		payload := map[string]any{
			"thread_id": "a1",
			"values":    map[string]any{"messages": []any{"hi", "<b>&</b>"}},
			"done":      true,
		}
		buffer := new(bytes.Buffer)
		NewReporter(buffer).Log("Run", payload)

		header, body := splitBanner(t, buffer.String())
		assert.Equal(t, "=== Run ===", header)
		assert.JSONEq(t, `{"thread_id":"a1","values":{"messages":["hi","<b>&</b>"]},"done":true}`, body)
		assert.Contains(t, body, "<b>&</b>")
	})

	t.Run("utf-8 output keeps non ascii text verbatim", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer, WithCharset("utf-8")).Log("Résumé", []string{"héllo", "😀"})

		assert.Equal(t, "\n=== Résumé ===\n[\n  \"héllo\",\n  \"😀\"\n]\n\n", buffer.String())
	})

	t.Run("ascii output escapes the payload", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer, WithCharset("ascii")).Log("Greeting", map[string]string{"text": "héllo 😀"})

		header, body := splitBanner(t, buffer.String())
		assert.Equal(t, "=== Greeting ===", header)
		assert.Equal(t, "{\n  \"text\": \"h\\u00e9llo \\ud83d\\ude00\"\n}", body)
		assert.JSONEq(t, `{"text":"héllo 😀"}`, body)
	})

	t.Run("ascii output degrades the title as last resort", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer, WithCharset("us-ascii")).Log("Café ☕", "naïve")

		assert.Equal(t, "\n=== Caf? ? ===\n\"na\\u00efve\"\n\n", buffer.String())
	})

	t.Run("single byte charset only escapes what it cannot represent", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer, WithCharset("windows-1252")).Log("é", "é")

		decoded, err := charmap.Windows1252.NewDecoder().String(buffer.String())
		require.NoError(t, err)
		assert.Equal(t, "\n=== é ===\n\"é\"\n\n", decoded)

		buffer.Reset()
		NewReporter(buffer, WithCharset("windows-1252")).Log("é", "😀")
		decoded, err = charmap.Windows1252.NewDecoder().String(buffer.String())
		require.NoError(t, err)
		assert.Equal(t, "\n=== é ===\n\"\\ud83d\\ude00\"\n\n", decoded)
	})

	t.Run("unknown charset falls back to utf-8", func(t *testing.T) {
		t.Parallel()

		logs := new(bytes.Buffer)
		buffer := new(bytes.Buffer)
		NewReporter(buffer, WithCharset("klingon"), WithLogger(logger.NewLogger(logs))).Log("ü", "ü")

		assert.Equal(t, "\n=== ü ===\n\"ü\"\n\n", buffer.String())
		assert.Contains(t, logs.String(), "falling back to utf-8 output")
	})

	t.Run("values that cannot be marshaled use their fmt form", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer).Log("Func", map[string]any{"callback": make(chan int)})

		header, body := splitBanner(t, buffer.String())
		assert.Equal(t, "=== Func ===", header)
		assert.True(t, strings.HasPrefix(body, "map[callback:0x"), body)
	})

	t.Run("nil payload prints null", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		NewReporter(buffer).Log("Empty", nil)
		assert.Equal(t, "\n=== Empty ===\nnull\n\n", buffer.String())
	})

	t.Run("write failures are not propagated", func(t *testing.T) {
		t.Parallel()

		logs := new(bytes.Buffer)
		assert.NotPanics(t, func() {
			NewReporter(failingWriter{}, WithLogger(logger.NewLogger(logs))).Log("Title", "payload")
		})
		assert.Contains(t, logs.String(), "closed pipe")
	})

	t.Run("panicking marshalers are not propagated", func(t *testing.T) {
		t.Parallel()

		buffer := new(bytes.Buffer)
		assert.NotPanics(t, func() {
			NewReporter(buffer).Log("Title", panickingPayload{})
		})
	})
}

func TestOutputEncodingFromEnv(t *testing.T) {
	t.Run("defaults to utf-8", func(t *testing.T) {
		t.Setenv("E2E_OUTPUT_ENCODING", "")
		assert.Equal(t, "utf-8", OutputEncodingFromEnv())
	})

	t.Run("reads the configured charset", func(t *testing.T) {
		t.Setenv("E2E_OUTPUT_ENCODING", "ascii")
		assert.Equal(t, "ascii", OutputEncodingFromEnv())
	})
}

func TestEscapeNonASCII(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		input    string
		expected string
	}{
		"ascii is untouched":          {input: `{"a": 1}`, expected: `{"a": 1}`},
		"latin letters":               {input: "ñandú", expected: `\u00f1and\u00fa`},
		"cjk":                         {input: "日本", expected: `\u65e5\u672c`},
		"astral plane uses surrogate": {input: "𝄞", expected: `\ud834\udd1e`},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expected, escapeNonASCII(testCase.input))
		})
	}
}
