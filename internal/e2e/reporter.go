// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mia-platform/e2ekit/internal/logger"
)

// Reporter prints titled payload dumps for test diagnostics.
type Reporter struct {
	out     io.Writer
	charset string
	encode  encodeFunc
	log     logger.Logger
}

// ReporterOption customizes a Reporter.
type ReporterOption func(*Reporter)

// WithCharset sets the charset the output is encoded with. Unknown names keep UTF-8.
func WithCharset(name string) ReporterOption {
	return func(r *Reporter) {
		r.charset = name
	}
}

// WithLogger sets the logger used to report output failures.
func WithLogger(log logger.Logger) ReporterOption {
	return func(r *Reporter) {
		r.log = log.WithName(loggerName)
	}
}

// NewReporter returns a Reporter writing UTF-8 text to out.
func NewReporter(out io.Writer, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		out:    out,
		encode: encodeUTF8,
		log:    logger.FromContext(context.Background()),
	}
	for _, opt := range opts {
		opt(r)
	}

	encode, err := charsetEncoder(r.charset)
	if err != nil {
		r.log.Warn("falling back to utf-8 output", "error", err.Error())
		return r
	}
	r.encode = encode
	return r
}

// Log prints payload on standard output, see Reporter.Log. The output charset is
// read from E2E_OUTPUT_ENCODING.
func Log(title string, payload any) {
	NewReporter(os.Stdout, WithCharset(OutputEncodingFromEnv())).Log(title, payload)
}

// Log prints "=== title ===" followed by payload as indented JSON. When the output
// charset cannot represent the text, non-ASCII runes of the payload are escaped;
// if the title is still not representable its non-ASCII runes become '?'.
// Log never fails: errors are only logged.
func (r *Reporter) Log(title string, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("unable to print payload", "title", title, "panic", fmt.Sprint(rec))
		}
	}()

	formatted := formatPayload(payload, false)
	text, err := r.encode(banner(title, formatted))
	if err != nil {
		r.log.Debug("retrying with ascii escaped payload", "title", title, "error", err.Error())
		formatted = formatPayload(payload, true)
		text, err = r.encode(banner(title, formatted))
	}
	if err != nil {
		r.log.Debug("retrying with ascii title", "title", title, "error", err.Error())
		safe := banner(replaceNonASCII(title), formatted)
		if text, err = r.encode(safe); err != nil {
			text = []byte(safe)
		}
	}

	if _, err := r.out.Write(text); err != nil {
		r.log.Warn("unable to print payload", "title", title, "error", err.Error())
	}
}

func banner(title, formatted string) string {
	return "\n=== " + title + " ===\n" + formatted + "\n\n"
}

// formatPayload renders payload as JSON indented by two spaces, falling back to its
// fmt representation when it cannot be marshaled.
func formatPayload(payload any, asciiOnly bool) string {
	buffer := new(bytes.Buffer)
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	var formatted string
	if err := encoder.Encode(payload); err != nil {
		formatted = fmt.Sprintf("%+v", payload)
	} else {
		formatted = strings.TrimSuffix(buffer.String(), "\n")
	}

	if asciiOnly {
		return escapeNonASCII(formatted)
	}
	return formatted
}
