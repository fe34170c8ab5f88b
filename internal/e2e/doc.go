// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package e2e contains the helpers shared by end-to-end test suites that run
// against a live agent server.
//
// NewClient resolves the server address from the SERVER_URL environment
// variable and builds a client through the registered SDK. SDK packages register
// themselves at init time, so a test binary must blank import one of them:
//
//	import _ "github.com/mia-platform/e2ekit/internal/langgraph"
//
// Log prints a titled, indented JSON dump of any value on standard output and
// degrades to ASCII output when the configured charset cannot represent it.
package e2e
