// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package langgraph is a minimal client for the LangGraph server HTTP API,
// covering the calls used by end-to-end suites: liveness, server info,
// assistant search, thread lifecycle and blocking runs.
//
// Importing the package registers it as the default e2e SDK.
package langgraph
