// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package logger wraps hclog behind a small interface shared by the CLI, the
// SDK client and the fake server. Loggers travel inside a context.Context.
package logger
