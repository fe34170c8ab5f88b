// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mia-platform/e2ekit/internal/logger"
)

const loggerName = "e2e"

// Client is the handle returned by the SDK. The e2e helpers only forward to it.
type Client interface {
	// URL returns the base URL the client is bound to.
	URL() string
	// Ok checks the server liveness endpoint.
	Ok(ctx context.Context) error
	// Info returns the server build information.
	Info(ctx context.Context) (map[string]any, error)
	// SearchAssistants lists the assistants matching query.
	SearchAssistants(ctx context.Context, query map[string]any) ([]map[string]any, error)
	// CreateThread creates a new thread with the given metadata.
	CreateThread(ctx context.Context, metadata map[string]any) (map[string]any, error)
	// GetThread returns the thread identified by threadID.
	GetThread(ctx context.Context, threadID string) (map[string]any, error)
	// DeleteThread removes the thread identified by threadID.
	DeleteThread(ctx context.Context, threadID string) error
	// WaitRun starts a run of assistantID on threadID and waits for its final state.
	WaitRun(ctx context.Context, threadID, assistantID string, input map[string]any) (map[string]any, error)
}

type options struct {
	out io.Writer
	sdk string
}

// Option customizes NewClient.
type Option func(*options)

// WithOutput changes where the resolved server URL is printed. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// WithSDK selects a registered SDK other than DefaultSDK.
func WithSDK(name string) Option {
	return func(o *options) {
		o.sdk = name
	}
}

// NewClient reads the server settings from the environment, prints the resolved
// SERVER_URL and returns the client built by the selected SDK. Errors returned by
// the SDK constructor are passed through unchanged.
func NewClient(ctx context.Context, opts ...Option) (Client, error) {
	o := &options{out: os.Stdout, sdk: DefaultSDK}
	for _, opt := range opts {
		opt(o)
	}

	constructor, err := lookupSDK(o.sdk)
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(o.out, "[E2E] Using SERVER_URL=%s\n", cfg.ServerURL)
	logger.Named(ctx, loggerName).Debug("building sdk client", "sdk", o.sdk, "serverUrl", cfg.ServerURL)

	return constructor(ctx, cfg.clientConfig())
}
