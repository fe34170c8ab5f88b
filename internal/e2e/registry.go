// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// DefaultSDK is the name the LangGraph SDK registers itself with.
const DefaultSDK = "langgraph"

// ErrSDKNotInstalled is returned when no SDK has been registered in the running binary.
var ErrSDKNotInstalled = errors.New(
	"langgraph SDK is required for E2E tests: blank import " +
		"github.com/mia-platform/e2ekit/internal/langgraph in your test package " +
		"or register another SDK with e2e.Register",
)

// ClientConfig carries the connection settings handed to an SDK constructor.
type ClientConfig struct {
	URL          string
	APIKey       string
	ClientID     string
	ClientSecret string
	AuthEndpoint string
}

// Constructor builds a Client bound to cfg.URL.
type Constructor func(ctx context.Context, cfg ClientConfig) (Client, error)

type registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

var sdks = &registry{constructors: make(map[string]Constructor)}

// Register makes an SDK constructor available under name. It panics if called
// twice with the same name or with a nil constructor.
func Register(name string, constructor Constructor) {
	sdks.mu.Lock()
	defer sdks.mu.Unlock()

	if constructor == nil {
		panic("e2e: Register constructor is nil")
	}
	if _, dup := sdks.constructors[name]; dup {
		panic("e2e: Register called twice for SDK " + name)
	}
	sdks.constructors[name] = constructor
}

// SDKs returns the sorted names of the registered SDKs.
func SDKs() []string {
	sdks.mu.RLock()
	defer sdks.mu.RUnlock()
	return slices.Sorted(maps.Keys(sdks.constructors))
}

// RequireSDK reports ErrSDKNotInstalled when name has not been registered.
// Suites call it from TestMain to fail before any test starts.
func RequireSDK(name string) error {
	_, err := lookupSDK(name)
	return err
}

func lookupSDK(name string) (Constructor, error) {
	sdks.mu.RLock()
	defer sdks.mu.RUnlock()

	constructor, ok := sdks.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w (missing SDK %q)", ErrSDKNotInstalled, name)
	}
	return constructor, nil
}
