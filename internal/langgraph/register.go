// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package langgraph

import (
	"github.com/mia-platform/e2ekit/internal/e2e"
)

func init() {
	e2e.Register(e2e.DefaultSDK, newFromConfig)
}
