// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeaderName = "x-request-id"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

// requestID returns the id propagated by the caller or a fresh random one.
func requestID(c *fiber.Ctx) string {
	if id := c.Get(requestIDHeaderName); id != "" {
		return id
	}

	return uuid.NewString()
}

// statusCode prefers the code carried by a handler *fiber.Error, which is
// applied to the response only after the middleware chain returns.
func statusCode(c *fiber.Ctx, handlerErr error) int {
	var fiberErr *fiber.Error
	if errors.As(handlerErr, &fiberErr) {
		return fiberErr.Code
	}

	return c.Response().StatusCode()
}

// RequestMiddlewareLogger is a fiber middleware that logs every request that does not
// match one of excludedPrefix. The incoming request is logged at TRACE, the completed
// one at INFO with its status and latency. The request scoped logger is stored in the
// user context of the request.
func RequestMiddlewareLogger(logger Logger, excludedPrefix []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		start := time.Now()
		reqLogger := logger.WithName("request").With(
			"requestId", requestID(c),
			"method", c.Method(),
			"path", path,
		)
		c.SetUserContext(WithContext(c.UserContext(), reqLogger))

		reqLogger.Trace(IncomingRequestMessage, "userAgent", c.Get(fiber.HeaderUserAgent))
		err := c.Next()
		reqLogger.Info(RequestCompletedMessage,
			"statusCode", statusCode(c, err),
			"bytes", len(c.Response().Body()),
			"responseTime", float64(time.Since(start).Milliseconds()),
		)

		return err
	}
}
