// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package fake provides an in-process LangGraph server for tests. It keeps
// assistants and threads in memory and answers runs by echoing their input.
package fake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"maps"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mia-platform/e2ekit/internal/logger"
)

// AccessToken is the bearer token issued by the fake token endpoint.
const AccessToken = "fake-access-token"

// Request is a request received by the server.
type Request struct {
	Method        string
	Path          string
	APIKey        string
	Authorization string
	UserAgent     string
	Body          []byte
}

type failure struct {
	status int
	detail string
}

// Server is a fiber application listening on a random loopback port.
type Server struct {
	// URL is the base URL of the running server.
	URL string

	tb  testing.TB
	app *fiber.App
	log logger.Logger

	apiKey       string
	clientID     string
	clientSecret string

	mu         sync.Mutex
	assistants []map[string]any
	threads    map[string]map[string]any
	failures   map[string]failure
	requests   []Request
}

// Option customizes a Server.
type Option func(*Server)

// WithAPIKey rejects requests without the given x-api-key header.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithClientCredentials enables the /oauth/token endpoint for the given client and
// rejects requests without its bearer token.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(s *Server) {
		s.clientID = clientID
		s.clientSecret = clientSecret
	}
}

// WithAssistants replaces the default "agent" assistant.
func WithAssistants(assistants ...map[string]any) Option {
	return func(s *Server) {
		s.assistants = assistants
	}
}

// WithLogger logs every request through the request middleware.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer starts a fake server that is shut down when the test ends.
func NewServer(tb testing.TB, opts ...Option) *Server {
	tb.Helper()

	s := &Server{
		tb:  tb,
		log: logger.FromContext(context.Background()),
		assistants: []map[string]any{
			{
				"assistant_id": uuid.NewString(),
				"graph_id":     "agent",
				"name":         "agent",
				"metadata":     map[string]any{"created_by": "system"},
			},
		},
		threads:  make(map[string]map[string]any),
		failures: make(map[string]failure),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Immutable:             true, // handlers keep path params and bodies after the request ends
	})
	s.app.Use(logger.RequestMiddlewareLogger(s.log, []string{"/ok"}))
	s.app.Use(s.record)
	s.app.Post("/oauth/token", s.token)
	s.app.Use(s.authenticate)
	s.app.Use(s.injectFailures)

	s.app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	s.app.Get("/info", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"version": "fake",
			"flags":   fiber.Map{"assistants": true, "crons": false},
		})
	})
	s.app.Post("/assistants/search", s.searchAssistants)
	s.app.Post("/threads", s.createThread)
	s.app.Get("/threads/:thread_id", s.getThread)
	s.app.Delete("/threads/:thread_id", s.deleteThread)
	s.app.Post("/threads/:thread_id/runs/wait", s.waitRun)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		tb.Fatalf("fake server listen: %s", err)
	}
	go func() {
		_ = s.app.Listener(listener)
	}()
	tb.Cleanup(func() {
		_ = s.app.Shutdown()
	})

	s.URL = "http://" + listener.Addr().String()
	return s
}

// Fail makes every request matching method and path answer with status and a detail message.
func (s *Server) Fail(method, path string, status int, detail string) {
	s.tb.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, detail: detail}
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Assistants returns the assistants known by the server.
func (s *Server) Assistants() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.assistants...)
}

// Thread returns a copy of the stored thread.
func (s *Server) Thread(threadID string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread, ok := s.threads[threadID]
	if !ok {
		return nil, false
	}
	return maps.Clone(thread), true
}

func detail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"detail": message})
}

func (s *Server) record(c *fiber.Ctx) error {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method:        c.Method(),
		Path:          c.Path(),
		APIKey:        c.Get("x-api-key"),
		Authorization: c.Get(fiber.HeaderAuthorization),
		UserAgent:     c.Get(fiber.HeaderUserAgent),
		Body:          append([]byte(nil), c.Body()...),
	})
	s.mu.Unlock()
	return c.Next()
}

func (s *Server) token(c *fiber.Ctx) error {
	if len(s.clientID) == 0 {
		return detail(c, http.StatusNotFound, "Not Found")
	}

	encoded, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Basic ")
	if !found {
		return detail(c, http.StatusUnauthorized, "missing client credentials")
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || string(decoded) != s.clientID+":"+s.clientSecret {
		return detail(c, http.StatusUnauthorized, "invalid client credentials")
	}

	return c.JSON(fiber.Map{
		"access_token": AccessToken,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (s *Server) authenticate(c *fiber.Ctx) error {
	if len(s.apiKey) > 0 && c.Get("x-api-key") != s.apiKey {
		return detail(c, http.StatusForbidden, "invalid api key")
	}
	if len(s.clientID) > 0 && c.Get(fiber.HeaderAuthorization) != "Bearer "+AccessToken {
		return detail(c, http.StatusUnauthorized, "invalid bearer token")
	}
	return c.Next()
}

func (s *Server) injectFailures(c *fiber.Ctx) error {
	s.mu.Lock()
	injected, ok := s.failures[c.Method()+" "+c.Path()]
	s.mu.Unlock()
	if ok {
		return detail(c, injected.status, injected.detail)
	}
	return c.Next()
}

func decodeBody(c *fiber.Ctx) (map[string]any, error) {
	body := map[string]any{}
	if len(c.Body()) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) searchAssistants(c *fiber.Ctx) error {
	query, err := decodeBody(c)
	if err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}

	graphID, _ := query["graph_id"].(string)
	limit := -1
	if value, ok := query["limit"].(float64); ok {
		limit = int(value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found := make([]map[string]any, 0, len(s.assistants))
	for _, assistant := range s.assistants {
		if limit >= 0 && len(found) >= limit {
			break
		}
		if len(graphID) > 0 && assistant["graph_id"] != graphID {
			continue
		}
		found = append(found, assistant)
	}
	return c.JSON(found)
}

func (s *Server) createThread(c *fiber.Ctx) error {
	body, err := decodeBody(c)
	if err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}

	metadata, _ := body["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	thread := map[string]any{
		"thread_id":  uuid.NewString(),
		"created_at": now,
		"updated_at": now,
		"metadata":   metadata,
		"status":     "idle",
		"values":     nil,
	}

	s.mu.Lock()
	s.threads[thread["thread_id"].(string)] = thread
	s.mu.Unlock()

	return c.JSON(thread)
}

func (s *Server) getThread(c *fiber.Ctx) error {
	thread, ok := s.Thread(c.Params("thread_id"))
	if !ok {
		return detail(c, http.StatusNotFound, "Thread not found")
	}
	return c.JSON(thread)
}

func (s *Server) deleteThread(c *fiber.Ctx) error {
	threadID := c.Params("thread_id")

	s.mu.Lock()
	_, ok := s.threads[threadID]
	delete(s.threads, threadID)
	s.mu.Unlock()

	if !ok {
		return detail(c, http.StatusNotFound, "Thread not found")
	}
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) findAssistant(id string) bool {
	for _, assistant := range s.assistants {
		if assistant["assistant_id"] == id || assistant["graph_id"] == id {
			return true
		}
	}
	return false
}

func (s *Server) waitRun(c *fiber.Ctx) error {
	body, err := decodeBody(c)
	if err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}
	assistantID, _ := body["assistant_id"].(string)
	input, _ := body["input"].(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()

	thread, ok := s.threads[c.Params("thread_id")]
	if !ok {
		return detail(c, http.StatusNotFound, "Thread not found")
	}
	if !s.findAssistant(assistantID) {
		return detail(c, http.StatusNotFound, "Assistant not found")
	}

	values := maps.Clone(input)
	if values == nil {
		values = map[string]any{}
	}
	values["run_id"] = uuid.NewString()

	thread["values"] = values
	thread["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	return c.JSON(values)
}
