// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package e2e

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
)

const (
	// DefaultServerURL is used when SERVER_URL is unset or empty.
	DefaultServerURL = "http://localhost:8000"

	authTokenPath = "/oauth/token"
)

var (
	errParsingConfig       = errors.New("error parsing e2e configuration from environment variables")
	errMissingClientID     = errors.New("SERVER_CLIENT_ID is required when SERVER_CLIENT_SECRET is set")
	errMissingClientSecret = errors.New("SERVER_CLIENT_SECRET is required when SERVER_CLIENT_ID is set")
)

// config holds the environment-driven connection settings.
type config struct {
	ServerURL    string `env:"SERVER_URL" envDefault:"http://localhost:8000"`
	APIKey       string `env:"LANGGRAPH_API_KEY"`
	ClientID     string `env:"SERVER_CLIENT_ID"`
	ClientSecret string `env:"SERVER_CLIENT_SECRET"`
	AuthEndpoint string `env:"SERVER_AUTH_ENDPOINT"`
}

// reporterConfig is parsed separately from config so that printing never
// depends on the connection settings being valid.
type reporterConfig struct {
	OutputEncoding string `env:"E2E_OUTPUT_ENCODING" envDefault:"utf-8"`
}

func loadConfigFromEnv() (*config, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errParsingConfig, err.Error())
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// validate checks the auth settings only: SERVER_URL is forwarded verbatim and
// any problem with it is reported by the SDK constructor.
func (c *config) validate() error {
	switch {
	case len(c.ClientID) > 0 && len(c.ClientSecret) == 0:
		return errMissingClientSecret
	case len(c.ClientSecret) > 0 && len(c.ClientID) == 0:
		return errMissingClientID
	case len(c.ClientID) == 0:
		return nil
	}

	if len(c.AuthEndpoint) > 0 {
		if _, err := url.Parse(c.AuthEndpoint); err != nil {
			return fmt.Errorf("invalid SERVER_AUTH_ENDPOINT: %w", err)
		}
		return nil
	}

	serverURL, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid SERVER_URL: %w", err)
	}
	serverURL.Path = authTokenPath
	serverURL.RawQuery = ""
	c.AuthEndpoint = serverURL.String()
	return nil
}

func (c *config) clientConfig() ClientConfig {
	return ClientConfig{
		URL:          c.ServerURL,
		APIKey:       c.APIKey,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		AuthEndpoint: c.AuthEndpoint,
	}
}

// OutputEncodingFromEnv returns the charset named by E2E_OUTPUT_ENCODING. It never
// fails: an unparsable environment means utf-8.
func OutputEncodingFromEnv() string {
	config, err := env.ParseAs[reporterConfig]()
	if err != nil {
		return "utf-8"
	}
	return config.OutputEncoding
}
