// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package langgraph

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const apiKeyHeaderName = "x-api-key"

// apiKeyTransport adds the LangGraph api key to every request.
type apiKeyTransport struct {
	apiKey string
	base   http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set(apiKeyHeaderName, t.apiKey)
	return t.base.RoundTrip(req)
}

// newTransport layers the configured authentication on top of base: an OAuth2
// client-credentials token source when both client id and secret are set, and
// the api key header when present.
func newTransport(ctx context.Context, base http.RoundTripper, auth authConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	transport := base
	if len(auth.clientID) > 0 && len(auth.clientSecret) > 0 {
		config := clientcredentials.Config{
			ClientID:     auth.clientID,
			ClientSecret: auth.clientSecret,
			TokenURL:     auth.tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: base})
		transport = &oauth2.Transport{
			Source: config.TokenSource(tokenCtx),
			Base:   base,
		}
	}

	if len(auth.apiKey) > 0 {
		transport = &apiKeyTransport{apiKey: auth.apiKey, base: transport}
	}

	return transport
}
