package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoCredential is returned when the credential service responds without
// a usable client secret.
var ErrNoCredential = errors.New("no ephemeral credential provided")

// CredentialProvider mints short-lived connection credentials. One attempt
// per connect; retry policy belongs to the trainee, not the client.
type CredentialProvider interface {
	EphemeralKey(ctx context.Context) (string, error)
}

// HTTPCredentialProvider fetches credentials from the session-mint endpoint.
type HTTPCredentialProvider struct {
	url    string
	client *http.Client
}

// NewHTTPCredentialProvider creates a provider for the given endpoint URL.
func NewHTTPCredentialProvider(url string) *HTTPCredentialProvider {
	return &HTTPCredentialProvider{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionMintResponse struct {
	ClientSecret struct {
		Value string `json:"value"`
	} `json:"client_secret"`
}

// EphemeralKey requests one credential.
func (p *HTTPCredentialProvider) EphemeralKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("build credential request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch credential: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("credential service returned %d", resp.StatusCode)
	}

	var minted sessionMintResponse
	if err := json.NewDecoder(resp.Body).Decode(&minted); err != nil {
		return "", fmt.Errorf("decode credential response: %w", err)
	}
	if minted.ClientSecret.Value == "" {
		return "", ErrNoCredential
	}
	return minted.ClientSecret.Value, nil
}
