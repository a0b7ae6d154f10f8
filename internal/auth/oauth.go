package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidOAuthCredential indicates the provider rejected the id token.
var ErrInvalidOAuthCredential = errors.New("invalid oauth credential")

// GoogleIdentity is the subset of the tokeninfo response the backend uses.
type GoogleIdentity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// GoogleVerifier validates Google id tokens against the tokeninfo endpoint.
type GoogleVerifier struct {
	endpoint string
	client   *http.Client
}

// NewGoogleVerifier constructs a verifier for the provided tokeninfo endpoint.
func NewGoogleVerifier(endpoint string, timeout time.Duration) *GoogleVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Verify checks the id token with the provider and returns the identity it
// asserts. Any provider rejection surfaces as ErrInvalidOAuthCredential.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (GoogleIdentity, error) {
	if strings.TrimSpace(idToken) == "" {
		return GoogleIdentity{}, ErrInvalidOAuthCredential
	}

	endpoint := fmt.Sprintf("%s?id_token=%s", v.endpoint, url.QueryEscape(idToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleIdentity{}, ErrInvalidOAuthCredential
	}

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return GoogleIdentity{}, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if identity.Email == "" {
		return GoogleIdentity{}, ErrInvalidOAuthCredential
	}

	return identity, nil
}
