package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPOAuthClient implements OAuthClient against the XMPP server's OAuth2
// resource-owner-password grant and token-introspection endpoints,
// following the same "build request, set header, do, map status" shape
// as the teacher's webhook forwarding code.
type HTTPOAuthClient struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPOAuthClient(baseURL string) *HTTPOAuthClient {
	return &HTTPOAuthClient{BaseURL: strings.TrimRight(baseURL, "/"), Client: &http.Client{Timeout: 15 * time.Second}}
}

func (c *HTTPOAuthClient) PasswordGrant(ctx context.Context, jid, password string) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {jid},
		"password":   {password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrOAuthUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	return body.AccessToken, nil
}

func (c *HTTPOAuthClient) Introspect(ctx context.Context, token string) (string, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth2/introspect", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build introspect request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("introspect request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return "", ErrOAuthUnauthorized
	case http.StatusForbidden:
		return "", ErrOAuthForbidden
	case http.StatusOK:
	default:
		return "", fmt.Errorf("introspect request: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Active bool   `json:"active"`
		Sub    string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode introspect response: %w", err)
	}
	if !body.Active {
		return "", ErrOAuthUnauthorized
	}
	return body.Sub, nil
}
