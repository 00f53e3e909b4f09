package members

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPEnrichmentClient implements VCardProvider, AvatarProvider, and
// OnlineStatusProvider against the XMPP server's admin REST API,
// following the same "build request, set header, do, map status" shape
// as auth.HTTPOAuthClient.
type HTTPEnrichmentClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPEnrichmentClient(baseURL, token string) *HTTPEnrichmentClient {
	return &HTTPEnrichmentClient{BaseURL: strings.TrimRight(baseURL, "/"), Token: token, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *HTTPEnrichmentClient) authedRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	return req, nil
}

// Nickname fetches the member's vCard nickname (FN field).
func (c *HTTPEnrichmentClient) Nickname(ctx context.Context, jid string) (string, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/rest/vcard/"+url.PathEscape(jid))
	if err != nil {
		return "", fmt.Errorf("members: build vcard request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("members: vcard request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("members: vcard request: unexpected status %d", resp.StatusCode)
	}
	var vcard struct {
		FN string `xml:"FN"`
	}
	if err := xml.NewDecoder(resp.Body).Decode(&vcard); err != nil {
		return "", fmt.Errorf("members: decode vcard: %w", err)
	}
	return vcard.FN, nil
}

// AvatarURL fetches the URL of the member's vCard avatar photo.
func (c *HTTPEnrichmentClient) AvatarURL(ctx context.Context, jid string) (string, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/rest/vcard/"+url.PathEscape(jid)+"/avatar")
	if err != nil {
		return "", fmt.Errorf("members: build avatar request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("members: avatar request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("members: avatar request: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("members: decode avatar response: %w", err)
	}
	return body.URL, nil
}

// IsOnline checks the member's presence via the server's session list.
func (c *HTTPEnrichmentClient) IsOnline(ctx context.Context, jid string) (bool, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/rest/presence/"+url.PathEscape(jid))
	if err != nil {
		return false, fmt.Errorf("members: build presence request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("members: presence request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("members: presence request: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("members: decode presence response: %w", err)
	}
	return body.Online, nil
}
