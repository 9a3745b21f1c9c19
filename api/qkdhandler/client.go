package qkdhandler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ruteri/qkd-transfer-backend/api"
)

// Client requests keys from a running server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the server at baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// Key requests a key of the given size. bits == 0 uses the server default.
func (c *Client) Key(bits int) (*api.KeyResponse, error) {
	url := c.BaseURL + "/qkd/key"
	if bits != 0 {
		url = fmt.Sprintf("%s?bits=%d", url, bits)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request key: %w", err)
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read key response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, api.DecodeError(resp.StatusCode, body)
	}

	var keyResp api.KeyResponse
	if err := json.Unmarshal(body, &keyResp); err != nil {
		return nil, fmt.Errorf("could not parse key response: %w", err)
	}
	return &keyResp, nil
}
