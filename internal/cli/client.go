package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Client calls the VoteAPI endpoints with the stored credentials. An expired
// access token is refreshed once per request.
type Client struct {
	baseURL string
	tokens  *tokenStore
	http    *http.Client
}

func NewClient(baseURL string, tokens *tokenStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Do sends in as JSON and decodes the answer into out. Either may be nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	creds, err := c.tokens.Load()
	if err != nil {
		return err
	}

	status, body, err := c.send(ctx, method, path, creds.Access, in)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && creds.Refresh != "" && tokenExpired(body) {
		access, rerr := c.refresh(ctx, creds.Refresh)
		if rerr == nil {
			creds.Access = access
			if err := c.tokens.Save(creds); err != nil {
				return err
			}
			status, body, err = c.send(ctx, method, path, access, in)
			if err != nil {
				return err
			}
		}
	}

	if status < 200 || status >= 300 {
		return &APIError{Status: status, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, access string, in any) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) refresh(ctx context.Context, refresh string) (string, error) {
	status, body, err := c.send(ctx, http.MethodPost, "/token/refresh/", "", map[string]string{"refresh": refresh})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", &APIError{Status: status, Body: string(body)}
	}
	var out struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", errors.New("refresh returned no access token")
	}
	return out.Access, nil
}

func tokenExpired(body []byte) bool {
	var e struct {
		Code string `json:"code"`
	}
	return json.Unmarshal(body, &e) == nil && e.Code == "token_not_valid"
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) error {
	status, body, err := c.send(ctx, http.MethodPost, "/token/", "", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &APIError{Status: status, Body: string(body)}
	}
	var t Tokens
	if err := json.Unmarshal(body, &t); err != nil {
		return fmt.Errorf("decode token pair: %w", err)
	}
	return c.tokens.Save(t)
}
