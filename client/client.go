// Package client calls the registration HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/mbolis/event-registration/export"
	"github.com/mbolis/event-registration/model"
)

// APIError is a non-2xx response. Message is the server's own error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Tokens is the pair issued by the login and refresh endpoints.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token is sent as a bearer token on admin calls.
	Token string
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: http.DefaultClient}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}

// checkStatus turns an error response into an APIError carrying the
// server's message verbatim.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e struct {
		Error string `json:"error"`
	}
	var text string
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	} else if json.Unmarshal(body, &text) == nil && text != "" {
		msg = text
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// Login exchanges admin credentials for tokens and keeps the access token.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	var tokens Tokens
	req, err := c.newRequest(ctx, http.MethodPost, "/api/login", nil)
	if err != nil {
		return tokens, err
	}
	req.SetBasicAuth(username, password)
	if err = c.do(req, &tokens); err != nil {
		return tokens, err
	}
	c.Token = tokens.AccessToken
	return tokens, nil
}

// Refresh redeems a refresh token and keeps the new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var tokens Tokens
	req, err := c.newRequest(ctx, http.MethodPost, "/api/refresh", nil)
	if err != nil {
		return tokens, err
	}
	req.Header.Set("authorization", "Refresh "+refreshToken)
	if err = c.do(req, &tokens); err != nil {
		return tokens, err
	}
	c.Token = tokens.AccessToken
	return tokens, nil
}

// Fields returns the current form definition, in display order.
func (c *Client) Fields(ctx context.Context) ([]model.FieldDefinition, error) {
	var fields []model.FieldDefinition
	err := c.call(ctx, http.MethodGet, "/api/form-fields", nil, &fields)
	return fields, err
}

// Submit posts the whole answer map as one submission.
func (c *Client) Submit(ctx context.Context, answers model.Answers) (model.Submission, error) {
	var sub model.Submission
	err := c.call(ctx, http.MethodPost, "/api/submissions", map[string]any{"answers": answers}, &sub)
	return sub, err
}

func (c *Client) Banner(ctx context.Context) (model.Banner, error) {
	var b model.Banner
	err := c.call(ctx, http.MethodGet, "/api/banner", nil, &b)
	return b, err
}

func (c *Client) PutBanner(ctx context.Context, b model.Banner) (model.Banner, error) {
	err := c.call(ctx, http.MethodPut, "/api/admin/banner", b, &b)
	return b, err
}

func (c *Client) CreateField(ctx context.Context, f model.FieldDefinition) (model.FieldDefinition, error) {
	var created model.FieldDefinition
	err := c.call(ctx, http.MethodPost, "/api/admin/form-fields", f, &created)
	return created, err
}

// UpdateField sends a partial update: only the keys present in patch change.
func (c *Client) UpdateField(ctx context.Context, id string, patch map[string]any) (model.FieldDefinition, error) {
	var updated model.FieldDefinition
	err := c.call(ctx, http.MethodPut, "/api/admin/form-fields/"+url.PathEscape(id), patch, &updated)
	return updated, err
}

func (c *Client) DeleteField(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/admin/form-fields/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ReorderFields(ctx context.Context, pairs []model.OrderPair) (model.ReorderResult, error) {
	var res model.ReorderResult
	err := c.call(ctx, http.MethodPut, "/api/admin/form-fields/order", pairs, &res)
	return res, err
}

// Submissions lists every submission, newest first.
func (c *Client) Submissions(ctx context.Context) ([]model.Submission, error) {
	var subs []model.Submission
	err := c.call(ctx, http.MethodGet, "/api/admin/submissions", nil, &subs)
	return subs, err
}

func (c *Client) DeleteSubmission(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/admin/submissions/"+url.PathEscape(id), nil, nil)
}

// Export downloads the submissions table in the given format into w.
func (c *Client) Export(ctx context.Context, format export.Format, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/admin/submissions/export?format="+url.QueryEscape(string(format)), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return err
	}
	_, err = io.Copy(w, resp.Body)
	return errors.Wrap(err, "export")
}
