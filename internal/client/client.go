// Package client is a minimal HTTP client of the gallerist API used by the
// command-line tool.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gallerist/internal/netx"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: time.Minute}
	}
	return &Client{baseURL: baseURL, token: token, http: hc}
}

// Upload is the outcome of UploadFile.
type Upload struct {
	Key       string    `json:"key"`
	Reference string    `json:"reference"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// APIError is a non-2xx response of the API.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s: %s (%s)", e.Status, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// ContentTypeOf guesses a content type from the file extension.
func ContentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// UploadFile requests an upload capability for name and puts data through
// it. The returned reference can then be attached to a post.
func (c *Client) UploadFile(ctx context.Context, name string, data []byte) (*Upload, error) {
	ct := ContentTypeOf(name)

	var up Upload
	req := map[string]string{"fileName": filepath.Base(name), "contentType": ct}
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads", req, &up); err != nil {
		return nil, err
	}

	if err := netx.PutPresigned(ctx, c.http, up.UploadURL, ct, data); err != nil {
		return nil, err
	}
	return &up, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var env struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		env.Error.Status = resp.StatusCode
		return &env.Error
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
