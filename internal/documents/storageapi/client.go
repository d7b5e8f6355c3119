// Package storageapi implements the document store adapter against the blob
// storage HTTP API. Provider uploads live in one bucket, one folder per
// provider, files named "<doc_type>-<suffix>".
package storageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"verifica/internal/platform/config"
)

const bucket = "provider-documents"

// listLimit caps a single object-list page. The API paginates; the adapter
// walks pages until a short one comes back.
const listLimit = 100

// object is the storage API's object listing entry.
type object struct {
	Name      string    `json:"name"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  struct {
		Size     int64  `json:"size"`
		MimeType string `json:"mimetype"`
	} `json:"metadata"`
}

// Client talks to the blob storage API. It is read-only; uploads happen in
// the provider-facing app.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a storage API client from config.
func NewClient(cfg config.StorageAPIConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// listObjects lists bucket entries under prefix. An empty prefix lists the
// top-level folders, one per provider.
func (c *Client) listObjects(ctx context.Context, prefix string, offset int) ([]object, error) {
	url := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, bucket)
	body, err := json.Marshal(map[string]any{
		"prefix": prefix,
		"limit":  listLimit,
		"offset": offset,
		"sortBy": map[string]string{"column": "created_at", "order": "asc"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal list request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list objects %q: %w", prefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("list objects %q: status %d: %s", prefix, resp.StatusCode, snippet)
	}

	var objects []object
	if err := json.NewDecoder(resp.Body).Decode(&objects); err != nil {
		return nil, fmt.Errorf("decode object listing: %w", err)
	}
	return objects, nil
}

// listAll walks every page under prefix.
func (c *Client) listAll(ctx context.Context, prefix string) ([]object, error) {
	var all []object
	for offset := 0; ; offset += listLimit {
		page, err := c.listObjects(ctx, prefix, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listLimit {
			return all, nil
		}
	}
}

// publicURL builds the canonical download URL for an object path.
func (c *Client) publicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path)
}
