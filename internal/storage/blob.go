package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrObjectExists is returned when an upload would overwrite an existing
// name. Avatar filenames carry a timestamp, so hitting this means a
// duplicate submit rather than a legitimate collision.
var ErrObjectExists = errors.New("object already exists")

// BlobStore is the storage surface the join flow consumes.
type BlobStore interface {
	// Upload stores bytes under name; never overwrites.
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// PublicURL returns the browser-reachable URL for a stored object.
	PublicURL(name string) string
}

// Client talks to a Supabase-style storage API: POST object/{bucket}/{name}
// for uploads, object/public/{bucket}/{name} for reads.
type Client struct {
	baseURL    string
	bucket     string
	serviceKey string
	http       *http.Client
}

func NewClient(baseURL, bucket, serviceKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

func (c *Client) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	u := fmt.Sprintf("%s/object/%s/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Cache-Control", "max-age=3600")
	req.Header.Set("x-upsert", "false")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusConflict:
		return "", ErrObjectExists
	default:
		return "", fmt.Errorf("upload %s: status %d: %s", name, resp.StatusCode, apiMessage(body))
	}

	var out struct {
		Key string `json:"Key"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.Key == "" {
		// older API versions answer with an empty body
		return c.bucket + "/" + name, nil
	}
	return out.Key, nil
}

func (c *Client) PublicURL(name string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(name))
}

func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
