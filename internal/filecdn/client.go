// Package filecdn talks to the external upload/signed-URL service that
// mirrors provider-hosted media into object storage.
package filecdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an HTTP implementation of the adapter's MediaStore port.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a file CDN client. A nil httpClient falls back to a
// 30s-timeout default (uploads pull the source object through the service).
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With("component", "filecdn_client"),
	}
}

type uploadRequest struct {
	SourceURL string  `json:"source_url"`
	MimeType  string  `json:"mime_type"`
	MessageID string  `json:"message_id"`
	MaxSize   float64 `json:"max_size"`
}

type uploadResponse struct {
	Name string `json:"name"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

// Upload asks the CDN service to fetch sourceURL and store it, returning
// the stored object name.
func (c *Client) Upload(ctx context.Context, sourceURL, mimeType, messageID string, maxSize float64) (string, error) {
	body, err := json.Marshal(uploadRequest{
		SourceURL: sourceURL,
		MimeType:  mimeType,
		MessageID: messageID,
		MaxSize:   maxSize,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	var resp uploadResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}

	c.logger.InfoContext(ctx, "Uploaded media file", "name", resp.Name, "mime_type", mimeType, "message_id", messageID)
	return resp.Name, nil
}

// SignedURL returns a time-limited retrieval link for a stored object name.
func (c *Client) SignedURL(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/files/"+url.PathEscape(name)+"/signed-url", nil)
	if err != nil {
		return "", fmt.Errorf("creating signed URL request: %w", err)
	}
	c.authorize(req)

	var resp signedURLResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling file CDN service: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading file CDN response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "File CDN request failed",
			"status_code", httpResp.StatusCode, "url", req.URL.Path)
		return fmt.Errorf("file CDN request failed: status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing file CDN response: %w", err)
	}
	return nil
}
