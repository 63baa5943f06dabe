package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// MediaClient handles communication with the media-service for image storage.
// It uploads a blob under a logical folder/name and returns the public URL the
// media service assigns.
type MediaClient struct {
	baseURL    string
	httpClient *http.Client
}

// MediaUploadResponse from media-service
type MediaUploadResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		PublicURL string `json:"publicUrl"`
	} `json:"data,omitempty"`
	Message *string `json:"message,omitempty"`
}

// NewMediaClient creates a new media client
func NewMediaClient() *MediaClient {
	baseURL := os.Getenv("MEDIA_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://media-service:8080"
	}

	return &MediaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewMediaClientWithURL creates a media client against an explicit base URL
func NewMediaClientWithURL(baseURL string) *MediaClient {
	return &MediaClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Upload sends one image blob to the media service as multipart form data and
// returns its public URL.
func (c *MediaClient) Upload(ctx context.Context, folder, name string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/media/upload", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("media upload failed: %d - %s", resp.StatusCode, string(respBody))
	}

	var result MediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode media response: %w", err)
	}
	if result.Data == nil || result.Data.PublicURL == "" {
		return "", fmt.Errorf("media response missing public URL")
	}

	return result.Data.PublicURL, nil
}
