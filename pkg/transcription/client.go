package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"calltriage/internal/models"
)

var ErrTranscriptionFailed = errors.New("transcription service reported failure")

type Config struct {
	URL         string
	Timeout     time.Duration
	SkipSeconds int
	// Basic auth forwarded with the request so the service can fetch
	// protected recordings.
	Username string
	Password string
}

type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		config:     config,
	}
}

// Transcribe asks the service to download and translate the recording.
func (c *Client) Transcribe(ctx context.Context, recording *models.Recording) (*models.TranscriptionResponse, error) {
	payload := models.TranscriptionRequest{
		AudioURL:     recording.DownloadURL,
		CallSID:      recording.CallSID,
		RecordingSID: recording.RecordingSID,
		Duration:     recording.Duration,
		DateCreated:  recording.DateCreated,
		SkipSeconds:  c.config.SkipSeconds,
	}

	var result models.TranscriptionResponse
	if err := PostJSON(ctx, c.httpClient, c.config.URL, payload, &result, c.config.Username, c.config.Password); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: recording %s", ErrTranscriptionFailed, recording.RecordingSID)
	}

	return &result, nil
}

// PostJSON sends body as JSON and decodes a 2xx response into out. Basic
// auth is attached when username is set.
func PostJSON(ctx context.Context, client *http.Client, url string, body, out interface{}, username, password string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if username != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}

type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}
