// Package relayclient is the rover's HTTP client for the relay API.
// Report calls are bounded by the poll timeout so a dead relay cannot
// stall the drive loop past one tick.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mfitzp/kropbot/internal/direction"
)

// Status is the rover report payload.
type Status struct {
	Direction   int                    `json:"direction"`
	Magnitude   float64                `json:"magnitude"`
	TotalCounts map[direction.Code]int `json:"total_counts"`
	Controllers int                    `json:"n_controllers"`
}

// Client talks to the relay API.
type Client struct {
	baseURL     string
	token       string
	pollTimeout time.Duration
	httpClient  *http.Client
}

// New creates a relay client. An empty token disables the bearer header
// (development mode relay).
func New(baseURL, token string, pollTimeout time.Duration) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		token:       token,
		pollTimeout: pollTimeout,
		httpClient: &http.Client{
			Timeout: pollTimeout,
		},
	}
}

// Report posts the rover's status and returns the directions currently
// live on the relay.
func (c *Client) Report(ctx context.Context, status Status) ([]direction.Code, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	body, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/rover/report", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("report rejected: status %d", resp.StatusCode)
	}

	var envelope struct {
		Result string `json:"result"`
		Data   struct {
			Directions []int `json:"directions"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode report response: %w", err)
	}
	if envelope.Result != "ok" {
		return nil, fmt.Errorf("report rejected: result %q", envelope.Result)
	}

	dirs := make([]direction.Code, 0, len(envelope.Data.Directions))
	for _, v := range envelope.Data.Directions {
		dirs = append(dirs, direction.Coerce(v))
	}
	return dirs, nil
}

// UploadFrame posts one JPEG camera frame.
func (c *Client) UploadFrame(ctx context.Context, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/rover/frame", bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("failed to build frame request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("frame upload failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("frame rejected: status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
