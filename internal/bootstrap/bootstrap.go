// Package bootstrap establishes a session with a remote tool-invocation
// server: an SSE handshake yields a session id, after which structured
// searches go through the server's REST API.
package bootstrap

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lokilens-mcp/internal/models"

	log "github.com/sirupsen/logrus"
)

// Bootstrap failure modes. All are fatal to tool use: without a session no
// tool call is valid.
var (
	ErrConnectionRefused = errors.New("could not connect to tool server")
	ErrHandshakeTimeout  = errors.New("tool server handshake timed out")
	ErrProtocolViolation = errors.New("tool server stream ended without an endpoint event")
)

// Connect opens the server's SSE stream and blocks until an `endpoint`
// event arrives, bounded by timeout. The session id is the trailing
// query-parameter value of the event payload.
func Connect(ctx context.Context, toolServerURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(toolServerURL, "/"), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrHandshakeTimeout, timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrConnectionRefused, resp.StatusCode)
	}

	sessionID, err := awaitEndpointEvent(resp.Body)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrHandshakeTimeout, timeout)
		}
		return "", err
	}

	log.WithField("session_id", sessionID).Info("tool server session established")
	return sessionID, nil
}

// awaitEndpointEvent reads SSE frames until an `endpoint` event appears and
// extracts the session id from its data line.
func awaitEndpointEvent(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	var event string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if event != "endpoint" {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if idx := strings.LastIndex(data, "="); idx >= 0 {
				data = data[idx+1:]
			}
			if data == "" {
				return "", fmt.Errorf("%w: empty session id", ErrProtocolViolation)
			}
			return data, nil
		case line == "":
			// Frame boundary; the event name only applies to its own frame.
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", ErrProtocolViolation
}

// Client searches through the remote tool server once a session exists. It
// satisfies the chat orchestrator's Searcher interface.
type Client struct {
	BaseURL    string
	SessionID  string
	HTTPClient *http.Client
}

// NewClient performs the handshake and returns a ready client. The REST API
// lives next to the SSE endpoint, without the /mcp suffix.
func NewClient(ctx context.Context, toolServerURL string, timeout time.Duration) (*Client, error) {
	sessionID, err := Connect(ctx, toolServerURL, timeout)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(strings.TrimSuffix(toolServerURL, "/"), "/mcp")
	return &Client{
		BaseURL:    base,
		SessionID:  sessionID,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

// Search posts a structured search to the remote server.
func (c *Client) Search(ctx context.Context, searchID string, timeRanges []string) (*models.SearchResponse, error) {
	body, err := json.Marshal(models.SearchRequest{SearchID: searchID, TimeRanges: timeRanges})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var remote struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &remote) == nil && remote.Error != "" {
			return nil, fmt.Errorf("tool server: %s", remote.Error)
		}
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var result models.SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &result, nil
}
