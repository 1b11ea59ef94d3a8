// Package bridge provides the HTTP client for the native accessibility
// bridge process. One wire protocol covers the platform bridges (Windows
// UI Automation, macOS Accessibility, Linux AT-SPI); the bridge is reached
// over a Unix socket on macOS/Linux and TCP loopback on Windows.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/devicelab-dev/uidriver/pkg/core"
)

// Client communicates with the accessibility bridge.
type Client struct {
	http       *http.Client
	baseURL    string
	socketPath string
}

// NewClient creates a client using a Unix socket (macOS, Linux).
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		baseURL:    "http://localhost",
		socketPath: socketPath,
	}
}

// NewClientTCP creates a client using a TCP port (Windows).
func NewClientTCP(port int) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
	}
}

// errorValue is the bridge error payload.
type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// request makes an HTTP request to the bridge and classifies failures:
// transport errors become ErrBackendUnreachable, bridge-reported errors map
// onto the taxonomy by code.
func (c *Client) request(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.ErrBackendUnreachable.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.ErrBackendUnreachable.WithCause(err)
	}

	if resp.StatusCode >= 400 {
		var errResp errorValue
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return classify(errResp)
		}
		return core.ErrPlatform.WithMessage("bridge error %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return core.ErrPlatform.WithCause(fmt.Errorf("parse bridge response: %w", err))
		}
	}
	return nil
}

// classify maps a bridge error code onto the engine taxonomy.
func classify(ev errorValue) error {
	switch ev.Error {
	case "stale_element":
		return core.ErrStaleElement.WithMessage("%s", ev.Message)
	case "not_found":
		return core.ErrElementNotFound.WithMessage("%s", ev.Message)
	default:
		return core.ErrPlatform.WithMessage("%s: %s", ev.Error, ev.Message)
	}
}

// Status checks whether the bridge is ready.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var resp struct {
		Ready    bool   `json:"ready"`
		Platform string `json:"platform"`
	}
	if err := c.request(ctx, http.MethodGet, "/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Ready, nil
}
