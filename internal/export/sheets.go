// Package export posts finished session reports to a user-supplied sheet
// web-app endpoint.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/transcript"
)

// ErrExport wraps any failure delivering a report payload. It never affects
// the in-memory session.
var ErrExport = errors.New("export: send failed")

// Payload is the row appended to the sheet per exported session.
type Payload struct {
	Date      time.Time            `json:"date"`
	SessionID string               `json:"sessionId"`
	Level     provider.Level       `json:"level"`
	Messages  []transcript.Message `json:"messages"`
	Feedback  string               `json:"feedback"`
}

// Client posts payloads. The endpoint's response content is never consumed
// beyond the status code.
type Client struct {
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}}
}

// Send posts one payload as JSON.
func (c *Client) Send(ctx context.Context, url string, p Payload) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: no endpoint configured", ErrExport)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status=%d", ErrExport, resp.StatusCode)
	}
	return nil
}
