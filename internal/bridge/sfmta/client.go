// Package sfmta is a client for the regulator's shuttle API.
package sfmta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/internal/pkg/httputil"
)

// successMarker is the only value of "Success" that acknowledges a push.
const successMarker = "True"

// RejectedError is returned when the regulator answers 200 without
// acknowledging the record.
type RejectedError struct {
	Success string
	Body    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("telemetry rejected: Success=%q", e.Success)
}

// Client talks to one regulator deployment.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

var _ stops.Fetcher = (*Client)(nil)

// NewClient returns a client for baseURL, authenticating telemetry pushes
// with the given Basic Auth credentials.
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchStops implements stops.Fetcher.
func (c *Client) FetchStops(ctx context.Context) ([]stops.Stop, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/AllowedStops", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var doc stops.Document
	if err := httputil.DoJSON(c.httpClient, req, &doc); err != nil {
		return nil, err
	}
	return doc.List()
}

type telemetryResponse struct {
	Success any `json:"Success"`
}

// PushTelemetry posts one JSON-encoded record. Transport failures are
// returned unwrapped; a non-200 status yields *httputil.StatusError and a
// missing acknowledgement yields *RejectedError.
func (c *Client) PushTelemetry(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Telemetry/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	if err := httputil.Check(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var tr telemetryResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return &RejectedError{Body: string(body)}
	}
	if s, ok := tr.Success.(string); !ok || s != successMarker {
		return &RejectedError{Success: fmt.Sprint(tr.Success), Body: string(body)}
	}
	return nil
}
