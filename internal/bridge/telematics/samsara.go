package telematics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/pkg/httputil"
)

// DefaultSamsaraURL is the fleet locations endpoint.
const DefaultSamsaraURL = "https://api.samsara.com/v1/fleet/locations"

// SamsaraClient reads vehicle positions for one fleet group.
type SamsaraClient struct {
	url        string
	groupID    int64
	httpClient *http.Client
}

var _ Fetcher = (*SamsaraClient)(nil)

// NewSamsaraClient builds a client. The token is sent as the access_token
// query parameter.
func NewSamsaraClient(endpoint, token string, groupID int64, timeout time.Duration) (*SamsaraClient, error) {
	if endpoint == "" {
		endpoint = DefaultSamsaraURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing samsara endpoint: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	return &SamsaraClient{
		url:        u.String(),
		groupID:    groupID,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type locationsRequest struct {
	GroupID int64 `json:"groupId"`
}

type locationsResponse struct {
	Vehicles *[]struct {
		ID        deviceID `json:"id"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		OnTrip    bool     `json:"onTrip"`
	} `json:"vehicles"`
}

// FetchLocations implements Fetcher.
func (c *SamsaraClient) FetchLocations(ctx context.Context) ([]Snapshot, error) {
	body, err := json.Marshal(locationsRequest{GroupID: c.groupID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp locationsResponse
	if err := httputil.DoJSON(c.httpClient, req, &resp); err != nil {
		return nil, err
	}
	if resp.Vehicles == nil {
		return nil, fmt.Errorf("malformed locations response: missing \"vehicles\"")
	}

	out := make([]Snapshot, 0, len(*resp.Vehicles))
	for _, v := range *resp.Vehicles {
		out = append(out, Snapshot{
			DeviceID:  string(v.ID),
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			OnTrip:    v.OnTrip,
		})
	}
	return out, nil
}

// deviceID accepts both numeric and string ids and renders numbers without
// exponent or fraction so they match the roster's textual device ids.
type deviceID string

func (d *deviceID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = deviceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*d = deviceID(strconv.FormatInt(i, 10))
	} else {
		*d = deviceID(n.String())
	}
	return nil
}
