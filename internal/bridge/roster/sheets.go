package roster

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/autopeer-io/shuttlebridge/internal/pkg/httputil"
)

// DefaultSheetURLTemplate is the public JSON list feed of a spreadsheet; %s is the sheet key.
const DefaultSheetURLTemplate = "https://spreadsheets.google.com/feeds/list/%s/od6/public/values?alt=json"

// SheetClient reads the roster from a spreadsheet list feed.
type SheetClient struct {
	url        string
	httpClient *http.Client
}

var _ Fetcher = (*SheetClient)(nil)

// NewSheetClient builds a client for the sheet identified by key.
func NewSheetClient(urlTemplate, key string, timeout time.Duration) *SheetClient {
	if urlTemplate == "" {
		urlTemplate = DefaultSheetURLTemplate
	}
	return &SheetClient{
		url:        fmt.Sprintf(urlTemplate, key),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type cell struct {
	T string `json:"$t"`
}

type sheetEntry struct {
	DeviceID      *cell `json:"gsx$samsaradeviceid"`
	PlacardNumber *cell `json:"gsx$vehicleplacardnumber"`
	LicensePlate  *cell `json:"gsx$licenseplatenumber"`
	DisplayName   *cell `json:"gsx$vehicleidname"`
}

type sheetFeed struct {
	Feed *struct {
		Entry []sheetEntry `json:"entry"`
	} `json:"feed"`
}

// FetchRoster implements Fetcher.
func (c *SheetClient) FetchRoster(ctx context.Context) ([]Vehicle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var feed sheetFeed
	if err := httputil.DoJSON(c.httpClient, req, &feed); err != nil {
		return nil, err
	}
	return parseFeed(&feed)
}

func parseFeed(feed *sheetFeed) ([]Vehicle, error) {
	if feed.Feed == nil {
		return nil, fmt.Errorf("malformed roster feed: missing \"feed\"")
	}

	vehicles := make([]Vehicle, 0, len(feed.Feed.Entry))
	for i, e := range feed.Feed.Entry {
		if e.DeviceID == nil || e.PlacardNumber == nil || e.LicensePlate == nil || e.DisplayName == nil {
			return nil, fmt.Errorf("malformed roster feed: entry %d is missing a column", i)
		}
		vehicles = append(vehicles, Vehicle{
			DeviceID:      e.DeviceID.T,
			PlacardNumber: e.PlacardNumber.T,
			LicensePlate:  e.LicensePlate.T,
			DisplayName:   e.DisplayName.T,
		})
	}
	return vehicles, nil
}
