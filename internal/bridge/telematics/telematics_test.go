package telematics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubFetcher struct {
	list []Snapshot
	err  error
}

func (f *stubFetcher) FetchLocations(context.Context) ([]Snapshot, error) { return f.list, f.err }

func ptr(f float64) *float64 { return &f }

func TestFetchAllRetainsStale(t *testing.T) {
	f := &stubFetcher{list: []Snapshot{
		{DeviceID: "V1", Latitude: ptr(37.7), Longitude: ptr(-122.4)},
		{DeviceID: "V2", Latitude: ptr(37.8), Longitude: ptr(-122.3), OnTrip: true},
	}}
	s := NewStore(f, false)
	ctx := context.Background()
	if err := s.FetchAll(ctx, []string{"V1", "V2"}); err != nil {
		t.Fatal(err)
	}

	f.list = []Snapshot{{DeviceID: "V1", Latitude: ptr(37.71), Longitude: ptr(-122.41)}}
	if err := s.FetchAll(ctx, []string{"V1", "V2"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("V1"); *got.Latitude != 37.71 {
		t.Errorf("V1 not overwritten: %v", *got.Latitude)
	}
	if got, ok := s.Get("V2"); !ok || !got.OnTrip {
		t.Errorf("V2 should keep its last known state, got %+v %v", got, ok)
	}

	f.list, f.err = nil, errors.New("503")
	if err := s.FetchAll(ctx, nil); err == nil {
		t.Fatal("expected an error")
	}
	if s.Len() != 2 {
		t.Errorf("failed fetch modified the store: len=%d", s.Len())
	}
}

func TestFetchAllEvictStale(t *testing.T) {
	f := &stubFetcher{list: []Snapshot{{DeviceID: "V1"}, {DeviceID: "V2"}}}
	s := NewStore(f, true)
	s.FetchAll(context.Background(), nil)

	f.list = []Snapshot{{DeviceID: "V1"}}
	s.FetchAll(context.Background(), nil)
	if _, ok := s.Get("V2"); ok {
		t.Error("V2 should be evicted")
	}
	if got := s.Covered([]string{"V2", "V1", "V3"}); len(got) != 1 || got[0] != "V1" {
		t.Errorf("Covered = %v", got)
	}
}

func TestSamsaraClient(t *testing.T) {
	var gotBody map[string]any
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		gotToken = r.URL.Query().Get("access_token")
		b, _ := io.ReadAll(r.Body)
		json.Unmarshal(b, &gotBody)
		w.Write([]byte(`{"vehicles":[
			{"id":212014918086169,"latitude":37.7,"longitude":-122.4,"onTrip":false},
			{"id":"abc","latitude":null,"longitude":null,"onTrip":true}
		]}`))
	}))
	defer srv.Close()

	c, err := NewSamsaraClient(srv.URL+"/v1/fleet/locations", "tok", 42, 0)
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.FetchLocations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotToken != "tok" || gotBody["groupId"] != float64(42) {
		t.Errorf("request token=%q body=%v", gotToken, gotBody)
	}
	if len(got) != 2 || got[0].DeviceID != "212014918086169" || *got[0].Latitude != 37.7 {
		t.Fatalf("unexpected snapshots: %+v", got)
	}
	if got[1].DeviceID != "abc" || got[1].Latitude != nil || !got[1].OnTrip {
		t.Errorf("unexpected second snapshot: %+v", got[1])
	}
}

func TestSamsaraClientErrors(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"status":    func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) },
		"malformed": func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"data":[]}`)) },
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			c, _ := NewSamsaraClient(srv.URL, "tok", 1, 0)
			if _, err := c.FetchLocations(context.Background()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
