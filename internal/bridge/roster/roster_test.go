package roster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

type fakeFetcher struct {
	vehicles []Vehicle
	err      error
}

func (f *fakeFetcher) FetchRoster(context.Context) ([]Vehicle, error) {
	return f.vehicles, f.err
}

func ids(vs ...string) []Vehicle {
	out := make([]Vehicle, 0, len(vs))
	for _, id := range vs {
		out = append(out, Vehicle{DeviceID: id, PlacardNumber: "P" + id})
	}
	return out
}

func TestRefreshReplacesWholeSet(t *testing.T) {
	f := &fakeFetcher{vehicles: ids("A", "D")}
	c := NewCache(f, false)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.vehicles = ids("A", "B", "C")
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := c.IDs(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Errorf("IDs() = %v, want [A B C]", got)
	}
	if _, ok := c.Get("D"); ok {
		t.Error("D should have been dropped by the refresh")
	}
}

func TestRefreshFailureKeepsPrevious(t *testing.T) {
	f := &fakeFetcher{vehicles: ids("A", "D")}
	c := NewCache(f, false)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.vehicles, f.err = nil, errors.New("503")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := c.IDs(); !slices.Equal(got, []string{"A", "D"}) {
		t.Errorf("IDs() = %v, want [A D]", got)
	}
}

func TestRefreshEmpty(t *testing.T) {
	f := &fakeFetcher{vehicles: ids("A")}

	wipe := NewCache(f, false)
	wipe.Refresh(context.Background())
	f.vehicles = nil
	if err := wipe.Refresh(context.Background()); err != nil || wipe.Len() != 0 {
		t.Errorf("empty feed should wipe the roster, len=%d err=%v", wipe.Len(), err)
	}

	f.vehicles = ids("A")
	guarded := NewCache(f, true)
	guarded.Refresh(context.Background())
	f.vehicles = nil
	if err := guarded.Refresh(context.Background()); !errors.Is(err, ErrEmpty) || guarded.Len() != 1 {
		t.Errorf("guarded cache should keep roster, len=%d err=%v", guarded.Len(), err)
	}
}

func TestReplaceSkipsBlankAndDedupes(t *testing.T) {
	c := NewCache(nil, false)
	c.Replace([]Vehicle{
		{DeviceID: "", PlacardNumber: "x"},
		{DeviceID: "A", PlacardNumber: "1"},
		{DeviceID: "A", PlacardNumber: "2"},
	})
	v, ok := c.Get("A")
	if c.Len() != 1 || !ok || v.PlacardNumber != "2" {
		t.Errorf("unexpected cache content: %+v", c.List())
	}
}

const sheetBody = `{"feed":{"entry":[
 {"gsx$samsaradeviceid":{"$t":"V1"},"gsx$vehicleplacardnumber":{"$t":"100"},
  "gsx$licenseplatenumber":{"$t":"ABC123"},"gsx$vehicleidname":{"$t":"Bus1"}}
]}}`

func TestSheetClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feeds/list/good/od6/public/values":
			w.Write([]byte(sheetBody))
		case "/feeds/list/partial/od6/public/values":
			w.Write([]byte(`{"feed":{"entry":[{"gsx$samsaradeviceid":{"$t":"V1"}}]}}`))
		case "/feeds/list/accepted/od6/public/values":
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(sheetBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tmpl := srv.URL + "/feeds/list/%s/od6/public/values?alt=json"

	got, err := NewSheetClient(tmpl, "good", time.Second).FetchRoster(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []Vehicle{{DeviceID: "V1", PlacardNumber: "100", LicensePlate: "ABC123", DisplayName: "Bus1"}}
	if !slices.Equal(got, want) {
		t.Errorf("FetchRoster() = %+v, want %+v", got, want)
	}

	for _, key := range []string{"partial", "accepted", "missing"} {
		if _, err := NewSheetClient(tmpl, key, time.Second).FetchRoster(context.Background()); err == nil {
			t.Errorf("%s: expected error", key)
		}
	}
}

func ExampleCache_IDs() {
	c := NewCache(nil, false)
	c.Replace([]Vehicle{{DeviceID: "b"}, {DeviceID: "a"}})
	fmt.Println(c.IDs())
	// Output: [a b]
}
