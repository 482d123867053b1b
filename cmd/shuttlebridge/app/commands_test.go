package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/roster"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
)

func TestPrintStops(t *testing.T) {
	var buf bytes.Buffer
	printStops(&buf, []stops.Stop{
		{StopID: 101, Latitude: 37.7749, Longitude: -122.4194},
		{StopID: 102, Latitude: 37.8, Longitude: -122.41},
	})
	out := buf.String()
	for _, want := range []string{"STOP ID", "101", "37.774900", "-122.410000", "2 allowed stops"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestPrintRoster(t *testing.T) {
	var buf bytes.Buffer
	printRoster(&buf, []roster.Vehicle{{DeviceID: "212014918", PlacardNumber: "P-17", LicensePlate: "8ABC123", DisplayName: "Shuttle 17"}})
	out := buf.String()
	for _, want := range []string{"DEVICE ID", "212014918", "P-17", "8ABC123", "1 vehicles"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
}

func TestCommandTree(t *testing.T) {
	cmd := NewApp().Command()
	for _, name := range []string{"run", "stops", "roster"} {
		if sub, _, err := cmd.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if cmd.PersistentFlags().Lookup("sfmta.username") == nil {
		t.Error("sfmta flags are not shared with subcommands")
	}
}
