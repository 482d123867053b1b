package stops

import (
	"encoding/json"
	"errors"
)

// Document is the AllowedStops response body:
// {"Stops":{"Stop":[{"StopId":..,"StopLocationLatitude":..,"StopLocationLongitude":..}]}}
type Document struct {
	Stops *struct {
		Stop []Stop `json:"Stop"`
	} `json:"Stops"`
}

// Decode parses an AllowedStops document, preserving stop order.
func Decode(data []byte) ([]Stop, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.List()
}

// List returns the stops of a decoded document.
func (d *Document) List() ([]Stop, error) {
	if d.Stops == nil {
		return nil, errors.New("malformed stop list: missing \"Stops\"")
	}
	if d.Stops.Stop == nil {
		return []Stop{}, nil
	}
	return d.Stops.Stop, nil
}

// Encode renders stops in the AllowedStops document format.
func Encode(list []Stop) ([]byte, error) {
	var doc Document
	doc.Stops = &struct {
		Stop []Stop `json:"Stop"`
	}{Stop: list}
	return json.Marshal(doc)
}
