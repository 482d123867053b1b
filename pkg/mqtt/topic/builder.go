package topic

import (
	"fmt"
	"strings"
)

// SuffixReport is the segment under which per-vehicle reports are mirrored.
// Structure: {root}/report/{deviceID}
const SuffixReport = "report"

// Builder constructs MQTT topic strings under a fixed root namespace.
type Builder struct {
	root string
}

// NewBuilder creates a Builder rooted at root (e.g. "shuttlebridge/v1").
// Leading and trailing slashes are dropped.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.Trim(root, "/")}
}

// Report returns the topic a vehicle's report is mirrored to.
func (b *Builder) Report(deviceID string) string {
	return b.build(SuffixReport, deviceID)
}

// build joins the root, suffix and identifier: {root}/{suffix}/{id}.
func (b *Builder) build(suffix, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, suffix, id)
}
