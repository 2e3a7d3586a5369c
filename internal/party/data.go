package party

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CrossplayKey is the reserved data-blob entry holding per-member crossplay
// records keyed by backend user id.
const CrossplayKey = "crossplay"

// CrossplayRecord is one member's platform and crossplay preference.
type CrossplayRecord struct {
	Platform  string `json:"platform"`
	Crossplay bool   `json:"crossplay"`
}

// wireData is the persisted wire format: attributes nested under a reserved
// top-level field.
type wireData struct {
	Attrs map[string]json.RawMessage `json:"Attrs"`
}

// Data is a party's free-form key/value blob. Instances are treated as
// immutable snapshots: mutating helpers return a new Data built from the old
// one, so concurrent readers never observe a partial update.
type Data struct {
	attrs map[string]json.RawMessage
}

// NewData returns an empty data blob.
func NewData() *Data {
	return &Data{attrs: make(map[string]json.RawMessage)}
}

// ParseData decodes the persisted wire form (an object with a reserved Attrs
// field).
func ParseData(raw []byte) (*Data, error) {
	var wire wireData
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode party data: %w", err)
	}
	if wire.Attrs == nil {
		wire.Attrs = make(map[string]json.RawMessage)
	}
	return &Data{attrs: wire.Attrs}, nil
}

// DataFromAttrs builds a blob from a bare attribute object, the shape carried
// by data-change notifications.
func DataFromAttrs(raw json.RawMessage) (*Data, error) {
	attrs := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode party attributes: %w", err)
	}
	return &Data{attrs: attrs}, nil
}

// MarshalWire encodes the blob in its persisted wire form.
func (d *Data) MarshalWire() ([]byte, error) {
	raw, err := json.Marshal(wireData{Attrs: d.attrs})
	if err != nil {
		return nil, fmt.Errorf("encode party data: %w", err)
	}
	return raw, nil
}

// Attribute returns the raw value stored under key.
func (d *Data) Attribute(key string) (json.RawMessage, bool) {
	v, ok := d.attrs[key]
	return v, ok
}

// Attributes returns a copy of the stored attribute map.
func (d *Data) Attributes() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(d.attrs))
	for k, v := range d.attrs {
		out[k] = v
	}
	return out
}

// Len returns the number of stored attributes.
func (d *Data) Len() int {
	return len(d.attrs)
}

// clone copies the attribute map into a fresh Data.
func (d *Data) clone() *Data {
	next := &Data{attrs: make(map[string]json.RawMessage, len(d.attrs))}
	for k, v := range d.attrs {
		next.attrs[k] = v
	}
	return next
}

// WithAttribute returns a copy of the blob with key set to the JSON encoding
// of value.
func (d *Data) WithAttribute(key string, value any) (*Data, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode attribute %q: %w", key, err)
	}
	next := d.clone()
	next.attrs[key] = raw
	return next, nil
}

// crossplayRecords decodes the reserved crossplay entry. The bool result is
// false when the entry is absent or any part of it is malformed; callers treat
// that conservatively.
func (d *Data) crossplayRecords() (map[string]CrossplayRecord, bool) {
	raw, ok := d.attrs[CrossplayKey]
	if !ok {
		return nil, false
	}
	records := make(map[string]CrossplayRecord)
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

// WithCrossplayRecord returns a copy of the blob with the record for the given
// backend user id merged into the crossplay entry.
func (d *Data) WithCrossplayRecord(primaryID string, record CrossplayRecord) *Data {
	records, ok := d.crossplayRecords()
	if !ok {
		records = make(map[string]CrossplayRecord)
	}
	records[primaryID] = record

	next, err := d.WithAttribute(CrossplayKey, records)
	if err != nil {
		// A map of plain structs always encodes; keep the old snapshot if not.
		return d
	}
	return next
}

// WithoutCrossplayRecord returns a copy of the blob with the given user's
// crossplay record pruned. The bool result is false when there was no
// crossplay entry to prune from.
func (d *Data) WithoutCrossplayRecord(primaryID string) (*Data, bool) {
	records, ok := d.crossplayRecords()
	if !ok {
		return d, false
	}
	delete(records, primaryID)

	next, err := d.WithAttribute(CrossplayKey, records)
	if err != nil {
		return d, false
	}
	return next, true
}

// CrossplayRecordFor returns the stored record for one backend user id.
func (d *Data) CrossplayRecordFor(primaryID string) (CrossplayRecord, bool) {
	records, ok := d.crossplayRecords()
	if !ok {
		return CrossplayRecord{}, false
	}
	rec, ok := records[primaryID]
	return rec, ok
}

// UniquePlatforms lists the distinct platforms present in the crossplay entry,
// sorted. A missing or malformed entry yields an empty list rather than a
// partial one.
func (d *Data) UniquePlatforms() []string {
	records, ok := d.crossplayRecords()
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(records))
	platforms := make([]string, 0, len(records))
	for _, rec := range records {
		if _, dup := seen[rec.Platform]; dup {
			continue
		}
		seen[rec.Platform] = struct{}{}
		platforms = append(platforms, rec.Platform)
	}
	sort.Strings(platforms)
	return platforms
}
