package triggers

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ChangeKind is the mutation type reported by the store change feed.
type ChangeKind string

const (
	Create ChangeKind = "create"
	Update ChangeKind = "update"
	Delete ChangeKind = "delete"
)

// ChangeEvent is one document mutation from the change feed. Before and
// After are the raw snapshots; update events carry both so handlers can
// detect field-level transitions.
type ChangeEvent struct {
	EventID string         `json:"eventId"`
	Path    string         `json:"path"`
	Kind    ChangeKind     `json:"kind"`
	Before  map[string]any `json:"before,omitempty"`
	After   map[string]any `json:"after,omitempty"`
}

// DocumentID is the last path segment.
func (ev ChangeEvent) DocumentID() string {
	segments := strings.Split(ev.Path, "/")
	return segments[len(segments)-1]
}

// Snapshot returns After for creates and updates, Before for deletes.
func (ev ChangeEvent) Snapshot() map[string]any {
	if ev.Kind == Delete {
		return ev.Before
	}
	return ev.After
}

// DecodeSnapshot maps a raw snapshot into a typed model. Feed envelopes are
// JSON, so instants arrive as RFC 3339 strings and numbers as float64; the
// hook and weak typing absorb both.
func DecodeSnapshot(snapshot map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build snapshot decoder: %w", err)
	}
	if err := decoder.Decode(snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return nil
}

// stringField reads a top-level string out of a raw snapshot, tolerating a
// missing or non-string value.
func stringField(snapshot map[string]any, field string) string {
	if snapshot == nil {
		return ""
	}
	value, _ := snapshot[field].(string)
	return value
}
