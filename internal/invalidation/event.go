// Package invalidation defines the collection-update events that tell
// replicas to drop what they cached for a collection.
package invalidation

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Ops a producer may announce. All of them invalidate the whole collection.
const (
	OpUpdate  = "update"
	OpReplace = "replace"
	OpDelete  = "delete"
)

// Event announces that the data behind a collection changed. Version grows
// with every change of the collection; replicas ignore versions they
// already applied.
type Event struct {
	Version    uint64    `json:"version"`
	Op         string    `json:"op"`
	Collection string    `json:"collection"`
	TS         time.Time `json:"ts"`
	Source     string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	if e.Version == 0 {
		return fmt.Errorf("version must be positive")
	}
	switch e.Op {
	case OpUpdate, OpReplace, OpDelete:
	default:
		return fmt.Errorf("op must be update|replace|delete")
	}
	if strings.TrimSpace(e.Collection) == "" {
		return fmt.Errorf("collection is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// Decode parses and validates one message payload.
func Decode(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("validate event: %w", err)
	}
	return e, nil
}
