// Package tides holds the tide event and graph sample types shared by the
// ingestion, curve and storage packages.
package tides

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

// Event is a single observed or forecast tide extreme.
type Event struct {
	LocationID int64                `json:"location_id"`
	Date       timetricks.Date      `json:"date"`
	Time       timetricks.TimeOfDay `json:"time"`
	// Height in meters
	Height float64 `json:"height"`
	Kind   Kind    `json:"kind"`
}

// Sample is one point on a location's tide curve. Anchors copied from an
// Event carry their Kind; interpolated points leave it nil.
type Sample struct {
	LocationID int64                `json:"location_id"`
	Date       timetricks.Date      `json:"date"`
	Time       timetricks.TimeOfDay `json:"time"`
	// Height in meters
	Height float64 `json:"height"`
	Kind   *Kind   `json:"kind,omitempty"`
}

// Anchor reports whether s was copied from a tide event.
func (s Sample) Anchor() bool {
	return s.Kind != nil
}

// AnchorOf converts an event into its verbatim curve sample.
func AnchorOf(e Event) Sample {
	kind := e.Kind
	return Sample{
		LocationID: e.LocationID,
		Date:       e.Date,
		Time:       e.Time,
		Height:     e.Height,
		Kind:       &kind,
	}
}

// Verify the custom types can be marshaled
var _ json.Unmarshaler = new(Kind)
var _ json.Marshaler = Kind(0)

// Kind is a high or low tide.
type Kind uint

const (
	High Kind = iota
	Low
)

// ParseKind accepts HIGH, LOW, H or L in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH", "H":
		return High, nil
	case "LOW", "L":
		return Low, nil
	default:
		return 0, fmt.Errorf("invalid tide type %q", s)
	}
}

func (k Kind) Valid() bool {
	return k == High || k == Low
}

func (k Kind) String() string {
	switch k {
	case High:
		return "HIGH"
	case Low:
		return "LOW"
	default:
		return "invalid"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal tide type %d", k)
	}
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return fmt.Errorf("tide %q not a string: %w", buf, err)
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("{%s %s %.2fm %s}", e.Date, e.Time, e.Height, e.Kind)
}

// Before orders events by date, then time of day.
func Before(d1 timetricks.Date, t1 timetricks.TimeOfDay, d2 timetricks.Date, t2 timetricks.TimeOfDay) bool {
	if c := d1.Compare(d2); c != 0 {
		return c < 0
	}
	return t1 < t2
}

// Less reports whether e happens before other.
func (e Event) Less(other Event) bool {
	return Before(e.Date, e.Time, other.Date, other.Time)
}

// SortEvents sorts events chronologically in place, keeping the input order of
// events that share a timestamp.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}
