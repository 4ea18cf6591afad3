package data

import (
	"time"

	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

// Location is a place tides are forecast for.
type Location struct {
	ID        int64   `gorm:"primaryKey" json:"id"`
	Name      string  `gorm:"column:location_name;size:255" json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// IANA zone name, e.g. America/Los_Angeles
	TimeZone string `gorm:"size:64" json:"time_zone"`
}

// TideRow is a stored tide event. TideTime holds the time as the ingestion
// source wrote it and is parsed on read.
type TideRow struct {
	ID           uint      `gorm:"primaryKey"`
	LocationID   int64     `gorm:"index:idx_tide_location_date"`
	TideDate     time.Time `gorm:"type:date;index:idx_tide_location_date"`
	TideTime     string    `gorm:"size:16"`
	TideHeightMt float64
	TideType     string `gorm:"size:8"`
}

func (TideRow) TableName() string {
	return "tide_data"
}

// GraphRow is a stored tide curve sample. TideType is null for interpolated
// samples.
type GraphRow struct {
	ID              uint      `gorm:"primaryKey"`
	LocationID      int64     `gorm:"index:idx_graph_location_date"`
	TideDate        time.Time `gorm:"type:date;index:idx_graph_location_date"`
	TideTime        string    `gorm:"size:5"`
	TideTimeNumeric int
	TideHeightMt    float64
	TideType        *string `gorm:"size:8"`
}

func (GraphRow) TableName() string {
	return "graph_data"
}

// Event parses the row. Bad times come back as
// *timetricks.InvalidTimeFormatError.
func (r TideRow) Event() (tides.Event, error) {
	t, err := timetricks.ParseTimeOfDay(r.TideTime)
	if err != nil {
		return tides.Event{}, err
	}
	kind, err := tides.ParseKind(r.TideType)
	if err != nil {
		return tides.Event{}, err
	}
	return tides.Event{
		LocationID: r.LocationID,
		Date:       timetricks.DateOf(r.TideDate),
		Time:       t,
		Height:     r.TideHeightMt,
		Kind:       kind,
	}, nil
}

func tideRowOf(e tides.Event) TideRow {
	return TideRow{
		LocationID:   e.LocationID,
		TideDate:     e.Date.Time(),
		TideTime:     e.Time.String(),
		TideHeightMt: e.Height,
		TideType:     e.Kind.String(),
	}
}

func graphRowOf(s tides.Sample) GraphRow {
	row := GraphRow{
		LocationID:      s.LocationID,
		TideDate:        s.Date.Time(),
		TideTime:        s.Time.String(),
		TideTimeNumeric: s.Time.Minutes(),
		TideHeightMt:    s.Height,
	}
	if s.Kind != nil {
		kind := s.Kind.String()
		row.TideType = &kind
	}
	return row
}

// Sample converts the row back into a curve sample.
func (r GraphRow) Sample() (tides.Sample, error) {
	s := tides.Sample{
		LocationID: r.LocationID,
		Date:       timetricks.DateOf(r.TideDate),
		Time:       timetricks.MinutesToTime(r.TideTimeNumeric),
		Height:     r.TideHeightMt,
	}
	if r.TideType != nil {
		kind, err := tides.ParseKind(*r.TideType)
		if err != nil {
			return tides.Sample{}, err
		}
		s.Kind = &kind
	}
	return s, nil
}
