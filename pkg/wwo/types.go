package wwo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

// MarineResult is the data type returned by the marine API.
type MarineResult struct {
	Data struct {
		Weather []Weather `json:"weather"`
		Error   []struct {
			Msg string `json:"msg"`
		} `json:"error"`
	} `json:"data"`
}

// Weather is one forecast day.
type Weather struct {
	Date  string `json:"date"`
	Tides []struct {
		TideData []TideEntry `json:"tide_data"`
	} `json:"tides"`
}

// TideEntry is a tide extreme as the API encodes it, every field a string.
type TideEntry struct {
	TideTime     string `json:"tideTime"`
	TideHeightMt string `json:"tideHeight_mt"`
	TideDateTime string `json:"tideDateTime"`
	TideType     string `json:"tide_type"`
}

// MarineQuery is used to query tides at a coordinate; see Client.GetTides.
type MarineQuery struct {
	Lat, Long float64
	// Date selects a single past or future day. Zero means the API's default
	// forecast window starting today.
	Date timetricks.Date
}

// Event converts the entry for a location on a date.
func (e TideEntry) Event(locationID int64, date timetricks.Date) (tides.Event, error) {
	t, err := timetricks.ParseTimeOfDay(e.TideTime)
	if err != nil {
		return tides.Event{}, err
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(e.TideHeightMt), 64)
	if err != nil {
		return tides.Event{}, fmt.Errorf("water height %q not a float: %w", e.TideHeightMt, err)
	}
	kind, err := tides.ParseKind(e.TideType)
	if err != nil {
		return tides.Event{}, err
	}
	return tides.Event{
		LocationID: locationID,
		Date:       date,
		Time:       t,
		Height:     height,
		Kind:       kind,
	}, nil
}

// Events flattens the result into tide events for a location. Entries that
// cannot be read are returned as errors alongside the good events.
func (r *MarineResult) Events(locationID int64) ([]tides.Event, []error) {
	var (
		events []tides.Event
		errs   []error
	)
	for _, w := range r.Data.Weather {
		date, err := timetricks.ParseDate(w.Date)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, group := range w.Tides {
			for _, entry := range group.TideData {
				e, err := entry.Event(locationID, date)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s %s: %w", w.Date, entry.TideTime, err))
					continue
				}
				events = append(events, e)
			}
		}
	}
	tides.SortEvents(events)
	return events, errs
}
