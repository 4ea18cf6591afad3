// Package wwo fetches tide forecasts from the WorldWeatherOnline marine API.
//
// The API returns tides per forecast day:
//
//	{"data": {"weather": [{"date": "2024-11-08", "tides": [{"tide_data": [
//	    {"tideTime": "2:15 AM", "tideHeight_mt": "0.30", "tide_type": "LOW"}, ...]}]}]}}
//
// Heights are meters and times are local to the queried coordinates.
package wwo
