package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/spencer-p/tidegraph/pkg/cache"
	"github.com/spencer-p/tidegraph/pkg/data"
	"github.com/spencer-p/tidegraph/pkg/sunset"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
	"github.com/spencer-p/tidegraph/pkg/visualize"
)

const defaultTideDays = 7

// Reader is the storage the handlers serve from.
type Reader interface {
	Locations(ctx context.Context) ([]data.Location, error)
	Location(ctx context.Context, id int64) (data.Location, error)
	TideEvents(ctx context.Context, locationID int64, from, to timetricks.Date) ([]tides.Event, error)
	GraphSamples(ctx context.Context, locationID int64) ([]tides.Sample, error)
}

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	store Reader
	cache cache.Store
	units tides.Units
	now   func() time.Time
}

// Register adds the API routes to r. Graph responses are cached in c, which
// the rebuild job invalidates.
func Register(r *mux.Router, store Reader, c cache.Store, units tides.Units) {
	h := &handlers{
		store: store,
		cache: c,
		units: units,
		now:   time.Now,
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/locations", h.serveLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}/tides", h.serveTides).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}/graph", h.serveGraph).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}/graph.svg", h.serveGraphSVG).Methods(http.MethodGet)
}

// RegisterHealth adds a liveness route that checks storage.
func RegisterHealth(r *mux.Router, p Pinger) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, err)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

func (h *handlers) serveLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.store.Locations(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, locs)
}

// tideView is a tide event as served.
type tideView struct {
	Date   timetricks.Date      `json:"date"`
	Time   timetricks.TimeOfDay `json:"time"`
	Height float64              `json:"height"`
	Kind   tides.Kind           `json:"kind"`
}

func (h *handlers) serveTides(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	units, ok := h.parseUnits(w, r)
	if !ok {
		return
	}

	from := timetricks.DateOf(h.now().In(placeOf(loc).Location))
	if s := r.FormValue("from"); s != "" {
		d, err := timetricks.ParseDate(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		from = d
	}
	days := defaultTideDays
	if s := r.FormValue("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("days must be a positive integer, got %q", s))
			return
		}
		days = n
	}

	events, err := h.store.TideEvents(r.Context(), loc.ID, from, from.AddDays(days))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	views := make([]tideView, len(events))
	for i, e := range events {
		views[i] = tideView{
			Date:   e.Date,
			Time:   e.Time,
			Height: tides.ConvertHeight(e.Height, units),
			Kind:   e.Kind,
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"location_id": loc.ID,
		"units":       units,
		"tides":       views,
	})
}

// sampleView is a graph sample as served. Kind is empty for interpolated
// points.
type sampleView struct {
	Date   timetricks.Date      `json:"date"`
	Time   timetricks.TimeOfDay `json:"time"`
	Height float64              `json:"height"`
	Kind   *tides.Kind          `json:"kind,omitempty"`
}

type daylightView struct {
	Date    timetricks.Date `json:"date"`
	Sunrise string          `json:"sunrise"`
	Sunset  string          `json:"sunset"`
}

type graphView struct {
	LocationID int64          `json:"location_id"`
	Name       string         `json:"name"`
	Units      tides.Units    `json:"units"`
	Samples    []sampleView   `json:"samples"`
	Daylight   []daylightView `json:"daylight"`
}

func (h *handlers) serveGraph(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	units, ok := h.parseUnits(w, r)
	if !ok {
		return
	}

	// serve cache version from memory if possible
	key := cache.GraphKey(loc.ID, string(units))
	if cached, ok := h.cache.Get(r.Context(), key); ok {
		w.Header().Add("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	samples, err := h.store.GraphSamples(r.Context(), loc.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if len(samples) == 0 {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("no graph for location %d", loc.ID))
		return
	}

	view := graphView{
		LocationID: loc.ID,
		Name:       loc.Name,
		Units:      units,
		Samples:    make([]sampleView, len(samples)),
		Daylight:   daylight(samples, placeOf(loc)),
	}
	for i, s := range samples {
		view.Samples[i] = sampleView{
			Date:   s.Date,
			Time:   s.Time,
			Height: tides.ConvertHeight(s.Height, units),
			Kind:   s.Kind,
		}
	}

	// duplicate the http response onto a buffer for the cache
	var toCache bytes.Buffer
	mw := io.MultiWriter(w, &toCache)
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(mw).Encode(view); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode graph")
		return
	}
	h.cache.Set(r.Context(), key, toCache.Bytes())
}

func (h *handlers) serveGraphSVG(w http.ResponseWriter, r *http.Request) {
	loc, ok := h.location(w, r)
	if !ok {
		return
	}
	units, ok := h.parseUnits(w, r)
	if !ok {
		return
	}
	place := placeOf(loc)

	date := timetricks.DateOf(h.now().In(place.Location))
	if s := r.FormValue("date"); s != "" {
		d, err := timetricks.ParseDate(s)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		date = d
	}

	samples, err := h.store.GraphSamples(r.Context(), loc.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	img := visualize.NewTidal(samples, sunset.GetSunEvents(date, 1, place), units)
	img.SetDate(date, place.Location)
	var buf bytes.Buffer
	if _, err := img.Encode(&buf); err != nil {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	w.Header().Add("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// location resolves the {id} route variable, writing the error response
// itself when it fails.
func (h *handlers) location(w http.ResponseWriter, r *http.Request) (data.Location, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("bad location id: %w", err))
		return data.Location{}, false
	}
	loc, err := h.store.Location(r.Context(), id)
	if errors.Is(err, data.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return data.Location{}, false
	} else if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return data.Location{}, false
	}
	return loc, true
}

func (h *handlers) parseUnits(w http.ResponseWriter, r *http.Request) (tides.Units, bool) {
	s := r.FormValue("units")
	if s == "" {
		return h.units, true
	}
	u, err := tides.ParseUnits(s)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return u, true
}

// placeOf falls back to UTC for locations with a missing or unknown zone.
func placeOf(loc data.Location) sunset.Place {
	place, err := sunset.NewPlace(loc.Latitude, loc.Longitude, loc.TimeZone)
	if err != nil {
		return sunset.Place{Lat: loc.Latitude, Long: loc.Longitude, Location: time.UTC}
	}
	return place
}

// daylight lists sunrise and sunset for each date the samples cover.
func daylight(samples []tides.Sample, place sunset.Place) []daylightView {
	first, last := samples[0].Date, samples[len(samples)-1].Date
	days := last.DaysSince(first) + 1
	events := sunset.GetSunEvents(first, days, place)

	views := make([]daylightView, 0, days)
	for i := 0; i < days; i++ {
		d := first.AddDays(i)
		rise, set, ok := events.On(d, place.Location)
		if !ok {
			continue
		}
		views = append(views, daylightView{
			Date:    d,
			Sunrise: rise.Format("15:04"),
			Sunset:  set.Format("15:04"),
		})
	}
	return views
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode JSON result")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	event := zerolog.Ctx(r.Context()).Warn()
	if code >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Int("code", code).
		Msg("Request failed")
	writeJSON(w, r, code, map[string]string{"error": err.Error()})
}
