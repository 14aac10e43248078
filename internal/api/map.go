package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sells-group/market-intel/internal/geo"
)

func (s *Server) handleInterconnectors(w http.ResponseWriter, r *http.Request) {
	list := geo.FilterByCountries(s.deps.Interconnectors, r.URL.Query()["country"])
	fc, err := geo.FeatureCollection(list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	b, err := json.Marshal(fc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s *Server) handleMapCountries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"countries": geo.Countries(s.deps.Interconnectors),
		"center":    geo.Center,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "hours", "hours must be a non-negative integer")
			return
		}
		hours = n
	}
	snap, err := s.deps.Collector.Collect(r.Context(), hours)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
