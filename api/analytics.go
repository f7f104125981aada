package api

import (
	"net/http"

	"github.com/eventhawk/eventhawk/analytics"
)

func (s *Server) handleBarFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"features": s.analytics.Features()})
}

func (s *Server) handleBarData(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	feature := params.Get("feature")
	if feature == "" {
		writeDetail(w, http.StatusBadRequest, "feature is required")
		return
	}

	req := analytics.BarRequest{
		Feature:   feature,
		StartDate: params.Get("start_date"),
		EndDate:   params.Get("end_date"),
		Bin:       analytics.ParseBin(params.Get("bin_size")),
	}
	bars, err := s.analytics.BarData(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     bars,
		"feature":  feature,
		"bin_size": req.Bin,
	})
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	bin := analytics.ParseBin(r.URL.Query().Get("bin_size"))
	points, err := s.analytics.TimeSeries(r.Context(), bin)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": points, "bin_size": bin})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.analytics.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analytics.CacheStatus())
}
