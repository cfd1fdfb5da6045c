package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/netcover/coverage"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(dataset *coverage.Dataset, config *coverage.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Sites     int       `json:"sites"`
			Regions   int       `json:"regions"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Sites:     dataset.SiteCount(),
			Regions:   dataset.Regions().Len(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Coverage classification endpoint
	mux.HandleFunc("/api/coverage", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := dataset.Classify(q)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, res)
	})

	// Nearest sites endpoint
	mux.HandleFunc("/api/nearest", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		nearest, err := dataset.NearestK(q.GeoPoint, q.K)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, struct {
			Query   coverage.GeoPoint       `json:"query"`
			Nearest []coverage.SiteDistance `json:"nearest"`
		}{q.GeoPoint, nearest})
	})

	// Per-state density endpoint
	mux.HandleFunc("/api/density", func(w http.ResponseWriter, r *http.Request) {
		report, err := dataset.Density()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, report)
	})

	// Site recommendation endpoint
	mux.HandleFunc("/api/recommend", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := dataset.Classify(q)
		if err != nil {
			writeError(w, err)
			return
		}

		cand, err := dataset.Recommend(res, nil)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, struct {
			Result    coverage.CoverageResult `json:"result"`
			Candidate coverage.CandidateSite  `json:"candidate"`
		}{res, cand})
	})

	// GeoJSON export endpoints
	mux.HandleFunc("/coverage.geojson", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := dataset.Classify(q)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(coverage.ResultFeatureCollection(res)); err != nil {
			log.Printf("Error encoding coverage GeoJSON: %v", err)
		}
	})

	mux.HandleFunc("/density.geojson", func(w http.ResponseWriter, r *http.Request) {
		report, err := dataset.Density()
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Cache-Control", "no-cache")
		if err := json.NewEncoder(w).Encode(coverage.DensityFeatureCollection(report, dataset.Regions())); err != nil {
			log.Printf("Error encoding density GeoJSON: %v", err)
		}
	})

	// Static map endpoints
	mux.HandleFunc("/coverage-map.svg", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := dataset.Classify(q)
		if err != nil {
			writeError(w, err)
			return
		}

		renderer := coverage.NewCoverageRenderer(res, dataset.Regions())
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w); err != nil {
			log.Printf("Error encoding coverage map SVG: %v", err)
		}
	})

	mux.HandleFunc("/coverage-map.png", func(w http.ResponseWriter, r *http.Request) {
		q, err := queryFromRequest(r, config)
		if err != nil {
			writeError(w, err)
			return
		}

		res, err := dataset.Classify(q)
		if err != nil {
			writeError(w, err)
			return
		}

		renderer := coverage.NewCoverageRenderer(res, dataset.Regions())
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToPNG(w); err != nil {
			log.Printf("Error encoding coverage map PNG: %v", err)
		}
	})

	// Default route serves an HTML page embedding the SVG map
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>netcover</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
html,body{width:100%;height:100%;overflow:hidden;background:#f5f5f5}
img{display:block;width:100vw;height:100vh;object-fit:contain}
</style>
</head>
<body>
<img src="/coverage-map.svg?lat=6.5244&lon=3.3792" alt="Coverage Map">
</body>
</html>`)
	})

	// Wrap mux with logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		mux.ServeHTTP(w, r)
	})
}

// queryFromRequest builds the query point from lat/lon/radius/k parameters,
// falling back to config defaults.
func queryFromRequest(r *http.Request, config *coverage.Config) (coverage.QueryPoint, error) {
	lat, err := floatParam(r, "lat")
	if err != nil {
		return coverage.QueryPoint{}, err
	}
	lon, err := floatParam(r, "lon")
	if err != nil {
		return coverage.QueryPoint{}, err
	}

	q := config.Query(lat, lon)

	if v := r.URL.Query().Get("radius"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return coverage.QueryPoint{}, &coverage.ValidationError{Field: "radius", Reason: "not a number"}
		}
		q.RadiusKm = radius
	}
	if v := r.URL.Query().Get("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil || k < 1 {
			return coverage.QueryPoint{}, &coverage.ValidationError{Field: "k", Reason: "must be a positive integer"}
		}
		q.K = k
	}
	return q, nil
}

func floatParam(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, &coverage.ValidationError{Field: name, Reason: "missing"}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &coverage.ValidationError{Field: name, Reason: "not a number"}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes. Bad input and
// asking for a recommendation where none applies are the caller's fault;
// a missing dataset is ours.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case coverage.IsValidation(err) || errors.Is(err, coverage.ErrCoverageAdequate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case coverage.IsDataUnavailable(err):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
