// Package server exposes comparisons over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/sim/compare"
	"github.com/patientflow-sim/patientflow/store"
)

const (
	maxDays         = 60
	maxReplications = 50
)

// Options wires the router.
type Options struct {
	Repo     store.Repository
	Profiles []sim.Profile
	// Parallelism caps concurrent runs per request (default GOMAXPROCS).
	Parallelism int
}

type api struct {
	repo        store.Repository
	profiles    []sim.Profile
	parallelism int
}

// NewRouter returns the HTTP handler.
func NewRouter(opts Options) http.Handler {
	a := &api{repo: opts.Repo, profiles: opts.Profiles, parallelism: opts.Parallelism}
	if a.repo == nil {
		a.repo = store.NewMemoryRepository()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/hospitals", a.listHospitals)
	r.Route("/comparisons", func(r chi.Router) {
		r.Post("/", a.createComparison)
		r.Get("/", a.listComparisons)
		r.Get("/{id}", a.getComparison)
	})
	return r
}

// requestLogger logs one line per request through logrus.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"request_id": chimw.GetReqID(r.Context()),
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start),
		}).Infof("%s %s", r.Method, r.URL.Path)
	})
}

type hospitalView struct {
	Name     string           `json:"name"`
	Enhanced sim.Capabilities `json:"enhanced"`
	RunDays  float64          `json:"run_days"`
}

func (a *api) listHospitals(w http.ResponseWriter, _ *http.Request) {
	out := make([]hospitalView, 0, len(a.profiles))
	for _, p := range a.profiles {
		out = append(out, hospitalView{Name: p.Name, Enhanced: p.Enhanced, RunDays: p.Scenario.RunDays()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) createComparison(w http.ResponseWriter, r *http.Request) {
	var req store.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	profiles, err := sim.SelectProfiles(a.profiles, req.Hospitals)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	parallelism := req.Parallelism
	if a.parallelism > 0 && (parallelism <= 0 || parallelism > a.parallelism) {
		parallelism = a.parallelism
	}
	d := &compare.Driver{
		Profiles:     profiles,
		Days:         req.Days,
		Replications: req.Replications,
		Seed:         req.Seed,
		Parallelism:  parallelism,
	}
	cmp, err := d.Run(r.Context())
	if err != nil {
		logrus.Warnf("comparison aborted: %v", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	rec := store.NewRecord(req, cmp)
	if err := a.repo.Save(r.Context(), rec); err != nil {
		logrus.Errorf("saving comparison %s: %v", rec.ID, err)
		writeError(w, http.StatusInternalServerError, "could not store comparison")
		return
	}
	w.Header().Set("Location", "/comparisons/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func validateRequest(req store.Request) error {
	if req.Days < 0 || req.Days > maxDays {
		return fmt.Errorf("days must be in [0, %d]", maxDays)
	}
	if req.Replications < 0 || req.Replications > maxReplications {
		return fmt.Errorf("replications must be in [0, %d]", maxReplications)
	}
	if req.Parallelism < 0 {
		return errors.New("parallelism must be non-negative")
	}
	return nil
}

func (a *api) listComparisons(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := a.repo.List(r.Context(), limit)
	if err != nil {
		logrus.Errorf("listing comparisons: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list comparisons")
		return
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *api) getComparison(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := a.repo.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "comparison not found")
		return
	}
	if err != nil {
		logrus.Errorf("loading comparison %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "could not load comparison")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
