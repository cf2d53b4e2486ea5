// Package results exposes stored group results and their aggregates over
// HTTP.
package results

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/conformance/core/logger"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/report"
	"github.com/kilianp07/conformance/infra/store"
)

// Handler serves a results reader.
type Handler struct {
	src store.Reader
	log logger.Logger
}

// NewRouter returns the API routes. The metrics of gatherer are exposed on
// /metrics when it is not nil.
func NewRouter(src store.Reader, gatherer prometheus.Gatherer, log logger.Logger) *mux.Router {
	h := &Handler{src: src, log: log}
	r := mux.NewRouter()
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/api/results", h.listResults).Methods(http.MethodGet)
	r.HandleFunc("/api/results/{year:[0-9]+}/{week:[0-9]+}/{department}", h.getResult).Methods(http.MethodGet)
	r.HandleFunc("/api/report/departments", h.reportBy(func(rep report.Report) []report.Row { return rep.ByDepartment })).Methods(http.MethodGet)
	r.HandleFunc("/api/report/weeks", h.reportBy(func(rep report.Report) []report.Row { return rep.ByWeek })).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// query reads the filters shared by every listing endpoint.
func query(r *http.Request) (store.Query, error) {
	v := r.URL.Query()
	q := store.Query{
		Case:       v.Get("case"),
		Department: v.Get("department"),
		Status:     model.Status(v.Get("status")),
	}
	var err error
	if s := v.Get("year"); s != "" {
		if q.Year, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("week"); s != "" {
		if q.Week, err = strconv.Atoi(s); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request) {
	q, err := query(r)
	if err != nil {
		http.Error(w, "invalid filter: "+err.Error(), http.StatusBadRequest)
		return
	}
	res, err := h.src.Query(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	if res == nil {
		res = []model.FitnessResult{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getResult(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, _ := strconv.Atoi(vars["year"])
	week, _ := strconv.Atoi(vars["week"])
	q := store.Query{Year: year, Week: week, Department: vars["department"], Case: r.URL.Query().Get("case")}
	res, err := h.src.Query(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	if len(res) == 0 {
		http.Error(w, "group not found", http.StatusNotFound)
		return
	}
	if len(res) == 1 {
		writeJSON(w, http.StatusOK, res[0])
		return
	}
	// The group was scored in several cases.
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) reportBy(rows func(report.Report) []report.Row) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := query(r)
		if err != nil {
			http.Error(w, "invalid filter: "+err.Error(), http.StatusBadRequest)
			return
		}
		res, err := h.src.Query(r.Context(), q)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows(report.Build(q.Case, res)))
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.log.Errorf("query results: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
