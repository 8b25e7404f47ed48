package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/predictor"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/report"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/watch"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Handler serves the watch session to a rendering layer.
type Handler struct {
	Session    *watch.Session
	Reports    *report.Builder
	Thresholds decision.Thresholds
	// Metrics is mounted on /metrics when set (promhttp.Handler()).
	Metrics http.Handler
}

type errorResponse struct {
	Ok      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type decisionView struct {
	RUL     *float64      `json:"rul"`
	Status  domain.Status `json:"status"`
	Message string        `json:"message"`
	Color   string        `json:"color"`
}

type outcomeView struct {
	Reading    domain.SensorReading `json:"reading"`
	Origin     predictor.Origin     `json:"origin"`
	Decision   decisionView         `json:"decision"`
	ModelError string               `json:"model_error,omitempty"`
}

type stateView struct {
	ID         string                `json:"id"`
	AutoRecord bool                  `json:"auto_record"`
	Recorded   int                   `json:"recorded"`
	Latest     *domain.SensorReading `json:"latest"`
	Last       *outcomeView          `json:"last"`
	History    []outcomeView         `json:"history"`
}

type recordView struct {
	Timestamp   time.Time     `json:"timestamp"`
	Temperature float64       `json:"temperature"`
	Vibration   float64       `json:"vibration"`
	Torque      float64       `json:"torque"`
	RUL         *float64      `json:"rul"`
	Status      domain.Status `json:"status"`
}

// Router builds the chi router with the same middleware stack as the other
// services.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/state", h.handleState)
	r.Post("/predictions", h.handleRecord)
	r.Get("/classify", h.handleClassify)
	r.Post("/reports", h.handleReport)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	st := h.Session.Snapshot()
	view := stateView{
		ID:         st.ID,
		AutoRecord: st.AutoRecord,
		Recorded:   st.Recorded,
		Latest:     st.Latest,
		History:    make([]outcomeView, 0, len(st.History)),
	}
	if st.Last != nil {
		v := toOutcomeView(*st.Last)
		view.Last = &v
	}
	for _, o := range st.History {
		view.History = append(view.History, toOutcomeView(o))
	}
	writeJSON(w, http.StatusOK, view)
}

// handleRecord appends the latest outcome when the body is empty, otherwise
// the six ledger fields given in the body.
func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var rec domain.PredictionRecord
	if len(body) == 0 {
		rec, err = h.Session.RecordLatest(r.Context())
	} else {
		var raw map[string]any
		if err := json.Unmarshal(body, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		rec, err = ledger.RecordFromFields(stringFields(raw))
		if err == nil {
			err = h.Session.Record(r.Context(), rec)
		}
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toRecordView(rec))
	case errors.Is(err, ledger.ErrMissingField):
		writeError(w, http.StatusBadRequest, "missing_field", err.Error())
	case errors.Is(err, ledger.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error())
	case errors.Is(err, watch.ErrNoReading):
		writeError(w, http.StatusConflict, "no_reading", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "ledger_error", err.Error())
	}
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rul, err := strconv.ParseFloat(q.Get("rul"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "rul must be a number")
		return
	}
	th := h.Thresholds
	for key, dst := range map[string]*float64{"critical": &th.Critical, "planned": &th.Planned} {
		if s := q.Get(key); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request", key+" must be a number")
				return
			}
			*dst = v
		}
	}
	writeJSON(w, http.StatusOK, toDecisionView(decision.Classify(rul, th)))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	path, err := h.Reports.Build(r.URL.Query().Get("date"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "path": path})
	case errors.Is(err, report.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, report.ErrLedgerMissing), errors.Is(err, report.ErrLedgerEmpty), errors.Is(err, report.ErrNoRowsForDate):
		writeError(w, http.StatusNotFound, "no_data", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "report_error", err.Error())
	}
}

func stringFields(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
		default:
			b, _ := json.Marshal(val)
			out[k] = string(b)
		}
	}
	return out
}

// finite maps NaN and infinities to null, which JSON can carry.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toDecisionView(d decision.Decision) decisionView {
	return decisionView{RUL: finite(d.RUL), Status: d.Status, Message: d.Message, Color: d.Color}
}

func toOutcomeView(o predictor.Outcome) outcomeView {
	return outcomeView{Reading: o.Reading, Origin: o.Origin, Decision: toDecisionView(o.Decision), ModelError: o.ModelError}
}

func toRecordView(r domain.PredictionRecord) recordView {
	return recordView{
		Timestamp:   r.Timestamp,
		Temperature: r.Temperature,
		Vibration:   r.Vibration,
		Torque:      r.Torque,
		RUL:         finite(r.RUL),
		Status:      r.Status,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Ok: false, Code: code, Message: msg})
}
