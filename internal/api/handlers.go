package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/dialer-admin/internal/export"
	"github.com/sells-group/dialer-admin/internal/importer"
	"github.com/sells-group/dialer-admin/internal/ingest"
	"github.com/sells-group/dialer-admin/internal/model"
	"github.com/sells-group/dialer-admin/internal/store"
)

const (
	// wipeConfirmToken must be supplied to the destructive wipe endpoint.
	wipeConfirmToken = "ERASE"

	dateLayout = "2006-01-02"

	maxUploadBytes = 64 << 20
)

// statusResponse is the single-call dashboard payload.
type statusResponse struct {
	Status    model.DialerStatus `json:"status"`
	Speed     int                `json:"speed"`
	CallerIDs []string           `json:"caller_ids"`
	Stats     model.Stats        `json:"stats"`
}

// handleStatus returns the dialer switch, speed, caller IDs, and KPI
// counters in one call. Reads that fail fall back to the documented
// defaults so a half-broken database still renders a dashboard; each
// fallback is logged.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statusResponse{
		Status:    store.DefaultStatus,
		Speed:     store.DefaultSpeed,
		CallerIDs: []string{},
	}

	if status, err := s.store.DialerStatus(ctx); err != nil {
		zap.L().Warn("status read failed, using default", zap.Error(err))
	} else {
		resp.Status = status
	}
	if speed, err := s.store.DialerSpeed(ctx); err != nil {
		zap.L().Warn("speed read failed, using default", zap.Error(err))
	} else {
		resp.Speed = speed
	}
	if ids, err := s.store.CallerIDs(ctx); err != nil {
		zap.L().Warn("caller IDs read failed, using default", zap.Error(err))
	} else if ids != nil {
		resp.CallerIDs = ids
	}
	if stats, err := s.store.Stats(ctx); err != nil {
		zap.L().Warn("stats read failed, using zeros", zap.Error(err))
	} else {
		resp.Stats = stats
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDialerStart(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, model.StatusOn)
}

func (s *Server) handleDialerStop(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, model.StatusOff)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, status model.DialerStatus) {
	if err := s.store.SetDialerStatus(r.Context(), status); err != nil {
		zap.L().Error("set dialer status failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update dialer status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]model.DialerStatus{"status": status})
}

func (s *Server) handleDialerSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Speed int `json:"speed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !store.ValidSpeed(req.Speed) {
		respondError(w, http.StatusBadRequest, "speed must be between 10 and 60 in steps of 5")
		return
	}
	if err := s.store.SetDialerSpeed(r.Context(), req.Speed); err != nil {
		zap.L().Error("set dialer speed failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update dialer speed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"speed": req.Speed})
}

func (s *Server) handleDialerCallers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CallerIDs []string `json:"caller_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.CallerIDs) > store.MaxCallerIDs {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("at most %d caller IDs allowed", store.MaxCallerIDs))
		return
	}
	if err := s.store.SetCallerIDs(r.Context(), req.CallerIDs); err != nil {
		zap.L().Error("set caller IDs failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update caller IDs")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"caller_ids": req.CallerIDs})
}

// handleImport accepts a multipart upload (field "file") plus the
// phone_column and optional name_column form fields, and runs the full
// import pipeline against the destination named in the URL.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	dest := model.ImportDestination(chi.URLParam(r, "destination"))
	if !dest.Valid() {
		respondError(w, http.StatusNotFound, "unknown import destination")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	phoneCol := r.FormValue("phone_column")
	if phoneCol == "" {
		respondError(w, http.StatusBadRequest, "missing phone_column field")
		return
	}

	tbl, err := ingest.ReadFrom(file, header.Filename)
	if err != nil {
		zap.L().Warn("upload parse failed", zap.String("filename", header.Filename), zap.Error(err))
		respondError(w, http.StatusBadRequest, "could not parse uploaded file")
		return
	}

	report, err := importer.Execute(r.Context(), s.store, tbl, importer.ExecuteOptions{
		Destination: dest,
		PhoneColumn: phoneCol,
		NameColumn:  r.FormValue("name_column"),
		ChunkSize:   s.opts.ChunkSize,
		Filename:    header.Filename,
	})
	if err != nil {
		zap.L().Error("import failed", zap.String("destination", string(dest)), zap.Error(err))
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := http.StatusOK
	if !report.Write.OK() {
		// Partial write: some chunks landed, some did not.
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, report)
}

func (s *Server) handleResetFailed(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.ResetFailedLeads(r.Context(), model.RetryableResults)
	if err != nil {
		zap.L().Error("reset failed leads failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to reset leads")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"reset": n})
}

// handleWipeLeads deletes every lead. The confirm query parameter must
// spell ERASE; anything else is rejected before the store is touched.
func (s *Server) handleWipeLeads(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != wipeConfirmToken {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("confirm=%s is required to wipe all leads", wipeConfirmToken))
		return
	}
	n, err := s.store.WipeLeads(r.Context())
	if err != nil {
		zap.L().Error("wipe leads failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to wipe leads")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// handleExport streams an xlsx workbook of the successful calls between
// from and to (inclusive, whole days).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := s.store.SuccessfulLeads(r.Context(), from, to)
	if err != nil {
		zap.L().Error("export query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	if len(leads) == 0 {
		respondError(w, http.StatusNotFound, "no successful calls in the selected range")
		return
	}

	filename := fmt.Sprintf("resultaten_%s_%s.xlsx",
		from.Format(dateLayout), to.Format(dateLayout))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.Write(w, leads, s.opts.SurveyName); err != nil && !errors.Is(err, export.ErrNoResults) {
		// Headers are already out; all we can do is log.
		zap.L().Error("export write failed", zap.Error(err))
	}
}

// parseDateRange parses from/to as whole days, extending to to the last
// second of its day so the range is inclusive.
func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to query parameters are required (YYYY-MM-DD)")
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q", fromStr)
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q", toStr)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to date precedes from date")
	}
	to = to.Add(24*time.Hour - time.Second)
	return from, to, nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
