package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/nikah/internal/guestlist"
	"github.com/hyperjump/nikah/internal/models"
	"github.com/hyperjump/nikah/pkg/apperrors"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query.ClientID = clientID(r)

	result, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		body := errorBody(err)
		if apperrors.Is(err, apperrors.KindRateLimited) {
			body["remainingSearches"] = 0
			w.Header().Set("X-RateLimit-Remaining", "0")
		}
		s.respondAppError(w, err, body)
		return
	}
	if result.RemainingSearches != nil {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(*result.RemainingSearches))
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	if s.limiter == nil {
		s.respondError(w, http.StatusNotImplemented, "rate limiting not enabled")
		return
	}
	d, err := s.limiter.Peek(r.Context(), clientID(r))
	if err != nil {
		s.logger.Warn("Quota lookup failed", zap.Error(err))
		s.respondError(w, http.StatusServiceUnavailable, "quota is unavailable")
		return
	}
	s.respondJSON(w, http.StatusOK, s.limiter.Quota(d))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var sub models.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		verr := apperrors.NewValidation("invalid request body")
		s.respondAppError(w, verr, submitErrorBody(verr))
		return
	}
	conf, err := s.rsvp.Submit(r.Context(), &sub)
	if err != nil {
		s.respondAppError(w, err, submitErrorBody(err))
		return
	}
	s.respondJSON(w, http.StatusOK, conf)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	responses, err := s.storage.ListResponses(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("List responses failed", zap.Error(err))
		s.respondAppError(w, err, errorBody(err))
		return
	}
	summary, err := s.storage.SummarizeResponses(r.Context())
	if err != nil {
		s.logger.Error("Summarize responses failed", zap.Error(err))
		s.respondAppError(w, err, errorBody(err))
		return
	}
	if responses == nil {
		responses = []*models.Response{}
	}
	s.respondJSON(w, http.StatusOK, models.ResponseList{
		Responses: responses,
		Summary:   summary,
		Offset:    offset,
		Limit:     limit,
	})
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	rowIndex, err := strconv.Atoi(chi.URLParam(r, "rowIndex"))
	if err != nil || rowIndex < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid row index")
		return
	}
	resp, err := s.storage.GetResponse(r.Context(), rowIndex)
	if err != nil {
		s.respondAppError(w, err, errorBody(err))
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.status(r))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.directory.Refresh(r.Context()); err != nil {
		s.logger.Warn("Directory refresh failed", zap.Error(err))
		s.respondAppError(w, err, errorBody(err))
		return
	}
	s.respondJSON(w, http.StatusOK, s.status(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sizer interface {
	SizeBytes() (int64, error)
}

func (s *Server) status(r *http.Request) models.Status {
	st := models.Status{
		Directory: directoryStatus(s.directory.Status()),
		Version:   s.version,
	}
	if s.limiter != nil {
		p := s.limiter.Policy()
		st.RateLimit = models.RateLimitStatus{
			Enabled:     true,
			MaxSearches: p.MaxSearches,
			Window:      p.Window.String(),
		}
	}
	if summary, err := s.storage.SummarizeResponses(r.Context()); err == nil {
		st.Responses = summary
	} else {
		s.logger.Warn("Summarize responses failed", zap.Error(err))
	}
	if sz, ok := s.storage.(sizer); ok {
		if n, err := sz.SizeBytes(); err == nil {
			st.DatabaseBytes = n
		}
	}
	return st
}

func directoryStatus(gs guestlist.Status) models.DirectoryStatus {
	return models.DirectoryStatus{
		Loaded:       gs.Loaded,
		Fresh:        gs.Fresh,
		Guests:       gs.Guests,
		Families:     gs.Families,
		DegradedRows: gs.Degraded,
		Discarded:    gs.Discarded,
		Fingerprint:  gs.Fingerprint,
		LoadedAt:     gs.LoadedAt,
		Source:       gs.Source,
		RefreshEvery: gs.RefreshEvery.String(),
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{
		"error": apperrors.Message(err),
		"code":  apperrors.KindOf(err),
	}
}

func submitErrorBody(err error) map[string]interface{} {
	body := errorBody(err)
	body["success"] = false
	if apperrors.Retryable(err) {
		body["retryable"] = true
	}
	return body
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError writes body with the status mapped from err's kind.
func (s *Server) respondAppError(w http.ResponseWriter, err error, body map[string]interface{}) {
	kind := apperrors.KindOf(err)
	status := apperrors.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("code", string(kind)), zap.Error(err))
	}
	s.respondJSON(w, status, body)
}
