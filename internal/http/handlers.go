package http

import (
	"errors"
	"net/http"

	"paycal/internal/calendar"
	"paycal/internal/core"
	"paycal/internal/ingest"
	"paycal/internal/log"
	"paycal/internal/normalize"
	"paycal/internal/storage"
)

type planRequest struct {
	Batch   *normalize.RawBatch `json:"batch,omitempty"`
	Payload *core.Payload       `json:"payload,omitempty"`
	Focus   string              `json:"focus,omitempty"`
}

type planResponse struct {
	Payload     *core.Payload      `json:"payload"`
	Plan        *core.CalendarPlan `json:"plan"`
	Explanation []string           `json:"explanation"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var batch normalize.RawBatch
	if err := decodeJSON(r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction batch")
		return
	}
	writeJSON(w, http.StatusOK, normalize.Normalize(batch))
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var payload core.Payload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	focus := resolveFocus(r.URL.Query().Get("focus"), &payload)
	plan := calendar.Optimize(&payload, focus)
	s.logger.LogPlanBuilt(r.Context(), string(focus), len(plan.Changes), len(payload.CashOut))

	writeJSON(w, http.StatusOK, plan)
}

// handlePlan runs the full pipeline: batch to payload to plan to narration.
// With an empty body the configured fixture supplies the batch.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid plan request")
			return
		}
	}

	payload := req.Payload
	if payload == nil {
		batch, status, err := s.resolveBatch(req.Batch)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		payload = normalize.Normalize(batch)
	}

	focusParam := req.Focus
	if focusParam == "" {
		focusParam = r.URL.Query().Get("focus")
	}
	focus := resolveFocus(focusParam, payload)

	plan := calendar.Optimize(payload, focus)
	s.logger.LogPlanBuilt(r.Context(), string(focus), len(plan.Changes), len(payload.CashOut))

	bullets, err := s.explainer.Explain(r.Context(), payload, plan, focus)
	if err != nil {
		s.logger.LogError(r.Context(), "Explanation failed", err, log.ComponentExplain, log.OpExplain, log.NewFields())
		bullets = plan.Explain
	}

	writeJSON(w, http.StatusOK, planResponse{
		Payload:     payload,
		Plan:        plan,
		Explanation: bullets,
	})
}

func (s *Server) resolveBatch(batch *normalize.RawBatch) (normalize.RawBatch, int, error) {
	if batch != nil {
		return *batch, 0, nil
	}
	if s.fixturePath == "" {
		return normalize.RawBatch{}, http.StatusBadRequest, errors.New("no batch supplied and no fixture configured")
	}
	loaded, err := s.loadFixture()
	if err != nil {
		return normalize.RawBatch{}, http.StatusServiceUnavailable, errors.New("fixture unavailable")
	}
	return loaded, 0, nil
}

// resolveFocus prefers the caller's choice and falls back to the picker.
func resolveFocus(param string, payload *core.Payload) core.Focus {
	if param != "" {
		return core.ParseFocus(param)
	}
	return calendar.PickFocus(payload)
}

type transactionsResponse struct {
	Summary      ingest.Summary             `json:"summary"`
	Transactions []normalize.RawTransaction `json:"transactions"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if s.fixturePath == "" {
		writeError(w, http.StatusServiceUnavailable, "no fixture configured")
		return
	}
	batch, err := s.loadFixture()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "fixture unavailable")
		return
	}

	q := r.URL.Query()
	if category := q.Get("category"); category != "" {
		writeJSON(w, http.StatusOK, ingest.FilterByCategory(batch, category))
		return
	}

	transactions := batch.Added
	startParam, endParam := q.Get("start"), q.Get("end")
	if startParam != "" || endParam != "" {
		start, err1 := core.ParseDate(startParam)
		end, err2 := core.ParseDate(endParam)
		if err1 != nil || err2 != nil {
			writeError(w, http.StatusBadRequest, "start and end must both be YYYY-MM-DD")
			return
		}
		transactions = ingest.FilterByDateRange(batch, start, end)
	}

	writeJSON(w, http.StatusOK, transactionsResponse{
		Summary:      ingest.Summarize(batch),
		Transactions: transactions,
	})
}

type moveRequest struct {
	TransactionID string  `json:"transaction_id"`
	MerchantName  string  `json:"merchant_name"`
	OriginalDate  string  `json:"original_date"`
	NewDate       string  `json:"new_date"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

func (s *Server) handleRecordMove(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "modification store not configured")
		return
	}

	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid move request")
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusUnprocessableEntity, "transaction_id is required")
		return
	}
	if _, err := core.ParseDate(req.NewDate); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "new_date must be YYYY-MM-DD")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	mod, err := s.store.RecordMove(r.Context(), req.TransactionID, req.MerchantName,
		req.OriginalDate, req.NewDate, req.Amount, req.Reason)
	if err != nil {
		s.logger.LogError(r.Context(), "Record move failed", err, log.ComponentHTTP, log.OpCreate, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not record modification")
		return
	}

	writeJSON(w, http.StatusCreated, mod)
}

type plannedRequest struct {
	MerchantName string  `json:"merchant_name"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Category     string  `json:"category"`
	Reason       string  `json:"reason"`
}

func (s *Server) handleRecordPlanned(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "modification store not configured")
		return
	}

	var req plannedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid planned transaction request")
		return
	}
	if req.MerchantName == "" {
		writeError(w, http.StatusUnprocessableEntity, "merchant_name is required")
		return
	}
	if _, err := core.ParseDate(req.Date); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
		return
	}

	mod, err := s.store.RecordPlanned(r.Context(), req.MerchantName, req.Date,
		req.Amount, req.Category, req.Reason)
	if err != nil {
		s.logger.LogError(r.Context(), "Record planned failed", err, log.ComponentHTTP, log.OpCreate, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not record modification")
		return
	}

	writeJSON(w, http.StatusCreated, mod)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "modification store not configured")
		return
	}

	id := r.PathValue("id")
	mod, err := s.store.Approve(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "modification not found")
			return
		}
		s.logger.LogError(r.Context(), "Approve failed", err, log.ComponentHTTP, log.OpUpdate, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not approve modification")
		return
	}

	// Approval is what makes a modification exportable, so announce it now.
	// The sweep catches it later if the broker is down.
	if s.publisher != nil {
		if err := s.publisher.PublishModification(r.Context(), mod.ID); err != nil {
			s.logger.LogError(r.Context(), "Publish after approve failed", err, log.ComponentHTTP, log.OpUpdate,
				log.NewFields().WithModification(mod.ID))
		}
	}

	writeJSON(w, http.StatusOK, mod)
}

type modificationListResponse struct {
	Modifications []storage.Modification `json:"modifications"`
	Summary       storage.Summary        `json:"summary"`
}

func (s *Server) handleListModifications(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "modification store not configured")
		return
	}

	mods, err := s.store.List(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "List modifications failed", err, log.ComponentHTTP, log.OpList, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not list modifications")
		return
	}
	summary, err := s.store.Summarize(r.Context())
	if err != nil {
		s.logger.LogError(r.Context(), "Summarize modifications failed", err, log.ComponentHTTP, log.OpList, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not summarize modifications")
		return
	}
	if mods == nil {
		mods = []storage.Modification{}
	}

	writeJSON(w, http.StatusOK, modificationListResponse{Modifications: mods, Summary: summary})
}

func (s *Server) handleClearModifications(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "modification store not configured")
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.LogError(r.Context(), "Clear modifications failed", err, log.ComponentHTTP, log.OpDelete, log.NewFields())
		writeError(w, http.StatusInternalServerError, "could not clear modifications")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
