package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paycal/internal/core"
	"paycal/internal/storage"
)

// stubStore is an in-memory ModificationStore for handler tests.
type stubStore struct {
	mods   map[string]*storage.Modification
	nextID int
	fail   bool
}

func newStubStore() *stubStore {
	return &stubStore{mods: make(map[string]*storage.Modification)}
}

func (s *stubStore) add(modType storage.ModificationType, transactionID, merchant string) *storage.Modification {
	s.nextID++
	mod := &storage.Modification{
		ID:            fmt.Sprintf("mod_%d", s.nextID),
		Type:          modType,
		TransactionID: transactionID,
		MerchantName:  merchant,
		Status:        storage.StatusSuggested,
		ExportStatus:  storage.ExportPending,
		CreatedAt:     time.Now().UTC(),
	}
	s.mods[mod.ID] = mod
	return mod
}

func (s *stubStore) RecordMove(_ context.Context, transactionID, merchantName, originalDate, newDate string, amount float64, reason string) (*storage.Modification, error) {
	if s.fail {
		return nil, fmt.Errorf("store down")
	}
	mod := s.add(storage.ModificationMove, transactionID, merchantName)
	mod.OriginalDate = originalDate
	mod.NewDate = newDate
	mod.Amount = amount
	mod.Reason = reason
	return mod, nil
}

func (s *stubStore) RecordPlanned(_ context.Context, merchantName, date string, amount float64, category, reason string) (*storage.Modification, error) {
	if s.fail {
		return nil, fmt.Errorf("store down")
	}
	mod := s.add(storage.ModificationPlanned, "", merchantName)
	mod.NewDate = date
	mod.Amount = amount
	mod.Category = category
	mod.Reason = reason
	return mod, nil
}

func (s *stubStore) Approve(_ context.Context, modificationID string) (*storage.Modification, error) {
	mod, ok := s.mods[modificationID]
	if !ok {
		return nil, fmt.Errorf("modification %s: %w", modificationID, core.ErrNotFound)
	}
	mod.Status = storage.StatusApproved
	return mod, nil
}

func (s *stubStore) List(context.Context) ([]storage.Modification, error) {
	var out []storage.Modification
	for _, mod := range s.mods {
		out = append(out, *mod)
	}
	return out, nil
}

func (s *stubStore) Summarize(context.Context) (storage.Summary, error) {
	if s.fail {
		return storage.Summary{}, fmt.Errorf("store down")
	}
	return storage.Summary{TotalModifications: len(s.mods)}, nil
}

func (s *stubStore) Clear(context.Context) error {
	s.mods = make(map[string]*storage.Modification)
	return nil
}

type stubPublisher struct {
	published []string
	err       error
}

func (p *stubPublisher) PublishModification(_ context.Context, modificationID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, modificationID)
	return nil
}

func newTestServer(t *testing.T, store ModificationStore, publisher ModificationPublisher, fixturePath string) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:0", store, publisher, nil, fixturePath, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, newStubStore(), nil, "")

	if rec := doRequest(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
	if rec := doRequest(s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", rec.Code)
	}
}

func TestReadyReportsStoreFailure(t *testing.T) {
	store := newStubStore()
	store.fail = true
	s := newTestServer(t, store, nil, "")

	if rec := doRequest(s, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503 when the store is down", rec.Code)
	}
}

const batchBody = `{
  "accounts": [{"balances": {"available": 900, "current": 950}}],
  "added": [
    {"transaction_id": "t1", "name": "ACME PAYROLL", "amount": 2400, "date": "2024-03-01",
     "personal_finance_category": {"primary": "INCOME", "detailed": "INCOME_WAGES"}},
    {"transaction_id": "t2", "name": "Monthly Rent", "amount": 1200, "date": "2024-03-01",
     "personal_finance_category": {"primary": "RENT_AND_UTILITIES", "detailed": "RENT_AND_UTILITIES_RENT"}},
    {"transaction_id": "t3", "merchant_name": "Comcast", "amount": 60, "date": "2024-03-10",
     "personal_finance_category": {"primary": "RENT_AND_UTILITIES", "detailed": "RENT_AND_UTILITIES_INTERNET_AND_CABLE"}}
  ]
}`

func TestNormalizeEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	rec := doRequest(s, http.MethodPost, "/v1/normalize", batchBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("normalize = %d, body %s", rec.Code, rec.Body.String())
	}

	var payload core.Payload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.CashIn) != 1 {
		t.Errorf("cashIn = %d events, want 1", len(payload.CashIn))
	}
	if len(payload.CashOut) != 2 {
		t.Errorf("cashOut = %d events, want 2", len(payload.CashOut))
	}
}

func TestNormalizeEndpointRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	if rec := doRequest(s, http.MethodPost, "/v1/normalize", "{not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("normalize = %d, want 400", rec.Code)
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	payload := `{
	  "policy": {"buffer_min": 300},
	  "cashIn": [{"id": "in1", "date": "2024-03-01", "amount": 2400, "category": "income", "fixed": true}],
	  "cashOut": [{"id": "out1", "date": "2024-03-10", "amount": 60, "category": "utilities",
	               "window": {"start": "2024-03-05", "end": "2024-03-15"}}]
	}`

	rec := doRequest(s, http.MethodPost, "/v1/optimize?focus=balanced", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("optimize = %d, body %s", rec.Code, rec.Body.String())
	}

	var plan core.CalendarPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}
	if plan.Metrics.Focus != core.FocusBalanced {
		t.Errorf("focus = %s, want balanced", plan.Metrics.Focus)
	}
	if len(plan.Explain) != 3 {
		t.Errorf("explain = %d lines, want 3", len(plan.Explain))
	}
}

func TestPlanEndpointFromBatch(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	rec := doRequest(s, http.MethodPost, "/v1/plan", `{"batch": `+batchBody+`, "focus": "overdraft"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("plan = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Payload     *core.Payload      `json:"payload"`
		Plan        *core.CalendarPlan `json:"plan"`
		Explanation []string           `json:"explanation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Payload == nil || resp.Plan == nil {
		t.Fatal("plan response must carry payload and plan")
	}
	if resp.Plan.Metrics.Focus != core.FocusOverdraft {
		t.Errorf("focus = %s, want overdraft", resp.Plan.Metrics.Focus)
	}
	if len(resp.Explanation) != 3 {
		t.Errorf("explanation = %d bullets, want 3", len(resp.Explanation))
	}
}

func TestPlanEndpointWithoutBatchOrFixture(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	if rec := doRequest(s, http.MethodPost, "/v1/plan", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("plan = %d, want 400 without batch or fixture", rec.Code)
	}
}

func writeTestFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(batchBody), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestPlanEndpointUsesFixture(t *testing.T) {
	s := newTestServer(t, nil, nil, writeTestFixture(t))

	rec := doRequest(s, http.MethodPost, "/v1/plan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("plan = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestTransactionsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil, writeTestFixture(t))

	rec := doRequest(s, http.MethodGet, "/v1/transactions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Summary struct {
			TotalTransactions int     `json:"total_transactions"`
			TotalIncome       float64 `json:"total_income"`
		} `json:"summary"`
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary.TotalTransactions != 3 {
		t.Errorf("total_transactions = %d, want 3", resp.Summary.TotalTransactions)
	}
	if resp.Summary.TotalIncome != 2400 {
		t.Errorf("total_income = %v, want 2400", resp.Summary.TotalIncome)
	}
	if len(resp.Transactions) != 3 {
		t.Errorf("transactions = %d, want 3", len(resp.Transactions))
	}
}

func TestTransactionsDateFilter(t *testing.T) {
	s := newTestServer(t, nil, nil, writeTestFixture(t))

	rec := doRequest(s, http.MethodGet, "/v1/transactions?start=2024-03-05&end=2024-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions = %d", rec.Code)
	}
	var resp struct {
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Transactions) != 1 {
		t.Errorf("filtered transactions = %d, want 1", len(resp.Transactions))
	}
}

func TestTransactionsCategoryFilter(t *testing.T) {
	s := newTestServer(t, nil, nil, writeTestFixture(t))

	rec := doRequest(s, http.MethodGet, "/v1/transactions?category=INCOME", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("transactions = %d", rec.Code)
	}
	var report struct {
		Category         string  `json:"category"`
		TransactionCount int     `json:"transaction_count"`
		TotalAmount      float64 `json:"total_amount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.TransactionCount != 1 || report.TotalAmount != 2400 {
		t.Errorf("report = %+v, want 1 transaction totalling 2400", report)
	}
}

func TestTransactionsWithoutFixture(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	if rec := doRequest(s, http.MethodGet, "/v1/transactions", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("transactions = %d, want 503 without a fixture", rec.Code)
	}
}

func TestTransactionsBadDateRange(t *testing.T) {
	s := newTestServer(t, nil, nil, writeTestFixture(t))

	if rec := doRequest(s, http.MethodGet, "/v1/transactions?start=2024-03-05", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("transactions = %d, want 400 for a half-open range", rec.Code)
	}
}

func TestRecordMoveEndpoint(t *testing.T) {
	store := newStubStore()
	s := newTestServer(t, store, nil, "")

	body := `{"transaction_id": "txn_1", "merchant_name": "Comcast",
	          "original_date": "2024-03-10", "new_date": "2024-03-15",
	          "amount": 60, "reason": "window shift"}`
	rec := doRequest(s, http.MethodPost, "/v1/modifications/move", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("move = %d, body %s", rec.Code, rec.Body.String())
	}

	var mod storage.Modification
	if err := json.Unmarshal(rec.Body.Bytes(), &mod); err != nil {
		t.Fatalf("decode modification: %v", err)
	}
	if mod.Type != storage.ModificationMove || mod.Status != storage.StatusSuggested {
		t.Errorf("modification = %+v, want a suggested move", mod)
	}
}

func TestRecordMoveValidation(t *testing.T) {
	s := newTestServer(t, newStubStore(), nil, "")

	tests := []struct {
		name string
		body string
	}{
		{"missing transaction id", `{"new_date": "2024-03-15", "amount": 60}`},
		{"bad new date", `{"transaction_id": "txn_1", "new_date": "soon", "amount": 60}`},
		{"non-positive amount", `{"transaction_id": "txn_1", "new_date": "2024-03-15", "amount": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/v1/modifications/move", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("move = %d, want 422", rec.Code)
			}
		})
	}
}

func TestRecordPlannedEndpoint(t *testing.T) {
	s := newTestServer(t, newStubStore(), nil, "")

	body := `{"merchant_name": "Dentist", "date": "2024-03-20", "amount": 150, "category": "other", "reason": "checkup"}`
	rec := doRequest(s, http.MethodPost, "/v1/modifications/planned", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("planned = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestApproveEndpointPublishes(t *testing.T) {
	store := newStubStore()
	publisher := &stubPublisher{}
	s := newTestServer(t, store, publisher, "")

	mod := store.add(storage.ModificationMove, "txn_1", "Comcast")

	rec := doRequest(s, http.MethodPost, "/v1/modifications/"+mod.ID+"/approve", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("approve = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(publisher.published) != 1 || publisher.published[0] != mod.ID {
		t.Errorf("published = %v, want the approved modification id", publisher.published)
	}
}

func TestApproveEndpointUnknownID(t *testing.T) {
	s := newTestServer(t, newStubStore(), nil, "")

	if rec := doRequest(s, http.MethodPost, "/v1/modifications/missing/approve", ""); rec.Code != http.StatusNotFound {
		t.Errorf("approve = %d, want 404", rec.Code)
	}
}

func TestApprovePublishFailureStillSucceeds(t *testing.T) {
	store := newStubStore()
	publisher := &stubPublisher{err: fmt.Errorf("broker down")}
	s := newTestServer(t, store, publisher, "")

	mod := store.add(storage.ModificationMove, "txn_1", "Comcast")

	if rec := doRequest(s, http.MethodPost, "/v1/modifications/"+mod.ID+"/approve", ""); rec.Code != http.StatusOK {
		t.Errorf("approve = %d, want 200 even when publish fails", rec.Code)
	}
}

func TestListAndClearModifications(t *testing.T) {
	store := newStubStore()
	s := newTestServer(t, store, nil, "")

	store.add(storage.ModificationMove, "txn_1", "Comcast")
	store.add(storage.ModificationPlanned, "", "Dentist")

	rec := doRequest(s, http.MethodGet, "/v1/modifications", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d", rec.Code)
	}
	var resp modificationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(resp.Modifications) != 2 || resp.Summary.TotalModifications != 2 {
		t.Errorf("list = %d mods, summary total %d, want 2 and 2", len(resp.Modifications), resp.Summary.TotalModifications)
	}

	if rec := doRequest(s, http.MethodDelete, "/v1/modifications", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("clear = %d, want 204", rec.Code)
	}
	if len(store.mods) != 0 {
		t.Error("clear must empty the store")
	}
}

func TestModificationEndpointsWithoutStore(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	if rec := doRequest(s, http.MethodGet, "/v1/modifications", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list = %d, want 503 without a store", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	rec := doRequest(s, http.MethodPost, "/v1/normalize", `{"added": []}`)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	s := newTestServer(t, nil, nil, "")

	var last int
	for i := 0; i < requestsPerMinute+1; i++ {
		last = doRequest(s, http.MethodPost, "/v1/normalize", `{"added": []}`).Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("request %d = %d, want 429", requestsPerMinute+1, last)
	}

	// Reads are never limited.
	if rec := doRequest(s, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}
