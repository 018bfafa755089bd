package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/queue"
)

// fakeReportStore is an in-memory ReportStore with status-guarded transitions.
type fakeReportStore struct {
	reports   map[string]domain.Report
	createErr error
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[string]domain.Report)}
}

func (f *fakeReportStore) Create(_ context.Context, report *domain.Report) error {
	if f.createErr != nil {
		return f.createErr
	}
	report.CreatedAt = time.Now().UTC()
	report.UpdatedAt = report.CreatedAt
	f.reports[report.ID] = *report
	return nil
}

func (f *fakeReportStore) GetByID(_ context.Context, id string) (*domain.Report, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	copied := report
	return &copied, nil
}

func (f *fakeReportStore) Update(_ context.Context, report *domain.Report) error {
	if _, ok := f.reports[report.ID]; !ok {
		return fmt.Errorf("report %s: %w", report.ID, domain.ErrNotFound)
	}
	report.UpdatedAt = time.Now().UTC()
	f.reports[report.ID] = *report
	return nil
}

func (f *fakeReportStore) TransitionStatus(_ context.Context, id string, from, to domain.ReportStatus) error {
	report, ok := f.reports[id]
	if !ok {
		return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	if report.Status != from {
		return fmt.Errorf("report %s is %s, not %s: %w", id, report.Status, from, domain.ErrInvalidState)
	}
	report.Status = to
	report.UpdatedAt = time.Now().UTC()
	f.reports[id] = report
	return nil
}

func (f *fakeReportStore) List(_ context.Context, status domain.ReportStatus, reportType domain.ReportType, limit, _ int) ([]domain.Report, error) {
	var out []domain.Report
	for _, report := range f.reports {
		if status != "" && report.Status != status {
			continue
		}
		if reportType != "" && report.Type != reportType {
			continue
		}
		out = append(out, report)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReportStore) ListProcessingBefore(_ context.Context, cutoff time.Time) ([]domain.Report, error) {
	var out []domain.Report
	for _, report := range f.reports {
		if report.Status == domain.ReportProcessing && report.UpdatedAt.Before(cutoff) {
			out = append(out, report)
		}
	}
	return out, nil
}

func (f *fakeReportStore) Delete(_ context.Context, id string) error {
	if _, ok := f.reports[id]; !ok {
		return fmt.Errorf("report %s: %w", id, domain.ErrNotFound)
	}
	delete(f.reports, id)
	return nil
}

func newTestReportService(store *fakeReportStore, q *fakeQueue) *ReportService {
	return NewReportService(store, q, nil, nil)
}

func TestReportCreateValidatesBeforeAnySideEffect(t *testing.T) {
	store := newFakeReportStore()
	q := &fakeQueue{}
	svc := newTestReportService(store, q)

	_, err := svc.Create(context.Background(), domain.ReportCommunityActivity, domain.ReportFilters{
		StartDate: "2026-01-01",
	})
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for missing community_name, got %v", err)
	}
	if len(store.reports) != 0 {
		t.Error("nothing may be persisted for invalid filters")
	}
	if len(q.tasks) != 0 {
		t.Error("nothing may be enqueued for invalid filters")
	}
}

func TestReportCreateNormalizesDates(t *testing.T) {
	store := newFakeReportStore()
	svc := newTestReportService(store, &fakeQueue{})

	report, err := svc.Create(context.Background(), domain.ReportFinancialSummary, domain.ReportFilters{
		StartDate: "2026-01-01",
		EndDate:   "2026-06-30T23:59:59.000Z",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if report.Status != domain.ReportPending {
		t.Errorf("status = %s, want pending", report.Status)
	}
	if report.Filters.StartDate != "2026-01-01T00:00:00.000Z" {
		t.Errorf("startDate = %q, want expanded midnight UTC", report.Filters.StartDate)
	}
	if report.Filters.EndDate != "2026-06-30T23:59:59.000Z" {
		t.Errorf("endDate = %q, must pass through unchanged", report.Filters.EndDate)
	}
}

func TestEnqueueOnlyFromPending(t *testing.T) {
	for _, status := range []domain.ReportStatus{
		domain.ReportProcessing, domain.ReportCompleted, domain.ReportFailed,
	} {
		t.Run(string(status), func(t *testing.T) {
			store := newFakeReportStore()
			store.reports["rep-1"] = domain.Report{
				ID: "rep-1", Type: domain.ReportFinancialSummary, Status: status,
			}
			q := &fakeQueue{}
			svc := newTestReportService(store, q)

			_, err := svc.Enqueue(context.Background(), "rep-1")
			if !errors.Is(err, domain.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
			if len(q.tasks) != 0 {
				t.Error("nothing may be pushed for a non-pending report")
			}
			if store.reports["rep-1"].Status != status {
				t.Error("record must be unchanged")
			}
		})
	}
}

func TestEnqueueMovesPendingToProcessing(t *testing.T) {
	store := newFakeReportStore()
	store.reports["rep-1"] = domain.Report{
		ID:     "rep-1",
		Type:   domain.ReportCommunityActivity,
		Status: domain.ReportPending,
		Filters: domain.ReportFilters{
			CommunityName: "Kibera",
			StartDate:     "2026-01-01T00:00:00.000Z",
		},
	}
	q := &fakeQueue{}
	svc := newTestReportService(store, q)

	position, err := svc.Enqueue(context.Background(), "rep-1")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if position != 1 {
		t.Errorf("position = %d, want 1", position)
	}
	if store.reports["rep-1"].Status != domain.ReportProcessing {
		t.Errorf("status = %s, want processing", store.reports["rep-1"].Status)
	}

	if len(q.tasks) != 1 {
		t.Fatalf("expected one pushed task, got %d", len(q.tasks))
	}
	task, ok := q.tasks[0].(queue.GenerateReportTask)
	if !ok {
		t.Fatalf("pushed task is %T, want GenerateReportTask", q.tasks[0])
	}
	if task.ReportID != "rep-1" || task.ReportType != domain.ReportCommunityActivity {
		t.Errorf("task = %+v", task)
	}

	// The wire payload for a community-scoped type carries community_name.
	raw, err := queue.Encode(task)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var envelope struct {
		Payload struct {
			Filters map[string]json.RawMessage `json:"filters"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if _, ok := envelope.Payload.Filters["community_name"]; !ok {
		t.Error("community_activity payload must carry community_name")
	}
}

func TestEnqueuePushFailureLeavesPending(t *testing.T) {
	store := newFakeReportStore()
	store.reports["rep-1"] = domain.Report{
		ID: "rep-1", Type: domain.ReportFinancialSummary, Status: domain.ReportPending,
	}
	q := &fakeQueue{pushErr: domain.NewUpstreamError("queue push", errors.New("broker down"))}
	svc := newTestReportService(store, q)

	_, err := svc.Enqueue(context.Background(), "rep-1")
	if err == nil {
		t.Fatal("expected push failure to surface")
	}
	if store.reports["rep-1"].Status != domain.ReportPending {
		t.Error("record must stay pending when the push fails")
	}
}

func TestEnqueueRevalidatesStoredFilters(t *testing.T) {
	store := newFakeReportStore()
	// Stored record lost its community name since creation.
	store.reports["rep-1"] = domain.Report{
		ID: "rep-1", Type: domain.ReportProgramImpact, Status: domain.ReportPending,
	}
	q := &fakeQueue{}
	svc := newTestReportService(store, q)

	_, err := svc.Enqueue(context.Background(), "rep-1")
	if !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(q.tasks) != 0 {
		t.Error("invalid stored filters must never reach the queue")
	}
	if store.reports["rep-1"].Status != domain.ReportPending {
		t.Error("record must stay pending")
	}
}

func TestUpdateResultRules(t *testing.T) {
	testCases := []struct {
		name     string
		from     domain.ReportStatus
		status   string
		fileURL  string
		errorMsg string
		wantErr  error
		validate bool
	}{
		{name: "processing to completed", from: domain.ReportProcessing, status: "completed", fileURL: "http://s/reports/r.pdf"},
		{name: "completed without file url", from: domain.ReportProcessing, status: "completed", validate: true},
		{name: "pending to completed", from: domain.ReportPending, status: "completed", fileURL: "http://s/r.pdf", wantErr: domain.ErrInvalidState},
		{name: "processing to failed", from: domain.ReportProcessing, status: "failed", errorMsg: "query timeout"},
		{name: "pending to failed", from: domain.ReportPending, status: "failed", errorMsg: "rejected"},
		{name: "completed to failed", from: domain.ReportCompleted, status: "failed", wantErr: domain.ErrInvalidState},
		{name: "unknown status", from: domain.ReportProcessing, status: "done", validate: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeReportStore()
			store.reports["rep-1"] = domain.Report{
				ID: "rep-1", Type: domain.ReportFinancialSummary, Status: tc.from,
			}
			svc := newTestReportService(store, &fakeQueue{})

			report, err := svc.UpdateResult(context.Background(), "rep-1", tc.status, tc.fileURL, tc.errorMsg)
			if tc.validate {
				if !domain.IsValidation(err) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateResult: %v", err)
			}
			if report.Status != domain.ReportStatus(tc.status) {
				t.Errorf("status = %s, want %s", report.Status, tc.status)
			}
			if tc.fileURL != "" && report.FileURL != tc.fileURL {
				t.Errorf("fileURL = %q, want %q", report.FileURL, tc.fileURL)
			}
			if tc.errorMsg != "" && report.ErrorMsg != tc.errorMsg {
				t.Errorf("errorMsg = %q, want %q", report.ErrorMsg, tc.errorMsg)
			}
		})
	}
}

func TestListStaleUsesThreshold(t *testing.T) {
	store := newFakeReportStore()
	now := time.Now().UTC()
	store.reports["old"] = domain.Report{
		ID: "old", Status: domain.ReportProcessing, UpdatedAt: now.Add(-2 * time.Hour),
	}
	store.reports["fresh"] = domain.Report{
		ID: "fresh", Status: domain.ReportProcessing, UpdatedAt: now.Add(-time.Minute),
	}
	store.reports["done"] = domain.Report{
		ID: "done", Status: domain.ReportCompleted, UpdatedAt: now.Add(-3 * time.Hour),
	}
	svc := NewReportService(store, &fakeQueue{}, nil, &ReportConfig{StaleAfter: 30 * time.Minute})

	stale, err := svc.ListStale(context.Background())
	if err != nil {
		t.Fatalf("ListStale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Errorf("stale = %+v, want only the old processing report", stale)
	}
}

func TestReportDeleteRefusesProcessing(t *testing.T) {
	store := newFakeReportStore()
	store.reports["rep-1"] = domain.Report{ID: "rep-1", Status: domain.ReportProcessing}
	svc := newTestReportService(store, &fakeQueue{})

	err := svc.Delete(context.Background(), "rep-1")
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, ok := store.reports["rep-1"]; !ok {
		t.Error("processing report must not be deleted")
	}

	store.reports["rep-1"] = domain.Report{ID: "rep-1", Status: domain.ReportFailed}
	if err := svc.Delete(context.Background(), "rep-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := store.reports["rep-1"]; ok {
		t.Error("failed report should be deletable")
	}
}
