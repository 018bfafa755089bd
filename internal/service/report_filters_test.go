package service

import (
	"testing"

	"github.com/amanihub/amani/internal/domain"
)

func TestValidateReportFiltersCommunityRules(t *testing.T) {
	testCases := []struct {
		name       string
		reportType domain.ReportType
		filters    domain.ReportFilters
		wantErr    bool
	}{
		{
			name:       "community_activity requires community_name",
			reportType: domain.ReportCommunityActivity,
			filters:    domain.ReportFilters{StartDate: "2024-01-01"},
			wantErr:    true,
		},
		{
			name:       "community_activity with community_name",
			reportType: domain.ReportCommunityActivity,
			filters:    domain.ReportFilters{CommunityName: "Mathare"},
		},
		{
			name:       "program_impact requires community_name",
			reportType: domain.ReportProgramImpact,
			filters:    domain.ReportFilters{},
			wantErr:    true,
		},
		{
			name:       "participant_demographics blank community_name rejected",
			reportType: domain.ReportParticipantDemographics,
			filters:    domain.ReportFilters{CommunityName: "   "},
			wantErr:    true,
		},
		{
			name:       "financial_summary without community",
			reportType: domain.ReportFinancialSummary,
			filters:    domain.ReportFilters{StartDate: "2024-01-01", EndDate: "2024-12-31"},
		},
		{
			name:       "financial_summary rejects community_name",
			reportType: domain.ReportFinancialSummary,
			filters:    domain.ReportFilters{CommunityName: "Kibera"},
			wantErr:    true,
		},
		{
			name:       "unknown type",
			reportType: domain.ReportType("weekly_digest"),
			filters:    domain.ReportFilters{},
			wantErr:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReportFilters(tc.reportType, &tc.filters)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !domain.IsValidation(err) {
					t.Errorf("error %v is not a ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateReportFiltersDateNormalization(t *testing.T) {
	// An RFC 3339 string must survive validation byte for byte.
	filters := domain.ReportFilters{StartDate: "2024-01-01T00:00:00.000Z"}
	if err := ValidateReportFilters(domain.ReportFinancialSummary, &filters); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.StartDate != "2024-01-01T00:00:00.000Z" {
		t.Errorf("start_date drifted: %q", filters.StartDate)
	}

	// Bare dates are expanded to midnight UTC.
	filters = domain.ReportFilters{StartDate: "2024-03-05"}
	if err := ValidateReportFilters(domain.ReportFinancialSummary, &filters); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.StartDate != "2024-03-05T00:00:00.000Z" {
		t.Errorf("start_date = %q, want 2024-03-05T00:00:00.000Z", filters.StartDate)
	}

	// Garbage is rejected.
	filters = domain.ReportFilters{EndDate: "yesterday"}
	err := ValidateReportFilters(domain.ReportFinancialSummary, &filters)
	if err == nil || !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for bad date, got %v", err)
	}
}
