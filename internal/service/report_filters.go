package service

import (
	"strings"
	"time"

	"github.com/amanihub/amani/internal/domain"
)

// ValidateReportFilters checks the filter set against the rules of its report
// type and normalizes any dates to ISO-8601 strings in place. It runs both at
// report creation and again at enqueue time: the record can be edited between
// the two, so enqueue never trusts stored state.
//
// Required filters by type:
//
//	financial_summary        - start_date/end_date optional, no community
//	community_activity       - community_name required, dates optional
//	participant_demographics - community_name required
//	program_impact           - community_name required
//
// Parameters:
//   - reportType: the report's fixed type.
//   - filters: filter set to validate; date fields are rewritten normalized.
// Returns:
//   - error: *domain.ValidationError describing the first violation, or nil.
func ValidateReportFilters(reportType domain.ReportType, filters *domain.ReportFilters) error {
	if !reportType.IsValid() {
		return domain.NewValidationError("type", "unknown report type "+string(reportType))
	}
	if filters == nil {
		filters = &domain.ReportFilters{}
	}

	var err error
	if filters.StartDate, err = normalizeDate("filters.start_date", filters.StartDate); err != nil {
		return err
	}
	if filters.EndDate, err = normalizeDate("filters.end_date", filters.EndDate); err != nil {
		return err
	}

	if reportType.RequiresCommunity() {
		if strings.TrimSpace(filters.CommunityName) == "" {
			return domain.NewValidationError("filters.community_name",
				"required for "+string(reportType)+" reports")
		}
	} else if filters.CommunityName != "" {
		return domain.NewValidationError("filters.community_name",
			"not accepted for "+string(reportType)+" reports")
	}

	return nil
}

// normalizeDate validates a date filter and returns its ISO-8601 form. A
// string that already parses as RFC 3339 is returned untouched so stored
// values survive a round trip byte for byte. Bare dates are expanded to
// midnight UTC. Anything else is a validation error.
func normalizeDate(field, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return value, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
	}
	return "", domain.NewValidationError(field, "invalid ISO-8601 date: "+value)
}
