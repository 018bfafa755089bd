package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ReportType identifies the kind of report a worker generates.
type ReportType string

const (
	ReportFinancialSummary        ReportType = "financial_summary"
	ReportProgramImpact           ReportType = "program_impact"
	ReportParticipantDemographics ReportType = "participant_demographics"
	ReportCommunityActivity       ReportType = "community_activity"
)

// IsValid reports whether t is one of the known report types.
func (t ReportType) IsValid() bool {
	switch t {
	case ReportFinancialSummary, ReportProgramImpact, ReportParticipantDemographics, ReportCommunityActivity:
		return true
	}
	return false
}

// RequiresCommunity reports whether reports of type t must carry a community
// name in their filters.
func (t ReportType) RequiresCommunity() bool {
	switch t {
	case ReportProgramImpact, ReportParticipantDemographics, ReportCommunityActivity:
		return true
	}
	return false
}

// ReportStatus represents the generation status of a report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportProcessing ReportStatus = "processing"
	ReportCompleted  ReportStatus = "completed"
	ReportFailed     ReportStatus = "failed"
)

// IsValid reports whether s is one of the known report statuses.
func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportPending, ReportProcessing, ReportCompleted, ReportFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is a terminal status.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportCompleted || s == ReportFailed
}

// ReportFilters is the type-dependent filter set attached to a report. Dates
// are carried as ISO-8601 strings, never parsed time values, so the stored
// form and the queue payload serialize identically.
type ReportFilters struct {
	StartDate     string   `json:"start_date,omitempty"`
	EndDate       string   `json:"end_date,omitempty"`
	CommunityName string   `json:"community_name,omitempty"`
	Communities   []string `json:"communities,omitempty"`
}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the filters.
//   - error: non-nil if marshaling fails.
func (f ReportFilters) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (f *ReportFilters) Scan(value interface{}) error {
	if value == nil {
		*f = ReportFilters{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ReportFilters")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, f)
}

// Report represents one asynchronous report generation request. Type is fixed
// at creation; FileURL is populated only by the worker that finishes the
// generation.
type Report struct {
	ID        string        `gorm:"type:text;primaryKey" json:"id"`
	Type      ReportType    `gorm:"type:text;not null;index:idx_reports_type" json:"type"`
	Status    ReportStatus  `gorm:"type:text;index:idx_reports_status;default:pending" json:"status"`
	FileURL   string        `gorm:"type:text" json:"file_url,omitempty"`
	ErrorMsg  string        `json:"error_msg,omitempty"`
	Filters   ReportFilters `gorm:"type:text" json:"filters"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Report.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Report) TableName() string {
	return "reports"
}
