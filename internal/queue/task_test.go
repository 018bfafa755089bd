package queue

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/amanihub/amani/internal/domain"
)

func TestEncodeProcessImageWireFormat(t *testing.T) {
	data, err := Encode(ProcessImageTask{ImageJobID: "job-123"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("envelope is not a JSON object: %v", err)
	}
	if string(raw["task_type"]) != `"process_image"` {
		t.Errorf("task_type = %s, want \"process_image\"", raw["task_type"])
	}
	if !strings.Contains(string(raw["payload"]), `"imageJobID":"job-123"`) {
		t.Errorf("payload %s missing imageJobID", raw["payload"])
	}
}

func TestEncodeGenerateReportWireFormat(t *testing.T) {
	data, err := Encode(GenerateReportTask{
		ReportID:   "rep-9",
		ReportType: domain.ReportCommunityActivity,
		Filters: domain.ReportFilters{
			StartDate:     "2024-01-01T00:00:00.000Z",
			CommunityName: "Kibera",
		},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	s := string(data)
	for _, want := range []string{
		`"task_type":"generate_report"`,
		`"reportID":"rep-9"`,
		`"reportType":"community_activity"`,
		`"community_name":"Kibera"`,
		`"start_date":"2024-01-01T00:00:00.000Z"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("envelope %s missing %s", s, want)
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	tasks := []Task{
		ProcessImageTask{ImageJobID: "job-1"},
		GenerateReportTask{
			ReportID:   "rep-1",
			ReportType: domain.ReportFinancialSummary,
			Filters:    domain.ReportFilters{StartDate: "2024-06-01T00:00:00.000Z"},
		},
	}

	for _, task := range tasks {
		data, err := Encode(task)
		if err != nil {
			t.Fatalf("Encode(%s): %v", task.TaskType(), err)
		}
		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", task.TaskType(), err)
		}
		switch got := decoded.(type) {
		case ProcessImageTask:
			want := task.(ProcessImageTask)
			if got != want {
				t.Errorf("round trip: got %+v, want %+v", got, want)
			}
		case GenerateReportTask:
			want := task.(GenerateReportTask)
			if got.ReportID != want.ReportID || got.ReportType != want.ReportType ||
				got.Filters.StartDate != want.Filters.StartDate {
				t.Errorf("round trip: got %+v, want %+v", got, want)
			}
		default:
			t.Errorf("unexpected decoded type %T", decoded)
		}
	}
}

func TestDecodeUnknownTaskType(t *testing.T) {
	_, err := Decode([]byte(`{"task_type":"resize_video","payload":{}}`))
	if err == nil {
		t.Fatal("expected error for unknown task type")
	}
	if !strings.Contains(err.Error(), "resize_video") {
		t.Errorf("error %q does not name the offending tag", err)
	}
}

func TestDecodeMalformedEnvelope(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed envelope")
	}
}

func TestFinancialSummaryPayloadOmitsCommunity(t *testing.T) {
	data, err := Encode(GenerateReportTask{
		ReportID:   "rep-2",
		ReportType: domain.ReportFinancialSummary,
		Filters:    domain.ReportFilters{StartDate: "2024-01-01T00:00:00.000Z"},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.Contains(string(data), "community_name") {
		t.Errorf("financial_summary payload must not carry community_name: %s", data)
	}
}
