package queue

import (
	"encoding/json"
	"fmt"

	"github.com/amanihub/amani/internal/domain"
)

// Task type tags as they appear on the wire.
const (
	TaskTypeProcessImage   = "process_image"
	TaskTypeGenerateReport = "generate_report"
)

// Task is the closed set of work descriptions pushed to the broker list.
// Only ProcessImageTask and GenerateReportTask implement it.
type Task interface {
	// TaskType returns the wire tag of this task.
	TaskType() string
}

// ProcessImageTask asks a worker to transform one staged image.
type ProcessImageTask struct {
	ImageJobID string `json:"imageJobID"`
}

// TaskType returns the wire tag for image processing tasks.
func (ProcessImageTask) TaskType() string { return TaskTypeProcessImage }

// GenerateReportTask asks a worker to generate one report. Filters are
// carried verbatim so the worker sees exactly what passed validation.
type GenerateReportTask struct {
	ReportID   string               `json:"reportID"`
	ReportType domain.ReportType    `json:"reportType"`
	Filters    domain.ReportFilters `json:"filters"`
}

// TaskType returns the wire tag for report generation tasks.
func (GenerateReportTask) TaskType() string { return TaskTypeGenerateReport }

// envelope is the broker wire format: a string tag plus a raw payload.
type envelope struct {
	TaskType string          `json:"task_type"`
	Payload  json.RawMessage `json:"payload"`
}

// Encode serializes a task into its broker envelope.
// Parameters:
//   - task: task to serialize.
// Returns:
//   - []byte: JSON envelope {task_type, payload}.
//   - error: non-nil if marshaling fails.
func Encode(task Task) ([]byte, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", task.TaskType(), err)
	}
	return json.Marshal(envelope{
		TaskType: task.TaskType(),
		Payload:  payload,
	})
}

// Decode parses a broker envelope back into its concrete task. The match is
// exhaustive over the closed task set; an unknown tag is an error, not a bag
// of optional fields.
// Parameters:
//   - data: JSON envelope bytes.
// Returns:
//   - Task: decoded ProcessImageTask or GenerateReportTask.
//   - error: non-nil for malformed envelopes or unknown task types.
func Decode(data []byte) (Task, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode task envelope: %w", err)
	}

	switch env.TaskType {
	case TaskTypeProcessImage:
		var task ProcessImageTask
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.TaskType, err)
		}
		return task, nil
	case TaskTypeGenerateReport:
		var task GenerateReportTask
		if err := json.Unmarshal(env.Payload, &task); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.TaskType, err)
		}
		return task, nil
	default:
		return nil, fmt.Errorf("unknown task type %q", env.TaskType)
	}
}
