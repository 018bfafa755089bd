package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the image job ID
	FieldJobID = "job_id"

	// FieldReportID is the report ID
	FieldReportID = "report_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldEntity is the owning entity reference (type:id)
	FieldEntity = "entity"

	// FieldTaskType is the queue task type of an envelope
	FieldTaskType = "task_type"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldStorageKey is an object storage key
	FieldStorageKey = "storage_key"
)
