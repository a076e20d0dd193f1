package logging

// Standardized field names for structured logging.
const (
	FieldFile          = "file_path"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldConfidence    = "confidence"
	FieldStrategy      = "strategy"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldCount         = "count"
	FieldModule        = "module"
	FieldModelVersion  = "model_version"
	FieldBackend       = "backend"
	FieldRunID         = "run_id"
	FieldIntent        = "intent"
	FieldHorizon       = "horizon_days"
	FieldInputFile     = "input_file"
	FieldOutputFile    = "output_file"
)
