package logging

// Field names shared by every component so log queries stay uniform.
const (
	FieldService     = "service"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldUserID      = "user_id"
	FieldFormationID = "formation_id"
	FieldSessionID   = "session_id"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatus      = "status"
	FieldDuration    = "duration"
)
