package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldEntity     = "entity"
	FieldEntityID   = "entity_id"
	FieldVersion    = "version"
	FieldCount      = "count"
	FieldUserID     = "user_id"
	FieldState      = "state"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentCLI        = "cli"
	ComponentAPI        = "api"
	ComponentSession    = "session"
	ComponentListSync   = "listsync"
	ComponentTokenStore = "tokenstore"
	ComponentEvents     = "events"
	ComponentExport     = "export"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpRefresh    = "refresh"
	OpContribute = "contribute"
	OpLogin      = "login"
	OpLogout     = "logout"
	OpInitialize = "initialize"
	OpExport     = "export"
	OpPublish    = "publish"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeServer     = "server_error"
	ErrorTypeStorage    = "storage_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(kind string) LogFields {
	f[FieldErrorType] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntity adds the entity kind and, when known, its id.
func (f LogFields) WithEntity(entity string, id int64) LogFields {
	f[FieldEntity] = entity
	if id != 0 {
		f[FieldEntityID] = id
	}
	return f
}

// WithHTTPRequest adds outgoing request fields
func (f LogFields) WithHTTPRequest(requestID, method, path string) LogFields {
	f[FieldRequestID] = requestID
	f[FieldMethod] = method
	f[FieldPath] = path
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
