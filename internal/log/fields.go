package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldReferer     = "referer"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldTenantID    = "tenant_id"
	FieldUserID      = "user_id"
	FieldServiceID   = "service_id"
	FieldAuthCode    = "auth_code"
	FieldValueCents  = "value_cents"
	FieldPeriod      = "period"
	FieldWindows     = "windows"
	FieldMonth       = "month"
	FieldGeneration  = "generation"
	FieldRoutingKey  = "routing_key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentServices  = "services"
	ComponentFinance   = "finance"
	ComponentAuth      = "auth"
	ComponentInvoice   = "invoice"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSearch    = "search"
	OpAggregate = "aggregate"
	OpPublish   = "publish"
	OpSignIn    = "sign_in"
	OpSignUp    = "sign_up"
	OpSignOut   = "sign_out"
	OpValidate  = "validate"
	OpParse     = "parse"
	OpRender    = "render"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message, skipping nil errors
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithTenant(tenantID string) LogFields {
	f[FieldTenantID] = tenantID
	return f
}

// WithService adds the identifying fields of a service record
func (f LogFields) WithService(id, authCode string, valueCents int64) LogFields {
	f[FieldServiceID] = id
	f[FieldAuthCode] = authCode
	f[FieldValueCents] = valueCents
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
