package common

type contextKey string

const (
	TraceIdKey            contextKey = "trace_id"
	ResponderContextKey   contextKey = "responder_id"
	RoleContextKey        contextKey = "responder_role"
	LatencyContextKey     contextKey = "__execution_time"
	WsSemaphoreContextKey contextKey = "ws_semaphore"
)
