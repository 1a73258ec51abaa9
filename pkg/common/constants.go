package common

const (
	TraceIDHeader = "X-Trace-Id"

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)
