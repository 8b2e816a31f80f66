package utils

import "time"

// Application Constants
const (
	AppName    = "calltriage"
	AppVersion = "1.0.0"

	// Query limits
	DefaultQueryLimit = 10
	MaxQueryLimit     = 100

	// Request handling
	DefaultRequestTimeout = 30 * time.Second
	MaxTranscriptionRunes = 20000

	// Pub/sub
	EmergencyChannel = "emergencies:new"

	// Context keys
	ContextRequestID = "request_id"
)

// Status Constants
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Error codes
const (
	CodeValidationError     = "VALIDATION_ERROR"
	CodeBadRequest          = "BAD_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeRateLimited         = "RATE_LIMITED"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Error Messages
const (
	ErrInvalidInput         = "invalid input"
	ErrInvalidBody          = "request body must be a JSON object"
	ErrValidationFailed     = "validation failed"
	ErrInternalServer       = "internal server error"
	ErrNotFound             = "not found"
	ErrTooManyRequests      = "too many requests"
	ErrStoreUnavailable     = "emergency store is unavailable"
	ErrUpstreamTimeout      = "analysis timed out"
	ErrUpstreamUnavailable  = "analysis service is unavailable"
	ErrTranscriptionMissing = "transcription is required"
)

// Success Messages
const (
	MsgEmergencyAnalyzed = "emergency analyzed"
	MsgStatsRetrieved    = "statistics retrieved"
)
