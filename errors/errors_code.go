package errors

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRejected    Code = "UPSTREAM_REJECTED"
	CodeInternal            Code = "INTERNAL_ERROR"
)
