package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Progress errors
var (
	ErrProgressNotFound    = errors.New("progress not found")
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")
)

// Task errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrAnswerKeyNotFound = errors.New("answer key not found")
	ErrUnknownTaskType   = errors.New("unknown task type")
)

// Grading errors
var (
	ErrGraderUnavailable = errors.New("grader unavailable")
	ErrMalformedVerdict  = errors.New("malformed grader verdict")
)

// General errors
var (
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrStoreUnavailable  = errors.New("store unavailable")
)
