package services

import "errors"

// Pipeline error taxonomy. Everything fatal to a generation run wraps one of
// these so the stream coordinator can pick the right user-facing message.
var (
	ErrInvalidURL           = errors.New("could not find a YouTube video or playlist in that URL")
	ErrSourceFetch          = errors.New("failed to fetch video data")
	ErrNoCaptions           = errors.New("no captions available for this video")
	ErrTranscriptFetch      = errors.New("failed to fetch transcript")
	ErrOutlineInvalid       = errors.New("AI generated an invalid course outline")
	ErrOutlineMissingInfo   = errors.New("AI failed to generate required course information")
	ErrOutlineNoModules     = errors.New("AI could not generate course modules from this video")
	ErrInsufficientCredits  = errors.New("not enough credits to generate a course")
	ErrGenerationInProgress = errors.New("a course is already being generated for this video")
	ErrPersistence          = errors.New("failed to save the generated course")
)

// Service-layer error shapes the HTTP handlers translate to status codes.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }
