package services

import "errors"

var (
	// ErrInvalidURL wraps every URL validation failure
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidTransaction wraps every transaction input validation failure
	ErrInvalidTransaction = errors.New("invalid transaction")
	// ErrInvalidInput wraps validation failures of reports and contacts
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by stores when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDependencyUnavailable is returned when a collaborator read fails and
	// the pipeline is not configured to fail closed
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
