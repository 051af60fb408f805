package services

import "fmt"

// Error is a service-level failure carrying the machine-readable code the
// API reports to callers and the HTTP status it maps to.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a service error
func NewError(code string, status int, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
	}
}
