package contract

import "errors"

var (
	ErrCompletionService = errors.New("completion service failed")
	ErrUnroutable        = errors.New("no route for classification label")
	ErrValidation        = errors.New("validation failed")
)
