package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid id")
	ErrInvalidTitle   = errors.New("invalid title")
	ErrInvalidPeople  = errors.New("invalid people count")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrInvalidPayload = errors.New("invalid drag payload")
)
