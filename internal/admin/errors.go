package admin

import "errors"

var (
	ErrUnknownModel  = errors.New("admin: unknown model")
	ErrUnknownAction = errors.New("admin: unknown action")
	ErrInvalidInput  = errors.New("admin: invalid input")
)
