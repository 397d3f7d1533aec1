package token

import "errors"

var (
	ErrInvalidDir   = errors.New("token: directory is required")
	ErrInvalidToken = errors.New("token: invalid token format")
)
