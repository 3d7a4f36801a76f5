package client

import "errors"

var (
	ErrUnavailable = errors.New("profile server unavailable")
	ErrBadRequest  = errors.New("cannot build profile request")
)
