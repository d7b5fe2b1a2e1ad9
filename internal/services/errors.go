package services

import "errors"

var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrUserRequired        = errors.New("user email is required")
)
