package service

import "errors"

// Common service-level errors, mapped to HTTP responses by the API layer.
var (
	// ErrUnknownView indicates a request named a view kind the app
	// does not have.
	ErrUnknownView = errors.New("unknown view")

	// ErrEmptyInput indicates a request was missing the input the
	// operation needs.
	ErrEmptyInput = errors.New("request input is empty")

	// ErrNoPlan indicates a plan edit was requested before any plan
	// was generated.
	ErrNoPlan = errors.New("no workout plan exists to edit")
)
