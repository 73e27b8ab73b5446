package core

import (
	"errors"
	"fmt"
)

// Initialization failure kinds.
var (
	ErrConfigNotFound     = errors.New("configuration not found")
	ErrMalformedDatum     = errors.New("malformed datum")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
)

// Conversion failure kinds.
var (
	ErrUnknownPlanet   = errors.New("unknown planet")
	ErrDegenerateInput = errors.New("degenerate input")
	ErrNonConvergent   = errors.New("geodetic iteration did not converge")
)

// InitError reports a lifecycle failure. Kind is one of the initialization
// sentinels and is what errors.Is matches against.
type InitError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *InitError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause.
func (e *InitError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConversionError reports a failed coordinate conversion.
type ConversionError struct {
	Op     string
	Planet string
	Kind   error
	Detail string
}

func (e *ConversionError) Error() string {
	msg := e.Op
	if e.Planet != "" {
		msg += fmt.Sprintf(" [%s]", e.Planet)
	}
	msg += ": " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Kind }

// Stable integer codes, in the spirit of the native return values.
const (
	CodeOK                 = 0
	CodeConfigNotFound     = 1
	CodeMalformedDatum     = 2
	CodeAlreadyInitialized = 3
	CodeNotInitialized     = 4
	CodeUnknownPlanet      = 10
	CodeDegenerateInput    = 11
	CodeNonConvergent      = 12
	CodeUnknown            = 99
)

// Code maps an error to its integer code. nil maps to CodeOK.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrConfigNotFound):
		return CodeConfigNotFound
	case errors.Is(err, ErrMalformedDatum):
		return CodeMalformedDatum
	case errors.Is(err, ErrAlreadyInitialized):
		return CodeAlreadyInitialized
	case errors.Is(err, ErrNotInitialized):
		return CodeNotInitialized
	case errors.Is(err, ErrUnknownPlanet):
		return CodeUnknownPlanet
	case errors.Is(err, ErrDegenerateInput):
		return CodeDegenerateInput
	case errors.Is(err, ErrNonConvergent):
		return CodeNonConvergent
	default:
		return CodeUnknown
	}
}

func degenerate(op, planet, detail string) error {
	return &ConversionError{Op: op, Planet: planet, Kind: ErrDegenerateInput, Detail: detail}
}

func unknownPlanet(op, planet string) error {
	return &ConversionError{Op: op, Planet: planet, Kind: ErrUnknownPlanet}
}
