package model

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// InsufficientDataError is returned when a series is shorter than the
// lookback a computation requires.
type InsufficientDataError struct {
	Instrument string
	What       string
	Need       int
	Have       int
}

func (e *InsufficientDataError) Error() string {
	if e.Instrument == "" {
		return fmt.Sprintf("%s: insufficient data: need %d bars, have %d", e.What, e.Need, e.Have)
	}
	return fmt.Sprintf("%s %s: insufficient data: need %d bars, have %d", e.Instrument, e.What, e.Need, e.Have)
}

// DegenerateInputError describes a zero range or zero denominator. Inside
// the computational packages it is recovered as an undefined value; it only
// surfaces when a caller asks for a scalar that has no defined value.
type DegenerateInputError struct {
	Instrument string
	What       string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s %s: degenerate input", e.Instrument, e.What)
}

// InvalidInputError flags malformed input such as non-monotonic dates or
// negative prices. Fatal for the instrument it belongs to.
type InvalidInputError struct {
	Instrument string
	Index      int
	Reason     string
}

func (e *InvalidInputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: invalid input: %s", e.Instrument, e.Reason)
	}
	return fmt.Sprintf("%s: invalid input at bar %d: %s", e.Instrument, e.Index, e.Reason)
}

// Failure is the structured record of one instrument (or instrument/date)
// that could not be processed. Batches return these next to partial results.
type Failure struct {
	Instrument string    `json:"instrument"`
	Date       time.Time `json:"date,omitempty"`
	Stage      string    `json:"stage"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Err        error     `json:"-"`
}

// NewFailure builds a Failure and classifies err.
func NewFailure(instrument string, date time.Time, stage string, err error) Failure {
	return Failure{
		Instrument: instrument,
		Date:       date,
		Stage:      stage,
		Kind:       ErrKind(err),
		Message:    err.Error(),
		Err:        err,
	}
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s [%s] %s: %s", f.Stage, f.Kind, f.Instrument, f.Message)
}

func (f Failure) Unwrap() error { return f.Err }

// Error kinds used for failure records and metric labels.
const (
	KindInsufficientData = "insufficient_data"
	KindDegenerateInput  = "degenerate_input"
	KindInvalidInput     = "invalid_input"
	KindCanceled         = "canceled"
	KindInternal         = "internal"
)

// ErrKind classifies err into one of the Kind constants.
func ErrKind(err error) string {
	var ins *InsufficientDataError
	var deg *DegenerateInputError
	var inv *InvalidInputError
	switch {
	case errors.As(err, &ins):
		return KindInsufficientData
	case errors.As(err, &deg):
		return KindDegenerateInput
	case errors.As(err, &inv):
		return KindInvalidInput
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
