package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable covers transport errors, timeouts and HTTP >= 400.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParseFailure means the payload arrived but did not have the expected shape.
	ErrParseFailure = errors.New("parse failure")
	// ErrDataMissing means the source answered but had nothing for the entity.
	ErrDataMissing = errors.New("data missing")
	// ErrInvalidValue marks a single field that could not be read as a number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrCalendarUnavailable is the only fatal condition of a report run.
	ErrCalendarUnavailable = errors.New("trading calendar unavailable")
)

// SourceError is an adapter failure tagged with where it happened.
type SourceError struct {
	Source string
	Op     string
	Entity string
	Kind   error
	Err    error
}

func (e *SourceError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Source, e.Op)
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is matches the kind sentinel so errors.Is(err, ErrParseFailure) works on a
// SourceError that wraps an unrelated cause.
func (e *SourceError) Is(target error) bool { return target == e.Kind }

// NewSourceError builds a SourceError, classifying err when kind is nil.
func NewSourceError(source, op, entity string, kind, err error) *SourceError {
	if kind == nil {
		kind = KindOf(err)
	}
	return &SourceError{Source: source, Op: op, Entity: entity, Kind: kind, Err: err}
}

// KindOf classifies any error into one of the sentinels.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range []error{ErrSourceUnavailable, ErrParseFailure, ErrDataMissing, ErrInvalidValue, ErrCalendarUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	// Context, net and HTTP status errors all mean the source could not answer.
	return ErrSourceUnavailable
}

// KindLabel is the metric/log label for an error kind.
func KindLabel(err error) string {
	switch KindOf(err) {
	case nil:
		return "none"
	case ErrParseFailure:
		return "parse_failure"
	case ErrDataMissing:
		return "data_missing"
	case ErrInvalidValue:
		return "invalid_value"
	case ErrCalendarUnavailable:
		return "calendar_unavailable"
	default:
		return "source_unavailable"
	}
}
