package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrData marks a malformed or missing field in a raw source record.
	ErrData = errors.New("data error")
	// ErrEnrichmentUnavailable marks a domain or external-odds provider that failed or returned nothing.
	ErrEnrichmentUnavailable = errors.New("enrichment unavailable")
	// ErrReasoningUnavailable marks a failed text-generation call.
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
	// ErrConfiguration marks missing or invalid caller configuration.
	ErrConfiguration = errors.New("configuration error")

	ErrNoMarkets = errors.New("no markets")
	ErrNotFound  = errors.New("not found")
)

// Error attaches the failing operation to one of the sentinel kinds.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return fmt.Sprint(e.Kind)
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Data(op string, err error) error { return Wrap(ErrData, op, err) }

func Enrichment(op string, err error) error { return Wrap(ErrEnrichmentUnavailable, op, err) }

func Reasoning(op string, err error) error { return Wrap(ErrReasoningUnavailable, op, err) }

func Configuration(op string, err error) error { return Wrap(ErrConfiguration, op, err) }
