package occupancy

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned by reads against an empty store. It is a
	// normal outcome for a fresh deployment, not a failure.
	ErrNoData = errors.New("no occupancy data recorded yet")

	// ErrDuplicateSample is returned when a sample with an already-stored
	// timestamp is inserted. The stored row is kept untouched.
	ErrDuplicateSample = errors.New("sample with this timestamp already stored")
)

// FetchErrorKind classifies transport-level failures.
type FetchErrorKind string

const (
	FetchTimeout           FetchErrorKind = "timeout"
	FetchConnectionRefused FetchErrorKind = "connection_refused"
	FetchNonSuccessStatus  FetchErrorKind = "non_success_status"
	FetchTransport         FetchErrorKind = "transport"
)

// FetchError is the only error type the fetcher returns. The scheduler
// treats every kind the same way: the cycle failed, wait for the next one.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchNonSuccessStatus {
		return fmt.Sprintf("fetch: %s: %d", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractErrorKind classifies extraction failures.
type ExtractErrorKind string

const (
	ExtractStructureNotFound ExtractErrorKind = "structure_not_found"
	ExtractNonNumericValue   ExtractErrorKind = "non_numeric_value"
	ExtractOutOfRange        ExtractErrorKind = "out_of_range"
)

// ExtractError reports that the expected occupancy field was missing,
// non-numeric, or implausible. Markup drift on the source page must end
// up here rather than as a silently wrong number.
type ExtractError struct {
	Kind   ExtractErrorKind
	Detail string
}

func (e *ExtractError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("extract: %s", e.Kind)
	}
	return fmt.Sprintf("extract: %s: %s", e.Kind, e.Detail)
}

// errorTypeLabel maps a pipeline error to a metric/log label.
func errorTypeLabel(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return "fetch_" + string(fe.Kind)
	}
	var ee *ExtractError
	if errors.As(err, &ee) {
		return "extract_" + string(ee.Kind)
	}
	if err != nil {
		return "store"
	}
	return "none"
}
