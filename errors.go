package lakescan

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData is returned when a dataset resolves to no readable rows.
	ErrNoData = errors.New("no data")

	// ErrClosed is returned by operations on a closed Engine.
	ErrClosed = errors.New("engine is closed")
)

// NoDataError reports that an object is empty or that a prefix holds no
// delimited object.
//
// errors.Is(err, ErrNoData) reports true for a *NoDataError.
type NoDataError struct {
	Bucket string
	Prefix string
	cause  error
}

func (e *NoDataError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("no data at %s/%s: %v", e.Bucket, e.Prefix, e.cause)
	}
	return fmt.Sprintf("no data at %s/%s", e.Bucket, e.Prefix)
}

func (e *NoDataError) Is(target error) bool { return target == ErrNoData }

func (e *NoDataError) Unwrap() error { return e.cause }
