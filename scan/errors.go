package scan

import (
	"errors"
	"fmt"
)

// ErrSafetyCapReached reports that a scan stopped at the safety ceiling.
// It is informational: scans expose it as Result.CapReached and never
// return it.
var ErrSafetyCapReached = errors.New("safety ceiling reached")

// TransportError reports a failed remote read of one byte window.
type TransportError struct {
	Bucket string
	Key    string
	Start  int64
	End    int64 // inclusive
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("read %s/%s bytes=%d-%d: %v", e.Bucket, e.Key, e.Start, e.End, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
