package preflight

import "errors"

var (
	ErrCheckFailed = errors.New("preflight: check failed")
	ErrConfigDrift = errors.New("preflight: configuration changed since startup")
)

// IsFatal reports whether err must stop the process rather than be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfigDrift)
}
