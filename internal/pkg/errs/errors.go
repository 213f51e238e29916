package errs

import "errors"

var (
	ErrBadNamespace   = errors.New("invalid namespace")
	ErrRetryExhausted = errors.New("maximum number of retries exceeded")
	ErrUnavailable    = errors.New("provider unavailable")
)

func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}
