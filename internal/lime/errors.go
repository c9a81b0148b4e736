package lime

import "errors"

// Failure kinds of an explanation call. Every error returned by this package
// wraps exactly one of them; test with errors.Is.
var (
	ErrConfiguration    = errors.New("invalid lime configuration")
	ErrInsufficientData = errors.New("insufficient data to perturb feature")
	ErrProvider         = errors.New("prediction provider failed")
	ErrEncoding         = errors.New("cannot encode feature")
	ErrRegression       = errors.New("surrogate regression failed")
	ErrUnstable         = errors.New("explanation is not stable")
)

// failureKind names the sentinel an error wraps, for metrics labels.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrRegression):
		return "regression"
	case errors.Is(err, ErrUnstable):
		return "unstable"
	default:
		return "other"
	}
}
