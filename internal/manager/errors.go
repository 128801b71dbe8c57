package manager

// loadError wraps a model load failure so the worker boundary can tell it
// apart from unknown-engine and mid-run failures.
type loadError struct {
	key cacheKey
	err error
}

func (e loadError) Error() string { return "model load failed (" + e.key.String() + "): " + e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

// IsLoadFailure reports whether err came from a failed model load.
func IsLoadFailure(err error) bool {
	_, ok := err.(loadError)
	return ok
}
