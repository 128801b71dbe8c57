package engine

import "fmt"

// unavailableError signals an unknown engine name or missing runtime
// dependency, a configuration problem rather than a transient failure.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnknownEngine reports an engine name that is not registered.
func ErrUnknownEngine(name string, available []string) error {
	return unavailableError{msg: fmt.Sprintf("unsupported engine %q (available: %v)", name, available)}
}

// ErrUnavailable reports a registered engine whose dependencies are missing.
func ErrUnavailable(name, reason string) error {
	return unavailableError{msg: fmt.Sprintf("engine %q is not available: %s", name, reason)}
}

// IsUnavailable reports whether err indicates an unknown or uninstalled engine.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}

// runError wraps a transcription failure, preserving the cause.
type runError struct {
	engine string
	err    error
}

func (e runError) Error() string { return "transcription failed (" + e.engine + "): " + e.err.Error() }
func (e runError) Unwrap() error { return e.err }

// ErrRun constructs a runError.
func ErrRun(engine string, err error) error { return runError{engine: engine, err: err} }

// IsRunFailure reports whether err came from a failed engine run.
func IsRunFailure(err error) bool {
	_, ok := err.(runError)
	return ok
}
