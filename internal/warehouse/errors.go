package warehouse

import "fmt"

// ResolutionError reports a dimension that could not be resolved or
// created. The caller may retry the single resolve.
type ResolutionError struct {
	Dimension string
	Key       string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s %q: %v", e.Dimension, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IntegrityError reports a fact row that referenced a dimension key
// absent at load time. This indicates a resolver ordering bug and is
// fatal to the run.
type IntegrityError struct {
	Table string
	Key   int64
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("loading %s %d: referenced dimension missing: %v", e.Table, e.Key, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
