package engine

import "fmt"

// ConfigError is a run setup problem; generation never starts.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string { return "configuration: " + e.Reason }

func configErrorf(format string, args ...any) ConfigError {
	return ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// FileError is a failure producing one output file. Sibling files are
// unaffected.
type FileError struct {
	Idx  int
	Name string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Idx, e.Name, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }
