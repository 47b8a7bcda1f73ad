package lib

import (
	"errors"
	"fmt"
)

var (
	// ErrPrerequisiteMissing marks attempts that cannot proceed because the
	// artifact or the runtime is absent.
	ErrPrerequisiteMissing = errors.New("prerequisite missing")

	ErrNotRunning     = errors.New("server is not running")
	ErrCommandTooLong = errors.New("command exceeds maximum length")
	ErrInvalidCommand = errors.New("command must be a single line")
	ErrInputClosed    = errors.New("server input is not writable")
)

// PrerequisiteError is returned when no artifact exists and none can be
// fetched, or when the runtime interpreter is not installed.
type PrerequisiteError struct {
	What   string
	Detail string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s missing: %s", e.What, e.Detail)
}

func (e *PrerequisiteError) Unwrap() error { return ErrPrerequisiteMissing }

// DownloadError is returned when fetching the artifact fails. StatusCode is
// zero for network failures.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// SpawnError is returned when the OS refuses to start the process.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ConfigError reports a malformed configuration value. It is non-fatal where
// a safe default exists.
type ConfigError struct {
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid value %q: %v", e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
