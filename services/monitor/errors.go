package monitor

import "fmt"

// ConfigurationError marks a store definition the engine cannot act
// on. The store is skipped until its config is fixed.
type ConfigurationError struct {
	Store string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration for store %q: %s", e.Store, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FetchError means retries were exhausted fetching a page. The cycle
// for that store is abandoned and retried at its next due tick.
type FetchError struct {
	Store string
	Url   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for store %q: %s", e.Url, e.Store, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError records one container that couldn't produce a
// usable item. It never fails a cycle, only shrinks its result.
type ExtractionError struct {
	Store string
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("store %q: item container missing required field %q", e.Store, e.Field)
}

// PersistenceError means the cycle's commit failed and was rolled
// back, the prior snapshot stays authoritative.
type PersistenceError struct {
	Store string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist store %q: %s", e.Store, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
