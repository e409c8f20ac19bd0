package datanode

import "fmt"

// ConnectorError means the backend connector itself failed: network, auth,
// or syntax the backend rejected. The message is always prefixed with the
// backend kind and data source name so callers can tell which of many
// registered sources misbehaved.
type ConnectorError struct {
	Kind    string
	Name    string
	Message string
	Err     error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("[%s/%s]: %s", e.Kind, e.Name, e.Message)
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// ResultError means the backend replied but reported an error result. The
// backend's own message is surfaced unwrapped to keep it distinguishable
// from connector failures.
type ResultError struct {
	Source  string
	Message string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("error in %s: %s", e.Source, e.Message)
}
