package coingecko

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed fetch for the scheduler and handlers.
type ErrorKind string

const (
	// KindNetwork covers timeouts, unreachable hosts, and an open
	// circuit breaker. The whole fetch is aborted.
	KindNetwork ErrorKind = "network"
	// KindStatus covers non-2xx upstream responses.
	KindStatus ErrorKind = "status"
	// KindParse covers a malformed payload or a batch in which every
	// record failed to parse.
	KindParse ErrorKind = "parse"
)

// FetchError is the typed error returned by Client.FetchMarkets.
type FetchError struct {
	Kind       ErrorKind
	HTTPStatus int // set for KindStatus only
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("coingecko: fetch failed (%s, HTTP %d): %v", e.Kind, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("coingecko: fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind, or an empty string for errors that did
// not originate in the adapter.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
