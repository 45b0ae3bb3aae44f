package filtering

import "errors"

var (
	// ErrSourceUnreadable indicates a rule source could not be opened or read
	ErrSourceUnreadable = errors.New("rule source unreadable")

	// ErrInvalidEncoding indicates a rule source is not valid UTF-8
	ErrInvalidEncoding = errors.New("rule source is not valid utf-8")

	// ErrUnknownMatchMode indicates an unsupported match mode name
	ErrUnknownMatchMode = errors.New("unknown match mode")

	// ErrNetworkError indicates network-related errors during list download
	ErrNetworkError = errors.New("network error")
)
