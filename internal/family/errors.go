package family

import "fmt"

// FetchError causes. Timeout and connection failures are transient and
// retried; quota and decode failures are not, since repeating the call
// immediately cannot help.
const (
	CauseTimeout    = "timeout"
	CauseConnection = "connection"
	CauseStatus     = "status"
	CauseQuota      = "quota"
	CauseDecode     = "decode"
)

// FetchError is a failed state or health fetch against a family backend.
// It wraps the underlying transport or decode error and classifies it
// with a cause so retry policy and logging can act on the class rather
// than the error text.
type FetchError struct {
	Family Family
	Cause  string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("family %s: fetch failed (%s): %v", e.Family, e.Cause, e.Err)
	}
	return fmt.Sprintf("family %s: fetch failed (%s)", e.Family, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether retrying the same call soon could succeed.
func (e *FetchError) Transient() bool {
	switch e.Cause {
	case CauseTimeout, CauseConnection, CauseStatus:
		return true
	default:
		return false
	}
}

// ConfigError marks a family whose required configuration (credentials,
// host) is missing or unusable at startup. It disables that family only;
// the rest of the process proceeds.
type ConfigError struct {
	Family Family
	Field  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("family %s: missing required config %q, family disabled", e.Family, e.Field)
}

// ParseError is one malformed entity inside an otherwise-good response.
// Clients log it and skip the entity; it never fails the enclosing fetch.
type ParseError struct {
	Family Family
	Entity string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("family %s: entity %s unparseable: %v", e.Family, e.Entity, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
