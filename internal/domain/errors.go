package domain

import "errors"

// RetriableError is implemented by errors that carry their own
// retry-eligibility, so callers can decide without type-switching on
// every concrete error.
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable reports whether err (or any error it wraps) is retriable.
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError wraps a transport-level failure (dial, read, write).
type NetworkError struct {
	Op        string
	Err       error
	Retriable bool
}

func (e *NetworkError) Error() string     { return e.Op + ": " + e.Err.Error() }
func (e *NetworkError) IsRetriable() bool { return e.Retriable }
func (e *NetworkError) Unwrap() error     { return e.Err }

// NewNetworkError builds a retriable network error.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError builds a non-retriable network error, e.g. an
// authentication rejection that will not succeed on replay.
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// ConfigError signals a bad configuration value; never retriable.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string     { return "config error [" + e.Field + "]: " + e.Err.Error() }
func (e *ConfigError) IsRetriable() bool { return false }
func (e *ConfigError) Unwrap() error     { return e.Err }

// ValidationError reports a pre-issue order that fails a trading-limit
// check: the offending field and the reason. It carries no suggested
// correction.
type ValidationError struct {
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string     { return "validation [" + e.Field + "]: " + e.Reason }
func (e *ValidationError) IsRetriable() bool { return false }

// VenueError wraps an exchange-reported rejection (non-2xx REST response
// or an RPC error frame). Retriable only for errors the venue marks as
// transient (e.g. rate-limit backpressure).
type VenueError struct {
	Code      string
	Message   string
	Retriable bool
}

func (e *VenueError) Error() string     { return "venue error " + e.Code + ": " + e.Message }
func (e *VenueError) IsRetriable() bool { return e.Retriable }

// TimeoutError reports a request that never received a correlated
// response within its deadline. Retriable: the caller can reissue,
// though the original may still land at the venue.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string     { return "timeout: " + e.Op }
func (e *TimeoutError) IsRetriable() bool { return true }

var (
	// ErrConnectionFailed indicates a transport-level connect failure.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrInvalidSymbol indicates a symbol not recognized by the adapter.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNotConnected indicates an operation attempted before a transport
	// completed its handshake.
	ErrNotConnected = errors.New("not connected")
	// ErrCrossedBook indicates a computed quote would cross the market.
	ErrCrossedBook = errors.New("crossed book")
)
