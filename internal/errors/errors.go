// Package errors holds the scalper's sentinel and typed errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPositionNotFound    = errors.New("position not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrNoFundingData       = errors.New("no funding data")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrLLMDisabled         = errors.New("llm disabled")
	ErrInvalidLLMResponse  = errors.New("invalid llm response")
	ErrOrderNotFilled      = errors.New("order not filled")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrQueueFull           = errors.New("queue full")
	ErrTickInProgress      = errors.New("tick in progress")
)

// BrokerError is a failed broker REST call. Status is 0 when the request never
// got a response.
type BrokerError struct {
	Status int
	Op     string
	Body   string
	Err    error
}

func (e *BrokerError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("broker %s: %v", e.Op, e.Err)
	case e.Body != "":
		return fmt.Sprintf("broker %s: status %d: %s", e.Op, e.Status, e.Body)
	default:
		return fmt.Sprintf("broker %s: status %d", e.Op, e.Status)
	}
}

func (e *BrokerError) Unwrap() error { return e.Err }

// Rejected reports whether the broker refused the request itself, as opposed
// to failing to serve it.
func (e *BrokerError) Rejected() bool {
	return e.Status == http.StatusForbidden || e.Status == http.StatusUnprocessableEntity
}

func NewBrokerError(status int, op, body string, err error) *BrokerError {
	return &BrokerError{Status: status, Op: op, Body: body, Err: err}
}

// OrderError is a failed order for one instrument. The engine logs it and
// moves on to the next symbol.
type OrderError struct {
	Symbol string
	Side   string
	Reason string
	Err    error
}

func (e *OrderError) Error() string {
	msg := fmt.Sprintf("%s %s order: %s", e.Side, e.Symbol, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OrderError) Unwrap() error { return e.Err }

func NewOrderError(symbol, side, reason string, err error) *OrderError {
	return &OrderError{Symbol: symbol, Side: side, Reason: reason, Err: err}
}

// ValidationError is one rejected config field. It matches ErrConfigInvalid.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s = %v: %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrConfigInvalid }

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// DataError is a failed market or enrichment fetch. Symbol is empty for
// process-wide sources such as fear-greed.
type DataError struct {
	Source  string
	Symbol  string
	Message string
	Err     error
}

func (e *DataError) Error() string {
	where := e.Source
	if e.Symbol != "" {
		where += " " + e.Symbol
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *DataError) Unwrap() error { return e.Err }

func NewDataError(source, symbol, message string, err error) *DataError {
	return &DataError{Source: source, Symbol: symbol, Message: message, Err: err}
}

// RiskError is an entry refused by the risk gate. Rule names the check.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("entry blocked by %s: %s (%g/%g)", e.Rule, e.Message, e.Current, e.Limit)
}

func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{Rule: rule, Current: current, Limit: limit, Message: message}
}

// Wrap prefixes err with message. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }
