package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by cancel/modify when the order id was never
	// stored.
	ErrNotFound = errors.New("order not found")

	// ErrInvalidState is returned by cancel/modify when the order is
	// already in a terminal state.
	ErrInvalidState = errors.New("order in terminal state")
)

// ValidationError reports a malformed order field. Validation failures are
// resolved locally and never reach the gateway.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order validation failed: " + e.Reason
}

// RiskError reports a pre-trade risk limit breach. Risk failures are
// resolved locally and never reach the gateway.
type RiskError struct {
	Reason string
}

func (e *RiskError) Error() string {
	return "risk limit exceeded: " + e.Reason
}

// GatewayError wraps a failure reported by the broker after the request was
// sent. The engine performs no retry; the caller decides.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
