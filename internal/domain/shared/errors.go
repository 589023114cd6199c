// Package shared holds types used across the domain packages: the error
// taxonomy for the engine and the event messages published to the engine
// event stream.
package shared

import "fmt"

// ValidationError indicates malformed or missing input or configuration.
// It is fatal for the single operation that produced it and must never
// corrupt stored state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConflictError indicates a recoverable collision: a duplicate payment
// reference, a double-join attempt, a taken slot, or a lost payout race.
// Callers retry or surface the reason to the user.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

// ExternalServiceError indicates an unreachable or misbehaving external
// dependency (payment gateway). It must never be interpreted as success;
// the engine fails closed and writes nothing on uncertainty.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s failed: %v", e.Service, e.Err)
}

func (e ExternalServiceError) Unwrap() error {
	return e.Err
}

// DataIntegrityFault indicates stored state that violates a group invariant,
// such as a payout slot no member holds. This is a bug, not an operating
// condition: log loudly, skip the affected group, continue the batch.
type DataIntegrityFault struct {
	GroupID string
	Detail  string
}

func (e DataIntegrityFault) Error() string {
	return fmt.Sprintf("data integrity fault in group %s: %s", e.GroupID, e.Detail)
}
