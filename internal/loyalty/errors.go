package loyalty

import (
	"errors"
	"fmt"

	"github.com/storeline/backend/internal/models"
)

// Business errors are surfaced to the caller as-is and must never be
// retried. DatabaseError is the only retryable class.
var (
	ErrProgramNotFound = errors.New("loyalty program not found or not active")
	ErrMemberNotFound  = errors.New("loyalty member not found")
	ErrRewardNotFound  = errors.New("reward not found or not available")
)

// AlreadyEnrolledError is returned when a customer already holds a
// membership in the program. It carries the existing member so call
// sites can treat enrollment as idempotent.
type AlreadyEnrolledError struct {
	Member *models.LoyaltyMember
}

func (e *AlreadyEnrolledError) Error() string {
	return fmt.Sprintf("customer %s already enrolled in program %s", e.Member.CustomerID, e.Member.ProgramID)
}

// InsufficientPointsError is returned when a redeem or expire would
// drive the balance negative
type InsufficientPointsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: required %d, available %d", e.Required, e.Available)
}

// ValidationError reports malformed input; non-retryable
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DatabaseError wraps a storage failure (lock timeout, connection
// loss). Callers may retry with bounded backoff; the engine itself
// never loops retries for balance mutations, so a retried call that
// carries an external reference stays safe through idempotency.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database error: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the caller may retry the operation
func IsRetryable(err error) bool {
	var dbErr *DatabaseError
	return errors.As(err, &dbErr)
}
