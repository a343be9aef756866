package shared

// DomainError pairs a stable machine-readable code with a human message.
// The HTTP layer maps codes onto status codes; services compare against the
// sentinel values below or mint ad-hoc errors with NewDomainError.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")

	ErrDuplicateClaim        = NewDomainError("DUPLICATE_CLAIM", "An open violation case already exists for this order item")
	ErrDuplicateRefund       = NewDomainError("DUPLICATE_REFUND", "A deposit refund already exists for this order")
	ErrPenaltyExceedsDeposit = NewDomainError("PENALTY_EXCEEDS_DEPOSIT", "Penalty amount exceeds the deposit held for this order item")
	ErrAlreadyResolved       = NewDomainError("ALREADY_RESOLVED", "A resolution already exists for this violation case")
)
