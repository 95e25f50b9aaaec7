package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
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

// Common domain errors
var (
	ErrNotFound              = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput          = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrMissingSKU            = NewDomainError("MISSING_SKU", "Line item has no SKU after normalization")
	ErrZeroCost              = NewDomainError("ZERO_COST", "Resolved line cost is zero or negative")
	ErrReconcileMismatch     = NewDomainError("RECONCILE_MISMATCH", "Invoice total does not match payment evidence")
	ErrInsufficientCodes     = NewDomainError("INSUFFICIENT_CODES", "Not enough free inventory codes for SKU")
	ErrSchemaMismatch        = NewDomainError("SCHEMA_MISMATCH", "Required table or column is absent")
	ErrAlreadySettled        = NewDomainError("ALREADY_SETTLED", "Order reference was already settled")
	ErrInvalidDocumentNumber = NewDomainError("INVALID_DOCUMENT_NUMBER", "Minted document number is outside the valid range")
	ErrInvalidSupplier       = NewDomainError("INVALID_SUPPLIER", "Resolved supplier code is not valid")
	ErrInfrastructure        = NewDomainError("INFRASTRUCTURE", "Underlying store is unavailable")
)
