package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation    ErrCode = "VALIDATION_ERROR"
	ErrInvalidID     ErrCode = "INVALID_ID"
	ErrInvalidFolder ErrCode = "INVALID_FOLDER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Compilation ───────────────────────────────────────────────────
	ErrQuizInvalid  ErrCode = "QUIZ_INVALID"
	ErrQuizTooLarge ErrCode = "QUIZ_TOO_LARGE"
	ErrNotArtifact  ErrCode = "NOT_AN_ARTIFACT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal    ErrCode = "INTERNAL_ERROR"
	ErrUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidFolder:
		return "Folder names may only contain letters, digits, dashes and underscores."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Compilation ───────────────────────────────────────────────────
	case ErrQuizInvalid:
		return "The quiz cannot be delivered. See the listed questions."
	case ErrQuizTooLarge:
		return "The quiz exceeds the maximum size."
	case ErrNotArtifact:
		return "The document is not a valid compiled quiz."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	case ErrUnavailable:
		return "A backing store is not reachable."
	default:
		return "An unexpected error occurred."
	}
}
